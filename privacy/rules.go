package privacy

import (
	"context"
	"slices"
)

// Viewer is the authenticated user making a request.
type Viewer interface {
	GetID() string
	GetRoles() []string
	// GetTenantID returns an empty string outside multi-tenant setups.
	GetTenantID() string
}

type viewerCtxKey struct{}

// WithViewer returns a context carrying the viewer.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext returns the viewer of the context, or nil.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic Viewer.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string {
	return v.UserID
}

// GetRoles returns the roles of the user.
func (v *SimpleViewer) GetRoles() []string {
	return v.Roles
}

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string {
	return v.TenantID
}

// DenyIfNoViewer denies operations of requests without a viewer.
func DenyIfNoViewer() Rule {
	return ContextRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("quarry/privacy: viewer required")
		}
		return Skip
	})
}

// HasRole allows operations of viewers with the role.
func HasRole(role string) Rule {
	return HasAnyRole(role)
}

// HasAnyRole allows operations of viewers with one of the roles.
func HasAnyRole(roles ...string) Rule {
	return ContextRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		if slices.ContainsFunc(roles, func(r string) bool { return slices.Contains(viewer.GetRoles(), r) }) {
			return Allow
		}
		return Skip
	})
}

// TenantRule denies operations of viewers without a tenant.
func TenantRule() Rule {
	return ContextRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || viewer.GetTenantID() == "" {
			return Denyf("quarry/privacy: tenant required")
		}
		return Skip
	})
}
