package privacy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/quarry"
)

func TestViewerContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ViewerFromContext(ctx))

	v := &SimpleViewer{UserID: "42", Roles: []string{"editor"}, TenantID: "acme"}
	got := ViewerFromContext(WithViewer(ctx, v))
	assert.Equal(t, "42", got.GetID())
	assert.Equal(t, []string{"editor"}, got.GetRoles())
	assert.Equal(t, "acme", got.GetTenantID())
}

func TestDenyIfNoViewer(t *testing.T) {
	ctx := context.Background()
	rule := DenyIfNoViewer()
	assert.ErrorIs(t, rule.Eval(ctx, findPosts), Deny)
	assert.ErrorIs(t, rule.Eval(WithViewer(ctx, &SimpleViewer{UserID: "1"}), findPosts), Skip)
}

func TestHasRole(t *testing.T) {
	ctx := context.Background()
	admin := WithViewer(ctx, &SimpleViewer{UserID: "1", Roles: []string{"admin"}})
	guest := WithViewer(ctx, &SimpleViewer{UserID: "2"})

	assert.ErrorIs(t, HasRole("admin").Eval(admin, createPost), Allow)
	assert.ErrorIs(t, HasRole("admin").Eval(guest, createPost), Skip)
	assert.ErrorIs(t, HasRole("admin").Eval(ctx, createPost), Skip)
	assert.ErrorIs(t, HasAnyRole("editor", "admin").Eval(admin, createPost), Allow)
}

func TestTenantRule(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, TenantRule().Eval(ctx, findPosts), Deny)
	assert.ErrorIs(t, TenantRule().Eval(WithViewer(ctx, &SimpleViewer{UserID: "1"}), findPosts), Deny)
	assert.ErrorIs(t, TenantRule().Eval(WithViewer(ctx, &SimpleViewer{TenantID: "acme"}), findPosts), Skip)
}

func TestPolicy_Viewer(t *testing.T) {
	p := Models{
		"Post": {
			Mutation: Rules{
				DenyIfNoViewer(),
				HasRole("editor"),
				AlwaysDenyRule(),
			},
		},
	}
	ctx := context.Background()
	assert.NoError(t, p.Eval(ctx, findPosts))
	assert.ErrorIs(t, p.Eval(ctx, createPost), Deny)
	assert.ErrorIs(t, p.Eval(WithViewer(ctx, &SimpleViewer{UserID: "1"}), createPost), Deny)
	assert.NoError(t, p.Eval(WithViewer(ctx, &SimpleViewer{UserID: "1", Roles: []string{"editor"}}), createPost))
	assert.NoError(t, p.Eval(ctx, quarry.Operation{Model: "User", Op: quarry.OpCreate}))
}
