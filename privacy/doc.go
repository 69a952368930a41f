// Package privacy provides the rules of an access policy checked by the
// engine before every query and mutation.
//
// A policy is a list of query rules and a list of mutation rules. Rules
// are evaluated in order until one returns a decision:
//
//   - Allow grants access and stops the evaluation.
//   - Deny, or any other error, rejects the operation.
//   - Skip, or nil, defers to the next rule.
//
// An operation is allowed when every rule skips.
//
//	policy := privacy.Models{
//		"Post": {
//			Mutation: privacy.Rules{
//				privacy.DenyIfNoViewer(),
//				privacy.HasRole("editor"),
//				privacy.AlwaysDenyRule(),
//			},
//		},
//	}
//	client, err := db.Open(ctx, "", db.Policy(policy))
//
// The viewer is attached to the request context:
//
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "42", Roles: []string{"editor"}})
//
// Trusted code paths can bypass the policies with a fixed decision:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy
