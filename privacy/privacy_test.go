package privacy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry"
)

var (
	findPosts  = quarry.Operation{Model: "Post", Op: quarry.OpFindMany}
	createPost = quarry.Operation{Model: "Post", Op: quarry.OpCreate}
	deleteUser = quarry.Operation{Model: "User", Op: quarry.OpDelete}
)

func TestDecisionf(t *testing.T) {
	err := Denyf("user %d", 1)
	assert.ErrorIs(t, err, Deny)
	assert.Equal(t, "user 1: quarry/privacy: deny rule", err.Error())
	assert.ErrorIs(t, Allowf("ok"), Allow)
	assert.ErrorIs(t, Skipf("next"), Skip)
}

func TestRules(t *testing.T) {
	ctx := context.Background()
	custom := errors.New("custom")
	tests := []struct {
		name  string
		rules Rules
		want  error
	}{
		{name: "empty", rules: nil, want: nil},
		{name: "skip", rules: Rules{RuleFunc(func(context.Context, quarry.Operation) error { return Skip })}, want: nil},
		{name: "nil continues", rules: Rules{RuleFunc(func(context.Context, quarry.Operation) error { return nil }), AlwaysDenyRule()}, want: Deny},
		{name: "first decision wins", rules: Rules{AlwaysAllowRule(), AlwaysDenyRule()}, want: Allow},
		{name: "error", rules: Rules{ContextRule(func(context.Context) error { return custom })}, want: custom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rules.Eval(ctx, findPosts)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPolicy(t *testing.T) {
	ctx := context.Background()
	p := Policy{
		Query:    Rules{AlwaysAllowRule()},
		Mutation: Rules{AlwaysDenyRule()},
	}
	assert.NoError(t, p.Eval(ctx, findPosts), "allow decisions are returned as nil")
	assert.ErrorIs(t, p.Eval(ctx, createPost), Deny)
	assert.NoError(t, Policy{}.Eval(ctx, createPost))
}

func TestModels(t *testing.T) {
	ctx := context.Background()
	m := Models{
		"User": {Mutation: Rules{AlwaysDenyRule()}},
	}
	assert.ErrorIs(t, m.Eval(ctx, deleteUser), Deny)
	assert.NoError(t, m.Eval(ctx, createPost), "models without policy are not restricted")
	assert.NoError(t, m.Eval(DecisionContext(ctx, Allow), deleteUser))
	assert.ErrorIs(t, m.Eval(DecisionContext(ctx, Deny), createPost), Deny)
}

func TestPolicies(t *testing.T) {
	ctx := context.Background()
	ps := Policies{
		Policy{Query: Rules{AlwaysAllowRule()}},
		Models{"Post": {Query: Rules{AlwaysDenyRule()}}},
	}
	assert.ErrorIs(t, ps.Eval(ctx, findPosts), Deny)
	assert.NoError(t, ps.Eval(ctx, quarry.Operation{Model: "User", Op: quarry.OpFindMany}))
}

func TestDecisionContext(t *testing.T) {
	ctx := context.Background()
	_, ok := DecisionFromContext(ctx)
	assert.False(t, ok)

	assert.Equal(t, ctx, DecisionContext(ctx, Skip))
	assert.Equal(t, ctx, DecisionContext(ctx, nil))

	decision, ok := DecisionFromContext(DecisionContext(ctx, Allow))
	require.True(t, ok)
	assert.NoError(t, decision)

	p := Policy{Query: Rules{AlwaysDenyRule()}}
	assert.NoError(t, p.Eval(DecisionContext(ctx, Allow), findPosts))
	p = Policy{Query: Rules{AlwaysAllowRule()}}
	assert.ErrorIs(t, p.Eval(DecisionContext(ctx, Denyf("maintenance")), findPosts), Deny)
}

func TestOnOps(t *testing.T) {
	ctx := context.Background()
	rule := OnOps(AlwaysDenyRule(), quarry.OpDelete, quarry.OpDeleteMany)
	assert.ErrorIs(t, rule.Eval(ctx, deleteUser), Deny)
	assert.ErrorIs(t, rule.Eval(ctx, createPost), Skip)
}

func TestOnModels(t *testing.T) {
	ctx := context.Background()
	rule := OnModels(AlwaysAllowRule(), "Post")
	assert.ErrorIs(t, rule.Eval(ctx, createPost), Allow)
	assert.ErrorIs(t, rule.Eval(ctx, deleteUser), Skip)
}

func TestDenyOpsRule(t *testing.T) {
	ctx := context.Background()
	rule := DenyOpsRule(quarry.OpDelete)
	err := rule.Eval(ctx, deleteUser)
	assert.ErrorIs(t, err, Deny)
	assert.Contains(t, err.Error(), "delete on User is not allowed")
	assert.ErrorIs(t, rule.Eval(ctx, findPosts), Skip)
}
