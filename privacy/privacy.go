package privacy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/syssam/quarry"
)

// Policy decision sentinel errors. Rules return them, possibly wrapped,
// and callers check them with errors.Is.
var (
	// Allow terminates the evaluation with an allow decision.
	Allow = errors.New("quarry/privacy: allow rule")

	// Deny terminates the evaluation with a deny decision.
	Deny = errors.New("quarry/privacy: deny rule")

	// Skip continues the evaluation with the next rule.
	Skip = errors.New("quarry/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Rule decides on an operation.
type Rule interface {
	Eval(context.Context, quarry.Operation) error
}

// RuleFunc allows a function to be used as a Rule.
type RuleFunc func(context.Context, quarry.Operation) error

// Eval returns f(ctx, op).
func (f RuleFunc) Eval(ctx context.Context, op quarry.Operation) error {
	return f(ctx, op)
}

// Rules is a list of rules evaluated in order. It returns the first
// decision other than Skip, or nil.
type Rules []Rule

// Eval implements Rule.
func (rs Rules) Eval(ctx context.Context, op quarry.Operation) error {
	for _, r := range rs {
		switch decision := r.Eval(ctx, op); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

// Policy holds the rules of queries and mutations. It implements
// quarry.Policy.
type Policy struct {
	Query    Rules
	Mutation Rules
}

// Eval evaluates the query or the mutation rules, depending on op.
func (p Policy) Eval(ctx context.Context, op quarry.Operation) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	rules := p.Query
	if op.Op.IsMutation() {
		rules = p.Mutation
	}
	return allowed(rules.Eval(ctx, op))
}

// Models holds the policy of each model. Models without a policy are
// not restricted.
type Models map[string]Policy

// Eval evaluates the policy of the model of op.
func (m Models) Eval(ctx context.Context, op quarry.Operation) error {
	p, ok := m[op.Model]
	if !ok {
		if decision, ok := DecisionFromContext(ctx); ok {
			return decision
		}
		return nil
	}
	return p.Eval(ctx, op)
}

// Policies combines policies. An operation runs when every policy
// allows it.
type Policies []quarry.Policy

// Eval returns the first rejection.
func (ps Policies) Eval(ctx context.Context, op quarry.Operation) error {
	for _, p := range ps {
		if err := p.Eval(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

func allowed(decision error) error {
	if errors.Is(decision, Allow) {
		return nil
	}
	return decision
}

// AlwaysAllowRule returns a rule that always allows.
func AlwaysAllowRule() Rule {
	return fixed{Allow}
}

// AlwaysDenyRule returns a rule that always denies.
func AlwaysDenyRule() Rule {
	return fixed{Deny}
}

type fixed struct{ decision error }

func (f fixed) Eval(context.Context, quarry.Operation) error { return f.decision }

// ContextRule returns a rule deciding on the context only.
func ContextRule(eval func(context.Context) error) Rule {
	return RuleFunc(func(ctx context.Context, _ quarry.Operation) error {
		return eval(ctx)
	})
}

// OnOps evaluates rule on the given operations only.
func OnOps(rule Rule, ops ...quarry.Op) Rule {
	return RuleFunc(func(ctx context.Context, op quarry.Operation) error {
		if slices.Contains(ops, op.Op) {
			return rule.Eval(ctx, op)
		}
		return Skip
	})
}

// OnModels evaluates rule on operations of the given models only.
func OnModels(rule Rule, models ...string) Rule {
	return RuleFunc(func(ctx context.Context, op quarry.Operation) error {
		if slices.Contains(models, op.Model) {
			return rule.Eval(ctx, op)
		}
		return Skip
	})
}

// DenyOpsRule denies the given operations.
func DenyOpsRule(ops ...quarry.Op) Rule {
	return OnOps(RuleFunc(func(_ context.Context, op quarry.Operation) error {
		return Denyf("quarry/privacy: %s on %s is not allowed", op.Op, op.Model)
	}), ops...)
}

type decisionCtxKey struct{}

// DecisionContext returns a context carrying a fixed decision, returned
// by every policy evaluated with it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext returns the decision of the context. An Allow
// decision is returned as nil.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

var (
	_ quarry.Policy = Policy{}
	_ quarry.Policy = Models(nil)
	_ quarry.Policy = Policies(nil)
	_ Rule          = Rules(nil)
)
