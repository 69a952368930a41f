package sqlgraph

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/querylanguage"
)

// FuncSelector represents a selector function to be used as a predicate.
const FuncSelector querylanguage.Func = "func_selector"

// WrapFunc wraps a selector-func with a querylanguage call expression.
// The function receives a selector scoped to the node it is evaluated on.
func WrapFunc(s func(*sql.Selector)) *querylanguage.CallExpr {
	return &querylanguage.CallExpr{
		Func: FuncSelector,
		Args: []querylanguage.Expr{&querylanguage.Value{V: s}},
	}
}

var binary = [...]string{
	querylanguage.OpEQ:  "=",
	querylanguage.OpNEQ: "<>",
	querylanguage.OpGT:  ">",
	querylanguage.OpGTE: ">=",
	querylanguage.OpLT:  "<",
	querylanguage.OpLTE: "<=",
}

// state holds the alias counter of one evaluation. Sub-queries over
// join tables and self references get the aliases t1, t2, ...
type state struct {
	alias int
}

func (s *state) nextAlias() string {
	s.alias++
	return "t" + strconv.Itoa(s.alias)
}

// EvalP evaluates the querylanguage predicate on the given selector (query builder).
func (g *Schema) EvalP(nodeType string, p querylanguage.P, selector *sql.Selector) error {
	if p == nil {
		return nil
	}
	node, err := g.Node(nodeType)
	if err != nil {
		return err
	}
	pred, err := (&state{}).evalExpr(node, p, selector)
	if err != nil {
		return err
	}
	selector.Where(pred)
	return nil
}

func (s *state) evalExpr(node *Node, expr querylanguage.Expr, sel *sql.Selector) (*sql.Predicate, error) {
	switch e := expr.(type) {
	case *querylanguage.UnaryExpr:
		if e.Op != querylanguage.OpNot {
			return nil, fmt.Errorf("sqlgraph: unsupported unary operator: %s", e.Op)
		}
		x, err := s.evalExpr(node, e.X, sel)
		if err != nil {
			return nil, err
		}
		return sql.Not(x), nil
	case *querylanguage.BinaryExpr:
		switch e.Op {
		case querylanguage.OpAnd, querylanguage.OpOr:
			preds, err := s.evalList(node, []querylanguage.Expr{e.X, e.Y}, sel)
			if err != nil {
				return nil, err
			}
			if e.Op == querylanguage.OpAnd {
				return sql.And(preds...), nil
			}
			return sql.Or(preds...), nil
		default:
			return s.evalBinary(node, e, sel)
		}
	case *querylanguage.NaryExpr:
		preds, err := s.evalList(node, e.Xs, sel)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case querylanguage.OpAnd:
			return sql.And(preds...), nil
		case querylanguage.OpOr:
			return sql.Or(preds...), nil
		default:
			return nil, fmt.Errorf("sqlgraph: unsupported n-ary operator: %s", e.Op)
		}
	case *querylanguage.CallExpr:
		switch e.Func {
		case querylanguage.FuncHasEdge:
			return s.evalEdge(node, e, sel)
		case FuncSelector:
			return evalFunc(e, sel)
		default:
			return s.evalCall(node, e, sel)
		}
	default:
		return nil, fmt.Errorf("sqlgraph: unexpected expression type %T", expr)
	}
}

func (s *state) evalList(node *Node, xs []querylanguage.Expr, sel *sql.Selector) ([]*sql.Predicate, error) {
	preds := make([]*sql.Predicate, 0, len(xs))
	for _, x := range xs {
		p, err := s.evalExpr(node, x, sel)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func evalFunc(e *querylanguage.CallExpr, sel *sql.Selector) (*sql.Predicate, error) {
	if len(e.Args) != 1 {
		return nil, fmt.Errorf("sqlgraph: %s expects 1 argument, got %d", e.Func, len(e.Args))
	}
	v, ok := e.Args[0].(*querylanguage.Value)
	if !ok || v == nil {
		return nil, fmt.Errorf("sqlgraph: %s expects a value argument", e.Func)
	}
	fn, ok := v.V.(func(*sql.Selector))
	if !ok {
		return nil, fmt.Errorf("sqlgraph: %s expects func(*sql.Selector), got %T", e.Func, v.V)
	}
	scope := sel.Clone().SetP(nil)
	fn(scope)
	return scope.P(), nil
}

func (s *state) evalBinary(node *Node, e *querylanguage.BinaryExpr, sel *sql.Selector) (*sql.Predicate, error) {
	f, ok := e.X.(*querylanguage.Field)
	if !ok {
		return nil, fmt.Errorf("sqlgraph: expect left operand of %s to be a field, got %T", e.Op, e.X)
	}
	column, err := node.column(f.Name)
	if err != nil {
		return nil, err
	}
	c := sel.C(column)
	switch y := e.Y.(type) {
	case *querylanguage.Field:
		other, err := node.column(y.Name)
		if err != nil {
			return nil, err
		}
		if int(e.Op) >= len(binary) || binary[e.Op] == "" {
			return nil, fmt.Errorf("sqlgraph: unsupported operator between fields: %s", e.Op)
		}
		return sql.ColumnsOp(c, binary[e.Op], sel.C(other)), nil
	case *querylanguage.Value:
		if y == nil || y.V == nil {
			switch e.Op {
			case querylanguage.OpEQ:
				return sql.IsNull(c), nil
			case querylanguage.OpNEQ:
				return sql.NotNull(c), nil
			default:
				return nil, fmt.Errorf("sqlgraph: unsupported nil comparison: %s", e.Op)
			}
		}
		switch e.Op {
		case querylanguage.OpEQ:
			return sql.EQ(c, y.V), nil
		case querylanguage.OpNEQ:
			return sql.NEQ(c, y.V), nil
		case querylanguage.OpGT:
			return sql.GT(c, y.V), nil
		case querylanguage.OpGTE:
			return sql.GTE(c, y.V), nil
		case querylanguage.OpLT:
			return sql.LT(c, y.V), nil
		case querylanguage.OpLTE:
			return sql.LTE(c, y.V), nil
		case querylanguage.OpIn:
			return sql.In(c, values(y.V)...), nil
		case querylanguage.OpNotIn:
			return sql.NotIn(c, values(y.V)...), nil
		default:
			return nil, fmt.Errorf("sqlgraph: unsupported binary operator: %s", e.Op)
		}
	default:
		return nil, fmt.Errorf("sqlgraph: unexpected right operand type %T", e.Y)
	}
}

// values flattens a slice value into a list of arguments.
func values(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return []any{v}
	}
	args := make([]any, rv.Len())
	for i := range args {
		args[i] = rv.Index(i).Interface()
	}
	return args
}

func (s *state) evalCall(node *Node, e *querylanguage.CallExpr, sel *sql.Selector) (*sql.Predicate, error) {
	if len(e.Args) != 2 {
		return nil, fmt.Errorf("sqlgraph: %s expects 2 arguments, got %d", e.Func, len(e.Args))
	}
	f, ok := e.Args[0].(*querylanguage.Field)
	if !ok {
		return nil, fmt.Errorf("sqlgraph: %s expects a field as first argument, got %T", e.Func, e.Args[0])
	}
	v, ok := e.Args[1].(*querylanguage.Value)
	if !ok || v == nil {
		return nil, fmt.Errorf("sqlgraph: %s expects a value as second argument", e.Func)
	}
	arg, ok := v.V.(string)
	if !ok {
		return nil, fmt.Errorf("sqlgraph: %s expects a string argument, got %T", e.Func, v.V)
	}
	column, err := node.column(f.Name)
	if err != nil {
		return nil, err
	}
	c := sel.C(column)
	switch e.Func {
	case querylanguage.FuncEqualFold:
		return sql.EqualFold(c, arg), nil
	case querylanguage.FuncContains:
		return sql.Contains(c, arg), nil
	case querylanguage.FuncContainsFold:
		return sql.ContainsFold(c, arg), nil
	case querylanguage.FuncHasPrefix:
		return sql.HasPrefix(c, arg), nil
	case querylanguage.FuncHasSuffix:
		return sql.HasSuffix(c, arg), nil
	default:
		return nil, fmt.Errorf("sqlgraph: unsupported function: %s", e.Func)
	}
}

func (s *state) evalEdge(node *Node, e *querylanguage.CallExpr, sel *sql.Selector) (*sql.Predicate, error) {
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("sqlgraph: %s expects at least 1 argument", e.Func)
	}
	edge, ok := e.Args[0].(*querylanguage.Edge)
	if !ok {
		return nil, fmt.Errorf("sqlgraph: %s expects an edge as first argument, got %T", e.Func, e.Args[0])
	}
	ed, ok := node.Edges[edge.Name]
	if !ok {
		return nil, fmt.Errorf("sqlgraph: edge %q was not found for node %q", edge.Name, node.Type)
	}
	if sel.Table() == nil {
		return nil, fmt.Errorf("sqlgraph: selector of node %q has no table", node.Type)
	}
	to, spec, preds := ed.To, ed.Spec, e.Args[1:]
	d := sel.Dialect()
	switch {
	case spec.Rel == M2M:
		if len(spec.Columns) != 2 {
			return nil, fmt.Errorf("sqlgraph: M2M edge %q expects 2 join columns", edge.Name)
		}
		owner, other := spec.Columns[0], spec.Columns[1]
		if spec.Inverse {
			owner, other = other, owner
		}
		join := sql.Dialect(d).Select().From(sql.Table(spec.Table))
		join.Select(join.C(owner))
		if len(preds) > 0 {
			t := sql.Table(to.Table).As(s.nextAlias())
			join.Join(t)
			join.On(join.C(other), t.C(to.IDColumns()[0]))
			scope := sql.Dialect(d).Select().From(t)
			if err := s.applyAll(to, preds, scope); err != nil {
				return nil, err
			}
			join.Where(scope.P())
		}
		return sql.InSelect([]string{sel.C(node.IDColumns()[0])}, join), nil
	case spec.Rel == O2M, spec.Rel == O2O && !spec.Inverse:
		refs := spec.refColumns(node)
		if len(refs) != len(spec.Columns) {
			return nil, fmt.Errorf("sqlgraph: edge %q has %d foreign key columns for %d references", edge.Name, len(spec.Columns), len(refs))
		}
		t := sql.Table(spec.Table)
		if spec.Table == sel.Table().Alias() {
			t.As(s.nextAlias())
		}
		sub := sql.Dialect(d).Select().From(t)
		sub.Select(sub.Columns(spec.Columns...)...)
		eqs := make([]*sql.Predicate, len(refs))
		for i := range refs {
			eqs[i] = sql.ColumnsEQ(sel.C(refs[i]), sub.C(spec.Columns[i]))
		}
		sub.Where(sql.And(eqs...))
		if err := s.applyAll(to, preds, sub); err != nil {
			return nil, err
		}
		return sql.Exists(sub), nil
	case spec.Rel == M2O, spec.Rel == O2O && spec.Inverse:
		if len(preds) == 0 {
			nn := make([]*sql.Predicate, len(spec.Columns))
			for i, c := range spec.Columns {
				nn[i] = sql.NotNull(sel.C(c))
			}
			return sql.And(nn...), nil
		}
		t := sql.Table(to.Table)
		if to.Table == sel.Table().Alias() {
			t.As(s.nextAlias())
		}
		sub := sql.Dialect(d).Select().From(t)
		sub.Select(sub.Columns(spec.refColumns(to)...)...)
		if err := s.applyAll(to, preds, sub); err != nil {
			return nil, err
		}
		return sql.InSelect(sel.Columns(spec.Columns...), sub), nil
	default:
		return nil, fmt.Errorf("sqlgraph: unsupported edge relation: %s", spec.Rel)
	}
}

// applyAll evaluates the predicates on the node and appends them to sel.
func (s *state) applyAll(node *Node, preds []querylanguage.Expr, sel *sql.Selector) error {
	for _, p := range preds {
		pred, err := s.evalExpr(node, p, sel)
		if err != nil {
			return err
		}
		sel.Where(pred)
	}
	return nil
}
