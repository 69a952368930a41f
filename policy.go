package quarry

import "context"

// Op is the kind of an engine operation.
type Op string

// Operations checked by a Policy.
const (
	OpFindMany   Op = "findMany"
	OpFindUnique Op = "findUnique"
	OpFindFirst  Op = "findFirst"
	OpCount      Op = "count"
	OpCreate     Op = "create"
	OpCreateMany Op = "createMany"
	OpUpdate     Op = "update"
	OpUpdateMany Op = "updateMany"
	OpUpsert     Op = "upsert"
	OpDelete     Op = "delete"
	OpDeleteMany Op = "deleteMany"
)

// IsMutation reports whether the operation writes.
func (o Op) IsMutation() bool {
	switch o {
	case OpFindMany, OpFindUnique, OpFindFirst, OpCount:
		return false
	}
	return true
}

// Operation describes an operation about to run.
type Operation struct {
	// Model is the name of the model the operation targets.
	Model string
	Op    Op
}

// Policy decides whether an operation may run. A non-nil error rejects
// the operation and is returned to the caller unchanged.
type Policy interface {
	Eval(ctx context.Context, op Operation) error
}

// PolicyFunc allows a function to be used as a Policy.
type PolicyFunc func(context.Context, Operation) error

// Eval calls f(ctx, op).
func (f PolicyFunc) Eval(ctx context.Context, op Operation) error {
	return f(ctx, op)
}
