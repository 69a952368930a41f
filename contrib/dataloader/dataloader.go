// Package dataloader batches the lookups of GraphQL relation resolvers
// into one engine query per batch.
//
// A Loader reads the records of a model whose field matches a batch of
// keys. Its BatchFunc plugs into any DataLoader implementation, such as
// github.com/graph-gophers/dataloader/v7 or github.com/vikstrous/dataloadgen:
//
//	authors := &dataloader.Loader[int]{Engine: client.Engine(), Model: "User", Field: "id"}
//	loader := dataloadgen.NewLoader(authors.BatchFunc())
//
// Loaders are created per request and reach the resolvers through the
// context:
//
//	ctx = dataloader.WithLoaders(ctx, &Loaders{Authors: loader})
//	loaders := dataloader.For[*Loaders](ctx)
package dataloader

import (
	"context"
	"errors"
	"slices"

	"github.com/syssam/quarry/engine"
	ql "github.com/syssam/quarry/querylanguage"
)

// ErrNotFound is returned for keys without a record in a batch result.
var ErrNotFound = errors.New("dataloader: record not found")

// KeyFunc extracts the key of a value.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc loads the values of a batch of keys. Results are in the
// order of the keys.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// Loader loads records of Model by the values of Field.
type Loader[K comparable] struct {
	Engine *engine.Engine
	Model  string
	Field  string
	// Query adds a filter, an order, a selection and includes to every
	// batch. Pagination is not applied per key and is ignored.
	Query *engine.Query
}

// Load returns the record of each key. Keys without a record get a nil
// record and ErrNotFound. A failed query fails every key.
func (l *Loader[K]) Load(ctx context.Context, keys []K) ([]*engine.Record, []error) {
	recs, err := l.Engine.FindMany(ctx, l.Model, l.query(keys))
	if err != nil {
		errs := make([]error, len(keys))
		for i := range errs {
			errs[i] = err
		}
		return make([]*engine.Record, len(keys)), errs
	}
	return OrderByKeys(keys, recs, l.key)
}

// LoadMany returns the records of each key, for to-many relations.
func (l *Loader[K]) LoadMany(ctx context.Context, keys []K) ([][]*engine.Record, error) {
	recs, err := l.Engine.FindMany(ctx, l.Model, l.query(keys))
	if err != nil {
		return nil, err
	}
	return OrderGroupsByKeys(keys, GroupByKey(recs, l.key)), nil
}

// BatchFunc returns Load as a BatchFunc.
func (l *Loader[K]) BatchFunc() BatchFunc[K, *engine.Record] {
	return l.Load
}

func (l *Loader[K]) key(r *engine.Record) K {
	return engine.Get[K](r, l.Field)
}

func (l *Loader[K]) query(keys []K) *engine.Query {
	seen := make(map[K]struct{}, len(keys))
	uniq := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			uniq = append(uniq, k)
		}
	}
	q := &engine.Query{Where: ql.FieldIn(l.Field, uniq...)}
	if l.Query != nil {
		q.Where = ql.And(l.Query.Where, q.Where)
		q.OrderBy, q.Include = l.Query.OrderBy, l.Query.Include
		if len(l.Query.Select) > 0 {
			q.Select = slices.Clone(l.Query.Select)
			if !slices.Contains(q.Select, l.Field) {
				q.Select = append(q.Select, l.Field)
			}
		}
	}
	return q
}

// OrderByKeys orders values by keys. Missing keys get the zero value and
// ErrNotFound.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// GroupByKey groups values by key.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys returns the group of each key.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

type ctxKey struct{}

// WithLoaders returns a context carrying the loaders of a request.
func WithLoaders[T any](ctx context.Context, loaders T) context.Context {
	return context.WithValue(ctx, ctxKey{}, loaders)
}

// For returns the loaders of the context.
func For[T any](ctx context.Context) T {
	v, _ := ctx.Value(ctxKey{}).(T)
	return v
}
