package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/dialect/sql/sqlgraph"
)

// DefaultIncludeWorkers is the number of relation loads that may run at
// the same time for one query.
const DefaultIncludeWorkers = 4

// DefaultIncludeBatch is the number of parent key values bound by one
// include query. It stays below the parameter limits of SQLite (32766),
// PostgreSQL and MySQL (65535).
const DefaultIncludeBatch = 30000

type config struct {
	logger   *slog.Logger
	cache    quarry.Cache
	cacheTTL time.Duration
	workers  int
	batch    int
	policy   quarry.Policy
}

// Option configures an Engine.
type Option func(*config)

// WithLogger sets the logger used for cache and transaction events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCache enables the read cache.
func WithCache(cache quarry.Cache) Option {
	return func(c *config) {
		c.cache = cache
	}
}

// WithCacheTTL sets the TTL of cached reads. Zero keeps them until a
// mutation invalidates them.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.cacheTTL = ttl
	}
}

// WithIncludeWorkers limits the concurrent relation loads of one query.
// Values below 1 load relations sequentially.
func WithIncludeWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithIncludeBatch sets the number of parent key values bound by one
// include query. Larger parent sets are loaded in several queries.
func WithIncludeBatch(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.batch = n
		}
	}
}

// WithPolicy sets the policy checked before every query and mutation.
func WithPolicy(p quarry.Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// Engine executes queries and mutations over the models of a schema.
// It is safe for concurrent use.
type Engine struct {
	drv     dialect.Driver
	conn    dialect.ExecQuerier
	dialect string
	schema  *Schema
	cfg     *config
	tx      *txState
}

// txState tracks the models written by a transaction.
type txState struct {
	tx      dialect.Tx
	mu      sync.Mutex
	touched map[string]struct{}
}

// New returns an engine that runs the schema on the driver.
func New(drv dialect.Driver, s *Schema, opts ...Option) (*Engine, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	cfg := &config{logger: slog.Default(), workers: DefaultIncludeWorkers, batch: DefaultIncludeBatch}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Engine{
		drv:     drv,
		conn:    drv,
		dialect: drv.Dialect(),
		schema:  s,
		cfg:     cfg,
	}, nil
}

// model returns the named model once the policy allowed op on it.
func (e *Engine) model(ctx context.Context, name string, op quarry.Op) (*Model, error) {
	m, err := e.schema.Model(name)
	if err != nil {
		return nil, err
	}
	if e.cfg.policy != nil {
		if err := e.cfg.policy.Eval(ctx, quarry.Operation{Model: m.Name, Op: op}); err != nil {
			e.cfg.logger.Debug("operation rejected by policy", "model", m.Name, "op", op, "error", err)
			return nil, err
		}
	}
	return m, nil
}

// Dialect returns the dialect of the underlying driver.
func (e *Engine) Dialect() string {
	return e.dialect
}

// Schema returns the schema the engine runs.
func (e *Engine) Schema() *Schema {
	return e.schema
}

// Driver returns the underlying driver.
func (e *Engine) Driver() dialect.Driver {
	return e.drv
}

// Close closes the underlying driver.
func (e *Engine) Close() error {
	return e.drv.Close()
}

// InTx reports whether the engine runs inside a transaction.
func (e *Engine) InTx() bool {
	return e.tx != nil
}

// Tx is an engine bound to a database transaction.
type Tx struct {
	*Engine
	done bool
}

// Tx starts a transaction. Starting a transaction from a transactional
// engine returns quarry.ErrTxStarted.
func (e *Engine) Tx(ctx context.Context) (*Tx, error) {
	if e.tx != nil {
		return nil, quarry.ErrTxStarted
	}
	tx, err := e.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: starting a transaction: %w", err)
	}
	child := *e
	child.conn = tx
	child.tx = &txState{tx: tx, touched: make(map[string]struct{})}
	return &Tx{Engine: &child}, nil
}

// Commit commits the transaction and invalidates the cached reads of the
// models it wrote.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.done {
		return errors.New("engine: transaction already finished")
	}
	tx.done = true
	if err := tx.tx.tx.Commit(); err != nil {
		return fmt.Errorf("engine: committing transaction: %w", err)
	}
	tx.tx.mu.Lock()
	models := make([]string, 0, len(tx.tx.touched))
	for m := range tx.tx.touched {
		models = append(models, m)
	}
	tx.tx.mu.Unlock()
	tx.invalidate(ctx, models...)
	return nil
}

// Rollback aborts the transaction.
func (tx *Tx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if err := tx.tx.tx.Rollback(); err != nil {
		return fmt.Errorf("engine: rolling back transaction: %w", err)
	}
	return nil
}

// Base returns a non-transactional engine sharing the configuration.
func (tx *Tx) Base() *Engine {
	base := *tx.Engine
	base.conn = base.drv
	base.tx = nil
	return &base
}

// withTx runs fn in a transaction. A transactional engine runs fn directly.
func (e *Engine) withTx(ctx context.Context, fn func(*Engine) error) error {
	if e.tx != nil {
		return fn(e)
	}
	tx, err := e.Tx(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx.Engine); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return &quarry.RollbackError{Err: fmt.Errorf("%w: %v", err, rerr)}
		}
		return err
	}
	return tx.Commit(ctx)
}

// ExecRaw executes a statement that returns no rows. Placeholders follow
// the dialect of the driver.
func (e *Engine) ExecRaw(ctx context.Context, query string, args ...any) (int64, error) {
	var res sql.Result
	if args == nil {
		args = []any{}
	}
	if err := e.conn.Exec(ctx, query, args, &res); err != nil {
		return 0, sqlgraph.WrapError(err)
	}
	e.invalidateAll(ctx)
	return res.RowsAffected()
}

// QueryRaw runs a query and returns its rows as column keyed maps.
func (e *Engine) QueryRaw(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if args == nil {
		args = []any{}
	}
	rows := &sql.Rows{}
	if err := e.conn.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return sql.ScanMaps(rows)
}

func (e *Engine) query(ctx context.Context, q sql.Querier) (*sql.Rows, error) {
	query, args := q.Query()
	rows := &sql.Rows{}
	if err := e.conn.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *Engine) exec(ctx context.Context, q sql.Querier) (sql.Result, error) {
	query, args := q.Query()
	var res sql.Result
	if err := e.conn.Exec(ctx, query, args, &res); err != nil {
		return nil, sqlgraph.WrapError(err)
	}
	return res, nil
}

func (e *Engine) builder() *sql.DialectBuilder {
	return sql.Dialect(e.dialect)
}

// touch records a write to the model. Outside transactions the cache is
// invalidated right away.
func (e *Engine) touch(ctx context.Context, model string) {
	if e.tx == nil {
		e.invalidate(ctx, model)
		return
	}
	e.tx.mu.Lock()
	e.tx.touched[model] = struct{}{}
	e.tx.mu.Unlock()
}

// invalidate drops the cached reads of the models and every model related
// to them, since cached reads may include their records.
func (e *Engine) invalidate(ctx context.Context, models ...string) {
	if e.cfg.cache == nil {
		return
	}
	seen := make(map[string]bool)
	for _, m := range models {
		for _, r := range e.schema.Related(m) {
			if seen[r] {
				continue
			}
			seen[r] = true
			if err := e.cfg.cache.DeletePrefix(ctx, quarry.CacheKey{Model: r}.Prefix()); err != nil {
				e.cfg.logger.WarnContext(ctx, "cache invalidation failed", "model", r, "error", err)
			}
		}
	}
}

func (e *Engine) invalidateAll(ctx context.Context) {
	if e.cfg.cache == nil {
		return
	}
	if e.tx != nil {
		for _, m := range e.schema.Models {
			e.touch(ctx, m.Name)
		}
		return
	}
	if err := e.cfg.cache.Clear(ctx); err != nil {
		e.cfg.logger.WarnContext(ctx, "cache clear failed", "error", err)
	}
}

// cacheKey returns the key of a read, or false if the read must not be
// cached.
func (e *Engine) cacheKey(m *Model, op string, q *Query) (string, bool) {
	if e.cfg.cache == nil || e.tx != nil {
		return "", false
	}
	k := quarry.CacheKey{Model: m.Name, Operation: op, Limit: q.Take, Offset: q.Skip}
	if q.Where != nil {
		k.Predicates = q.Where.String()
	}
	if !cacheable(k.Predicates) {
		return "", false
	}
	var sb strings.Builder
	for i, o := range q.OrderBy {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(o.String())
	}
	if len(q.Cursor) > 0 {
		sb.WriteString("@" + Unique(q.Cursor).String())
	}
	k.OrderBy = sb.String()
	k.Select = strings.Join(q.Select, ",")
	inc, ok := includeKey(q.Include)
	if !ok {
		return "", false
	}
	k.Include = inc
	return k.String(), true
}

// cacheable reports whether a predicate fingerprint identifies the
// predicate. Selector functions do not render their closure state.
func cacheable(fingerprint string) bool {
	return !strings.Contains(fingerprint, string(sqlgraph.FuncSelector))
}

func (e *Engine) cacheGet(ctx context.Context, m *Model, key string) ([]*Record, bool) {
	data, err := e.cfg.cache.Get(ctx, key)
	if err != nil {
		e.cfg.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		return nil, false
	}
	if data == nil {
		e.cfg.logger.DebugContext(ctx, "cache miss", "key", key)
		return nil, false
	}
	recs, err := e.schema.decodeRecords(m, data)
	if err != nil {
		e.cfg.logger.WarnContext(ctx, "cache decode failed", "key", key, "error", err)
		return nil, false
	}
	e.cfg.logger.DebugContext(ctx, "cache hit", "key", key)
	return recs, true
}

func (e *Engine) cacheSet(ctx context.Context, key string, recs []*Record) {
	data, err := encodeRecords(recs)
	if err != nil {
		e.cfg.logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}
	if err := e.cfg.cache.Set(ctx, key, data, e.cfg.cacheTTL); err != nil {
		e.cfg.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

func queryError(m, op string, err error) error {
	if err == nil || quarry.IsNotFound(err) || quarry.IsValidationError(err) || errors.Is(err, quarry.ErrEmptyUnique) {
		return err
	}
	var qe *quarry.QueryError
	if errors.As(err, &qe) {
		return err
	}
	return quarry.NewQueryError(m, op, err)
}

func mutationError(m, op string, err error) error {
	if err == nil || quarry.IsNotFound(err) || quarry.IsValidationError(err) || errors.Is(err, quarry.ErrEmptyUnique) {
		return err
	}
	var me *quarry.MutationError
	if errors.As(err, &me) {
		return err
	}
	return quarry.NewMutationError(m, op, sqlgraph.WrapError(err))
}
