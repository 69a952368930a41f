package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/dialect/sql"
)

var (
	// ErrPendingMigrations is returned when an operation requires every
	// migration file to be applied.
	ErrPendingMigrations = errors.New("schema: pending migrations")

	// ErrChecksumMismatch is returned when the migration directory does
	// not match its sum file, or an applied file was modified.
	ErrChecksumMismatch = fmt.Errorf("schema: %w", migrate.ErrChecksumMismatch)

	// ErrDataLoss is returned when a push would drop data and data loss
	// was not accepted.
	ErrDataLoss = errors.New("schema: changes may cause data loss")
)

// Differ computes the changes between two schemas.
type Differ interface {
	Diff(current, desired *schema.Schema) ([]schema.Change, error)
}

// DiffFunc allows a function to be used as a Differ.
type DiffFunc func(current, desired *schema.Schema) ([]schema.Change, error)

// Diff calls f(current, desired).
func (f DiffFunc) Diff(current, desired *schema.Schema) ([]schema.Change, error) {
	return f(current, desired)
}

// DiffHook wraps the Differ of a Migrate.
type DiffHook func(Differ) Differ

// MigrateOption configures a Migrate.
type MigrateOption func(*Migrate)

// WithDir sets the migration directory.
func WithDir(dir migrate.Dir) MigrateOption {
	return func(m *Migrate) {
		m.dir = dir
	}
}

// WithLogger sets the logger reporting applied migrations.
func WithLogger(l *slog.Logger) MigrateOption {
	return func(m *Migrate) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRevisionTable sets the table recording applied migrations.
func WithRevisionTable(name string) MigrateOption {
	return func(m *Migrate) {
		if name != "" {
			m.revisions = name
		}
	}
}

// WithSchemaName sets the database schema to migrate. Empty means the
// schema of the connection.
func WithSchemaName(name string) MigrateOption {
	return func(m *Migrate) {
		m.schemaName = name
	}
}

// WithDropColumn sets whether columns missing from the tables are
// dropped. Enabled by default.
func WithDropColumn(b bool) MigrateOption {
	return func(m *Migrate) {
		m.dropColumn = b
	}
}

// WithDropIndex sets whether indexes missing from the tables are
// dropped. Enabled by default.
func WithDropIndex(b bool) MigrateOption {
	return func(m *Migrate) {
		m.dropIndex = b
	}
}

// WithDiffHook adds a hook around the schema differ.
func WithDiffHook(hooks ...DiffHook) MigrateOption {
	return func(m *Migrate) {
		m.diffHooks = append(m.diffHooks, hooks...)
	}
}

// Migrate runs migrations on a database.
type Migrate struct {
	drv        *sql.Driver
	atlas      migrate.Driver
	dir        migrate.Dir
	logger     *slog.Logger
	revisions  string
	schemaName string
	dropColumn bool
	dropIndex  bool
	diffHooks  []DiffHook
	now        func() time.Time
}

// NewMigrate returns a Migrate for the database of drv.
func NewMigrate(drv *sql.Driver, opts ...MigrateOption) (*Migrate, error) {
	m := &Migrate{
		drv:        drv,
		logger:     slog.Default(),
		revisions:  DefaultRevisionTable,
		dropColumn: true,
		dropIndex:  true,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	var err error
	if m.atlas, err = openAtlas(drv.Dialect(), drv.DB()); err != nil {
		return nil, err
	}
	return m, nil
}

func openAtlas(d string, db schema.ExecQuerier) (migrate.Driver, error) {
	var (
		drv migrate.Driver
		err error
	)
	switch d {
	case dialect.Postgres:
		drv, err = postgres.Open(db)
	case dialect.MySQL:
		drv, err = mysql.Open(db)
	case dialect.SQLite:
		drv, err = sqlite.Open(db)
	default:
		return nil, fmt.Errorf("schema: unsupported dialect %q", d)
	}
	if err != nil {
		return nil, fmt.Errorf("schema: opening %s migration driver: %w", d, err)
	}
	return drv, nil
}

// Dialect returns the dialect of the migrated database.
func (m *Migrate) Dialect() string {
	return m.drv.Dialect()
}

// Dir returns the migration directory, or nil.
func (m *Migrate) Dir() migrate.Dir {
	return m.dir
}

// Current inspects the database, leaving out the revision table.
func (m *Migrate) Current(ctx context.Context) (*schema.Schema, error) {
	s, err := m.atlas.InspectSchema(ctx, m.schemaName, nil)
	if err != nil {
		return nil, fmt.Errorf("schema: inspecting database: %w", err)
	}
	s.Tables = slices.DeleteFunc(s.Tables, func(t *schema.Table) bool {
		return t.Name == m.revisions || t.Name == "sqlite_sequence"
	})
	return s, nil
}

// changes returns the schema changes turning the database into tables.
func (m *Migrate) changes(ctx context.Context, tables []*Table) ([]schema.Change, error) {
	if res := ValidateSchema(tables); res.HasErrors() {
		return nil, fmt.Errorf("schema: invalid tables:\n%s", res)
	}
	current, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	desired, err := toAtlas(m.Dialect(), current.Name, tables)
	if err != nil {
		return nil, err
	}
	var differ Differ = DiffFunc(func(current, desired *schema.Schema) ([]schema.Change, error) {
		return m.atlas.SchemaDiff(current, desired)
	})
	for i := len(m.diffHooks) - 1; i >= 0; i-- {
		differ = m.diffHooks[i](differ)
	}
	changes, err := differ.Diff(current, desired)
	if err != nil {
		return nil, fmt.Errorf("schema: computing diff: %w", err)
	}
	return m.filter(changes), nil
}

// filter removes the drops disabled by the options.
func (m *Migrate) filter(changes []schema.Change) []schema.Change {
	if m.dropColumn && m.dropIndex {
		return changes
	}
	out := make([]schema.Change, 0, len(changes))
	for _, c := range changes {
		mt, ok := c.(*schema.ModifyTable)
		if !ok {
			out = append(out, c)
			continue
		}
		mt.Changes = slices.DeleteFunc(mt.Changes, func(c schema.Change) bool {
			switch c.(type) {
			case *schema.DropColumn:
				return !m.dropColumn
			case *schema.DropIndex:
				return !m.dropIndex
			}
			return false
		})
		if len(mt.Changes) > 0 {
			out = append(out, mt)
		}
	}
	return out
}

func (m *Migrate) planOptions() []migrate.PlanOption {
	if m.schemaName != "" {
		return nil
	}
	// An empty qualifier plans statements without schema names.
	return []migrate.PlanOption{func(o *migrate.PlanOptions) {
		o.SchemaQualifier = new(string)
	}}
}

// Diff returns the statements that turn the database into tables.
func (m *Migrate) Diff(ctx context.Context, tables ...*Table) ([]*migrate.Change, error) {
	plan, err := m.plan(ctx, "changes", tables)
	if err != nil || plan == nil {
		return nil, err
	}
	return plan.Changes, nil
}

func (m *Migrate) plan(ctx context.Context, name string, tables []*Table) (*migrate.Plan, error) {
	changes, err := m.changes(ctx, tables)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, nil
	}
	plan, err := m.atlas.PlanChanges(ctx, name, changes, m.planOptions()...)
	if err != nil {
		return nil, fmt.Errorf("schema: planning changes: %w", err)
	}
	return plan, nil
}

// NamedDiff writes the statements that turn the database into tables as
// a new migration file and returns its name. Nothing is written when the
// database is up to date.
func (m *Migrate) NamedDiff(ctx context.Context, name string, tables ...*Table) (string, error) {
	if m.dir == nil {
		return "", errors.New("schema: no migration directory configured")
	}
	if err := m.validateDir(); err != nil {
		return "", err
	}
	plan, err := m.plan(ctx, name, tables)
	if err != nil || plan == nil {
		return "", err
	}
	if plan.Version, err = m.nextVersion(); err != nil {
		return "", err
	}
	pl := migrate.NewPlanner(m.atlas, m.dir, migrate.PlanFormat(migrate.DefaultFormatter))
	if err := pl.WritePlan(plan); err != nil {
		return "", fmt.Errorf("schema: writing migration: %w", err)
	}
	file := plan.Version + ".sql"
	if name != "" {
		file = plan.Version + "_" + name + ".sql"
	}
	m.logger.Info("migration created", "file", file, "statements", len(plan.Changes))
	return file, nil
}

// nextVersion returns a timestamp version greater than every file in the
// directory.
func (m *Migrate) nextVersion() (string, error) {
	v := m.now().UTC().Format("20060102150405")
	files, err := m.dir.Files()
	if err != nil {
		return "", fmt.Errorf("schema: reading migration directory: %w", err)
	}
	if len(files) == 0 {
		return v, nil
	}
	last := files[len(files)-1].Version()
	if last < v || len(last) != len(v) {
		return v, nil
	}
	n, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return v, nil
	}
	return strconv.FormatInt(n+1, 10), nil
}

func (m *Migrate) validateDir() error {
	if err := migrate.Validate(m.dir); err != nil {
		if errors.Is(err, migrate.ErrChecksumMismatch) {
			return ErrChecksumMismatch
		}
		return fmt.Errorf("schema: validating migration directory: %w", err)
	}
	return nil
}

// Dev applies pending migrations, writes the remaining difference to
// tables as a new migration and applies it unless createOnly is set.
func (m *Migrate) Dev(ctx context.Context, name string, createOnly bool, tables ...*Table) (string, error) {
	if _, err := m.Deploy(ctx); err != nil {
		return "", err
	}
	file, err := m.NamedDiff(ctx, name, tables...)
	if err != nil || file == "" || createOnly {
		return file, err
	}
	if _, err := m.Deploy(ctx); err != nil {
		return file, err
	}
	return file, nil
}

// Push applies the changes turning the database into tables without
// writing migration files. Destructive changes are rejected with
// ErrDataLoss unless acceptDataLoss is set.
func (m *Migrate) Push(ctx context.Context, acceptDataLoss bool, tables ...*Table) (*ValidationResult, error) {
	changes, err := m.changes(ctx, tables)
	if err != nil {
		return nil, err
	}
	res := ValidateChanges(changes)
	if res.HasBreakingChanges() && !acceptDataLoss {
		return res, fmt.Errorf("%w:\n%s", ErrDataLoss, res)
	}
	if len(changes) == 0 {
		return res, nil
	}
	if err := m.atlas.ApplyChanges(ctx, changes, m.planOptions()...); err != nil {
		return res, fmt.Errorf("schema: applying changes: %w", err)
	}
	m.logger.Info("database pushed", "changes", len(changes))
	return res, nil
}

// Reset drops every table, the revision table included, and applies all
// migration files.
func (m *Migrate) Reset(ctx context.Context) ([]*Revision, error) {
	current, err := m.atlas.InspectSchema(ctx, m.schemaName, nil)
	if err != nil {
		return nil, fmt.Errorf("schema: inspecting database: %w", err)
	}
	current.Tables = slices.DeleteFunc(current.Tables, func(t *schema.Table) bool {
		return t.Name == "sqlite_sequence"
	})
	changes, err := m.atlas.SchemaDiff(current, schema.New(current.Name))
	if err != nil {
		return nil, fmt.Errorf("schema: computing reset: %w", err)
	}
	if len(changes) > 0 {
		if err := m.atlas.ApplyChanges(ctx, changes, m.planOptions()...); err != nil {
			return nil, fmt.Errorf("schema: dropping tables: %w", err)
		}
	}
	m.logger.Info("database reset", "tables", len(current.Tables))
	if m.dir == nil {
		return nil, nil
	}
	return m.Deploy(ctx)
}
