package schema

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/schema"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/dialect/sql"
)

// Revision is an applied migration file.
type Revision struct {
	Version       string
	Description   string
	Checksum      string
	AppliedAt     time.Time
	ExecutionTime time.Duration
}

// Status describes the migration directory relative to the database.
type Status struct {
	// Applied lists the applied migrations in version order.
	Applied []*Revision
	// Pending lists the files not applied yet.
	Pending []string
	// Modified lists applied files whose content changed.
	Modified []string
	// Missing lists applied versions without a file.
	Missing []string
}

// Clean reports whether every file is applied unchanged.
func (s *Status) Clean() bool {
	return len(s.Pending) == 0 && len(s.Modified) == 0 && len(s.Missing) == 0
}

// Checksum returns the checksum recorded for a migration file.
func Checksum(f migrate.File) string {
	sum := sha256.Sum256(f.Bytes())
	return hex.EncodeToString(sum[:])
}

// Status compares the migration directory with the revision table.
func (m *Migrate) Status(ctx context.Context) (*Status, error) {
	if m.dir == nil {
		return nil, fmt.Errorf("schema: no migration directory configured")
	}
	if err := m.validateDir(); err != nil {
		return nil, err
	}
	files, err := m.dir.Files()
	if err != nil {
		return nil, fmt.Errorf("schema: reading migration directory: %w", err)
	}
	exists, err := m.revisionsExist(ctx)
	if err != nil {
		return nil, err
	}
	var applied []*Revision
	if exists {
		if applied, err = m.readRevisions(ctx); err != nil {
			return nil, err
		}
	}
	st := &Status{Applied: applied}
	byVersion := make(map[string]*Revision, len(applied))
	for _, r := range applied {
		byVersion[r.Version] = r
	}
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Version()] = true
		r, ok := byVersion[f.Version()]
		switch {
		case !ok:
			st.Pending = append(st.Pending, f.Name())
		case r.Checksum != Checksum(f):
			st.Modified = append(st.Modified, f.Name())
		}
	}
	for _, r := range applied {
		if !seen[r.Version] {
			st.Missing = append(st.Missing, r.Version)
		}
	}
	return st, nil
}

// Deploy applies the pending migration files in version order and
// returns the new revisions.
func (m *Migrate) Deploy(ctx context.Context) ([]*Revision, error) {
	if m.dir == nil {
		return nil, fmt.Errorf("schema: no migration directory configured")
	}
	if err := m.validateDir(); err != nil {
		return nil, err
	}
	if err := m.createRevisions(ctx); err != nil {
		return nil, err
	}
	files, err := m.dir.Files()
	if err != nil {
		return nil, fmt.Errorf("schema: reading migration directory: %w", err)
	}
	applied, err := m.readRevisions(ctx)
	if err != nil {
		return nil, err
	}
	byVersion := make(map[string]*Revision, len(applied))
	for _, r := range applied {
		byVersion[r.Version] = r
	}
	var done []*Revision
	for _, f := range files {
		if r, ok := byVersion[f.Version()]; ok {
			if r.Checksum != Checksum(f) {
				return done, fmt.Errorf("%w: %s was modified after it was applied", ErrChecksumMismatch, f.Name())
			}
			continue
		}
		r, err := m.apply(ctx, f)
		if err != nil {
			return done, err
		}
		done = append(done, r)
	}
	return done, nil
}

// apply executes the statements of f and records it. Files run in a
// transaction where the dialect supports transactional DDL.
func (m *Migrate) apply(ctx context.Context, f migrate.File) (*Revision, error) {
	stmts, err := f.Stmts()
	if err != nil {
		return nil, fmt.Errorf("schema: reading %s: %w", f.Name(), err)
	}
	start := m.now()
	r := &Revision{Version: f.Version(), Description: f.Desc(), Checksum: Checksum(f)}
	var conn dialect.ExecQuerier = m.drv
	var tx dialect.Tx
	if m.transactional(f) {
		if tx, err = m.drv.Tx(ctx); err != nil {
			return nil, fmt.Errorf("schema: starting transaction: %w", err)
		}
		conn = tx
	}
	rollback := func(err error) error {
		if tx != nil {
			if rerr := tx.Rollback(); rerr != nil {
				err = fmt.Errorf("%w: rolling back: %v", err, rerr)
			}
		}
		return err
	}
	for _, stmt := range stmts {
		if err := conn.Exec(ctx, stmt, []any{}, nil); err != nil {
			return nil, rollback(fmt.Errorf("schema: applying %s: %w", f.Name(), err))
		}
	}
	r.AppliedAt = m.now().UTC().Truncate(time.Microsecond)
	r.ExecutionTime = r.AppliedAt.Sub(start.UTC())
	if err := m.writeRevision(ctx, conn, r); err != nil {
		return nil, rollback(err)
	}
	if tx != nil {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("schema: committing %s: %w", f.Name(), err)
		}
	}
	m.logger.Info("migration applied", "version", r.Version, "description", r.Description, "duration", r.ExecutionTime)
	return r, nil
}

func (m *Migrate) transactional(f migrate.File) bool {
	switch m.Dialect() {
	case dialect.MySQL:
		return false
	case dialect.SQLite:
		// Table rebuilds toggle foreign keys, which has no effect in a transaction.
		return !strings.Contains(strings.ToUpper(string(f.Bytes())), "PRAGMA FOREIGN_KEYS")
	default:
		return true
	}
}

func (m *Migrate) revisionsExist(ctx context.Context) (bool, error) {
	s, err := m.atlas.InspectSchema(ctx, m.schemaName, &schema.InspectOptions{Tables: []string{m.revisions}})
	if err != nil {
		return false, fmt.Errorf("schema: inspecting revision table: %w", err)
	}
	return len(s.Tables) > 0, nil
}

func (m *Migrate) createRevisions(ctx context.Context) error {
	d := m.Dialect()
	b := sql.NewBuilder(d).WriteString("CREATE TABLE IF NOT EXISTS ").Ident(m.revisions).WriteString(" (")
	b.Ident("version").WriteString(" varchar(255) NOT NULL PRIMARY KEY, ")
	b.Ident("description").WriteString(" " + pick(d, "text", "varchar(255)", "text") + " NOT NULL, ")
	b.Ident("checksum").WriteString(" varchar(64) NOT NULL, ")
	b.Ident("applied_at").WriteString(" " + pick(d, "timestamptz", "datetime(6)", "datetime") + " NOT NULL, ")
	b.Ident("execution_ms").WriteString(" bigint NOT NULL)")
	if err := m.drv.Exec(ctx, b.String(), []any{}, nil); err != nil {
		return fmt.Errorf("schema: creating revision table: %w", err)
	}
	return nil
}

func (m *Migrate) readRevisions(ctx context.Context) ([]*Revision, error) {
	sel := sql.Dialect(m.Dialect()).
		Select("version", "description", "checksum", "applied_at", "execution_ms").
		From(sql.Table(m.revisions)).
		OrderBy("version")
	query, args := sel.Query()
	rows := &sql.Rows{}
	if err := m.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("schema: reading revisions: %w", err)
	}
	defer rows.Close()
	var revs []*Revision
	for rows.Next() {
		var (
			r  Revision
			ms int64
		)
		if err := rows.Scan(&r.Version, &r.Description, &r.Checksum, &r.AppliedAt, &ms); err != nil {
			return nil, fmt.Errorf("schema: scanning revision: %w", err)
		}
		r.ExecutionTime = time.Duration(ms) * time.Millisecond
		revs = append(revs, &r)
	}
	return revs, rows.Err()
}

func (m *Migrate) writeRevision(ctx context.Context, conn dialect.ExecQuerier, r *Revision) error {
	ins := sql.Dialect(m.Dialect()).Insert(m.revisions).
		Columns("version", "description", "checksum", "applied_at", "execution_ms").
		Values(r.Version, r.Description, r.Checksum, r.AppliedAt, r.ExecutionTime.Milliseconds())
	query, args := ins.Query()
	if err := conn.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("schema: recording revision %s: %w", r.Version, err)
	}
	return nil
}
