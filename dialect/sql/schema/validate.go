package schema

import (
	"fmt"
	"strings"

	"ariga.io/atlas/sql/schema"
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking indicates if this is a breaking change.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of schema validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// HasBreakingChanges returns true if there are any breaking changes.
func (r *ValidationResult) HasBreakingChanges() bool {
	for _, e := range r.Errors {
		if e.Breaking {
			return true
		}
	}
	for _, w := range r.Warnings {
		if w.Breaking {
			return true
		}
	}
	return false
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			if e.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			if w.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateOption configures change validation.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	allowDropColumn    bool
	allowDropTable     bool
	allowDropIndex     bool
	allowNullToNotNull bool
}

// AllowDropColumn reports dropped columns as warnings.
func AllowDropColumn() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropColumn = true
	}
}

// AllowDropTable reports dropped tables as warnings.
func AllowDropTable() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropTable = true
	}
}

// AllowDropIndex reports dropped indexes as warnings.
func AllowDropIndex() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropIndex = true
	}
}

// AllowNullToNotNull reports nullable columns becoming required as
// warnings.
func AllowNullToNotNull() ValidateOption {
	return func(c *validateConfig) {
		c.allowNullToNotNull = true
	}
}

// ValidateChanges reports the planned changes that may lose data or fail
// on existing rows. Breaking changes are errors unless allowed by an
// option, in which case they are reported as breaking warnings.
//
//	res := schema.ValidateChanges(changes)
//	if res.HasBreakingChanges() {
//		return fmt.Errorf("refusing to push:\n%s", res)
//	}
func ValidateChanges(changes []schema.Change, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &ValidationResult{}
	report := func(allowed bool, err *ValidationError) {
		if allowed {
			result.Warnings = append(result.Warnings, err)
		} else {
			result.Errors = append(result.Errors, err)
		}
	}
	for _, c := range changes {
		switch c := c.(type) {
		case *schema.DropTable:
			report(cfg.allowDropTable, &ValidationError{
				Table:    c.T.Name,
				Message:  "table will be dropped",
				Breaking: true,
			})
		case *schema.ModifyTable:
			validateTableChanges(c.T, c.Changes, cfg, result, report)
		}
	}
	return result
}

func validateTableChanges(t *schema.Table, changes []schema.Change, cfg *validateConfig, result *ValidationResult, report func(bool, *ValidationError)) {
	for _, c := range changes {
		switch c := c.(type) {
		case *schema.DropColumn:
			report(cfg.allowDropColumn, &ValidationError{
				Table:    t.Name,
				Column:   c.C.Name,
				Message:  "column will be dropped",
				Breaking: true,
			})
		case *schema.AddColumn:
			if !c.C.Type.Null && c.C.Default == nil {
				result.Warnings = append(result.Warnings, &ValidationError{
					Table:   t.Name,
					Column:  c.C.Name,
					Message: "new NOT NULL column without default value may fail if table has data",
				})
			}
		case *schema.ModifyColumn:
			if c.Change.Is(schema.ChangeType) {
				result.Warnings = append(result.Warnings, &ValidationError{
					Table:   t.Name,
					Column:  c.To.Name,
					Message: fmt.Sprintf("column type changing from %s to %s", typeName(c.From), typeName(c.To)),
				})
			}
			if c.Change.Is(schema.ChangeNull) && c.From.Type.Null && !c.To.Type.Null {
				report(cfg.allowNullToNotNull, &ValidationError{
					Table:    t.Name,
					Column:   c.To.Name,
					Message:  "column changing from NULL to NOT NULL may fail if column has NULL values",
					Breaking: true,
				})
			}
		case *schema.DropIndex:
			report(cfg.allowDropIndex, &ValidationError{
				Table:   t.Name,
				Message: fmt.Sprintf("index %q will be dropped", c.I.Name),
			})
		case *schema.AddIndex:
			if c.I.Unique {
				result.Warnings = append(result.Warnings, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("adding unique index %q may fail if duplicate values exist", c.I.Name),
				})
			}
		}
	}
}

func typeName(c *schema.Column) string {
	if c.Type == nil || c.Type.Type == nil {
		return "unknown"
	}
	if raw := c.Type.Raw; raw != "" {
		return raw
	}
	return fmt.Sprintf("%T", c.Type.Type)
}

// ValidateTable validates a single table definition.
func ValidateTable(t *Table) *ValidationResult {
	result := &ValidationResult{}

	// Check for primary key
	if len(t.PrimaryKey) == 0 {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   t.Name,
			Message: "table has no primary key",
		})
	}

	// Check for duplicate column names
	colNames := make(map[string]bool)
	for _, c := range t.Columns {
		if colNames[c.Name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Column:  c.Name,
				Message: "duplicate column name",
			})
		}
		colNames[c.Name] = true
	}

	// Check for duplicate index names
	idxNames := make(map[string]bool)
	for _, idx := range t.Indexes {
		if idxNames[idx.Name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: fmt.Sprintf("duplicate index name: %s", idx.Name),
			})
		}
		idxNames[idx.Name] = true

		// Check that index columns exist
		for _, col := range idx.Columns {
			if col != nil && !colNames[col.Name] {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("index %q references non-existent column %q", idx.Name, col.Name),
				})
			}
		}
	}

	// Check foreign keys
	for _, fk := range t.ForeignKeys {
		// Check that FK columns exist
		for _, col := range fk.Columns {
			if col != nil && !colNames[col.Name] {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("foreign key references non-existent column %q", col.Name),
				})
			}
		}
	}

	return result
}

// ValidateSchema validates all tables in a schema.
func ValidateSchema(tables []*Table) *ValidationResult {
	result := &ValidationResult{}

	tableNames := make(map[string]bool)
	for _, t := range tables {
		// Check for duplicate table names
		if tableNames[t.Name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: "duplicate table name",
			})
		}
		tableNames[t.Name] = true

		// Validate individual table
		tableResult := ValidateTable(t)
		result.Errors = append(result.Errors, tableResult.Errors...)
		result.Warnings = append(result.Warnings, tableResult.Warnings...)
	}

	// Validate foreign key references
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			switch {
			case fk.RefTable == nil:
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("foreign key %q has no referenced table", fk.Symbol),
				})
			case !tableNames[fk.RefTable.Name]:
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("foreign key references non-existent table %q", fk.RefTable.Name),
				})
			case len(fk.Columns) != len(fk.RefColumns):
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("foreign key %q has %d columns and %d referenced columns", fk.Symbol, len(fk.Columns), len(fk.RefColumns)),
				})
			}
		}
	}

	return result
}
