package gen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/quarry/schema"
)

// Sentinel errors for common failure cases.
var (
	// ErrInvalidSchema indicates a schema definition error.
	ErrInvalidSchema = errors.New("quarry: invalid schema")
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("quarry: missing configuration")
	// ErrInvalidEdge indicates a relation definition error.
	ErrInvalidEdge = errors.New("quarry: invalid relation")
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("quarry: code generation failed")
)

// SchemaError represents a schema definition error.
type SchemaError struct {
	Pos     schema.Pos
	Type    string // Model or enum name
	Field   string // Field name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var b strings.Builder
	if e.Pos.Line > 0 {
		b.WriteString(e.Pos.String())
		b.WriteString(": ")
	}
	b.WriteString("quarry: schema error")
	if e.Type != "" {
		b.WriteString(" on ")
		b.WriteString(e.Type)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// NewSchemaError creates a new SchemaError.
func NewSchemaError(pos schema.Pos, typeName, fieldName, message string) *SchemaError {
	return &SchemaError{
		Pos:     pos,
		Type:    typeName,
		Field:   fieldName,
		Message: message,
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("quarry: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("quarry: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// EdgeError represents a relation error.
type EdgeError struct {
	Pos     schema.Pos
	From    string
	To      string
	Edge    string
	Message string
}

// Error implements the error interface.
func (e *EdgeError) Error() string {
	var b strings.Builder
	if e.Pos.Line > 0 {
		b.WriteString(e.Pos.String())
		b.WriteString(": ")
	}
	b.WriteString("quarry: relation error")
	if e.Edge != "" {
		b.WriteString(" on ")
		if e.From != "" {
			b.WriteString(e.From)
			b.WriteString(".")
		}
		b.WriteString(e.Edge)
	}
	if e.To != "" {
		fmt.Fprintf(&b, " (-> %s)", e.To)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches one of the sentinel errors
// for EdgeError. A relation error is also a schema error.
func (e *EdgeError) Is(target error) bool {
	return target == ErrInvalidEdge || target == ErrInvalidSchema
}

// NewEdgeError creates a new EdgeError.
func NewEdgeError(pos schema.Pos, from, to, edgeName, message string) *EdgeError {
	return &EdgeError{
		Pos:     pos,
		From:    from,
		To:      to,
		Edge:    edgeName,
		Message: message,
	}
}

// GenerationError represents a code generation error.
type GenerationError struct {
	Phase   string // "client", "model", "graphql", etc.
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("quarry: generation error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Phase:   phase,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// ValidationErrors collects every violation found while compiling a
// schema.
type ValidationErrors struct {
	Errors []error
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "quarry: invalid schema"
	case 1:
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "quarry: %d schema errors:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n\t")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Is reports whether the target is ErrInvalidSchema.
func (e *ValidationErrors) Is(target error) bool {
	return target == ErrInvalidSchema
}

// Unwrap returns the collected errors.
func (e *ValidationErrors) Unwrap() []error {
	return e.Errors
}

func (e *ValidationErrors) add(err error) {
	e.Errors = append(e.Errors, err)
}

// err returns nil when no error was collected.
func (e *ValidationErrors) err() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// IsSchemaError reports whether the error is a SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsEdgeError reports whether the error is an EdgeError.
func IsEdgeError(err error) bool {
	var edgeErr *EdgeError
	return errors.As(err, &edgeErr)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
