// Package errs defines the error kinds raised by the query builder,
// the migration engine and the connection layer.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds. Match them with errors.Is.
var (
	// ErrQuery indicates an invalid query request.
	ErrQuery = errors.New("baseorm: query error")

	// ErrUnknownField indicates an update naming an undeclared field.
	ErrUnknownField = fmt.Errorf("%w: unknown field", ErrQuery)

	// ErrNotFound indicates that a single-record fetch matched nothing.
	ErrNotFound = errors.New("baseorm: record not found")

	// ErrMultipleFound indicates that a single-record fetch matched more than one row.
	ErrMultipleFound = errors.New("baseorm: multiple records found")

	// ErrIndexOutOfRange indicates positional access past the end of the result.
	ErrIndexOutOfRange = errors.New("baseorm: index out of range")

	// ErrMigration indicates a failed or impossible migration step.
	ErrMigration = errors.New("baseorm: migration error")

	// ErrIntegrity indicates a constraint violation reported by the engine.
	ErrIntegrity = errors.New("baseorm: integrity error")

	// ErrConnection indicates any other engine failure.
	ErrConnection = errors.New("baseorm: connection error")

	// ErrValidation indicates field values rejected before reaching the engine.
	ErrValidation = errors.New("baseorm: validation error")
)

// Error carries the context of a failure: the operation, and for engine
// errors the statement and its parameters.
type Error struct {
	Kind    error
	Op      string
	Message string
	SQL     string
	Params  []any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Op != "" {
		b.WriteString(" [")
		b.WriteString(e.Op)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.SQL != "" {
		fmt.Fprintf(&b, " (sql: %s, params: %v)", e.SQL, e.Params)
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an Error of the given kind.
func New(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around err.
func Wrap(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithStatement attaches the failing statement.
func (e *Error) WithStatement(sql string, params []any) *Error {
	e.SQL = sql
	e.Params = params
	return e
}

// Statement returns the SQL and parameters attached to err, if any.
func Statement(err error) (string, []any, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", nil, false
	}
	if e.SQL != "" {
		return e.SQL, e.Params, true
	}
	if e.Err != nil {
		return Statement(e.Err)
	}
	return "", nil, false
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsMultipleFound reports whether err is ErrMultipleFound.
func IsMultipleFound(err error) bool { return errors.Is(err, ErrMultipleFound) }

// IsUnknownField reports whether err is ErrUnknownField.
func IsUnknownField(err error) bool { return errors.Is(err, ErrUnknownField) }

// IsIndexOutOfRange reports whether err is ErrIndexOutOfRange.
func IsIndexOutOfRange(err error) bool { return errors.Is(err, ErrIndexOutOfRange) }

// IsMigration reports whether err is ErrMigration.
func IsMigration(err error) bool { return errors.Is(err, ErrMigration) }

// IsIntegrity reports whether err is ErrIntegrity.
func IsIntegrity(err error) bool { return errors.Is(err, ErrIntegrity) }

// IsConnection reports whether err is ErrConnection.
func IsConnection(err error) bool { return errors.Is(err, ErrConnection) }

// IsValidation reports whether err is ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
