package field

import (
	"errors"
	"fmt"
)

// DiagnosticCode categorizes advisory diagnostics.
type DiagnosticCode string

const (
	// CodeUndeclaredRead: a recompute driver read a field it did not
	// declare as a dependency. Over-declaring is always safe; the
	// check keeps declarations accurate.
	CodeUndeclaredRead DiagnosticCode = "UNDECLARED_READ"
)

// Diagnostic is an advisory (non-fatal) finding from the engine.
// Fatal conditions - stale reads, dirty dependencies, cycles - panic
// instead; they are bugs in the integration, not runtime conditions.
type Diagnostic struct {
	Code    DiagnosticCode
	Field   string // the field that was read
	Reader  string // the field whose driver performed the read
	Message string
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s reads %s: %s", d.Code, d.Reader, d.Field, d.Message)
}

// IsUndeclaredRead reports whether err is an undeclared-read
// diagnostic. Uses errors.As to handle wrapped errors.
func IsUndeclaredRead(err error) bool {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Code == CodeUndeclaredRead
	}
	return false
}
