package unit

import (
	"errors"
	"fmt"
	"strings"
)

// Diagnostic is one compiler message with its position in the descriptor.
type Diagnostic struct {
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	if d.Line == 0 {
		return d.Message
	}
	return fmt.Sprintf("line %d:%d: %s", d.Line, d.Column, d.Message)
}

// CompilationError is returned when the descriptor does not compile.
type CompilationError struct {
	File        string
	Diagnostics []Diagnostic
}

func (e *CompilationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "compile %s: %d error(s)", e.File, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	return b.String()
}

// IsCompilationError reports whether err is or wraps a CompilationError.
func IsCompilationError(err error) bool {
	var ce *CompilationError
	return errors.As(err, &ce)
}
