package capability

import (
	"errors"
	"fmt"
	"strings"
)

// symbolNotFoundError reports a candidate name with no matching type.
type symbolNotFoundError struct{ name string }

func (e symbolNotFoundError) Error() string { return "entry symbol not found: " + e.name }

// ErrSymbolNotFound returns an error for a candidate that is not declared.
func ErrSymbolNotFound(name string) error { return symbolNotFoundError{name: name} }

// IsSymbolNotFound reports whether err indicates a missing entry type.
func IsSymbolNotFound(err error) bool {
	var e symbolNotFoundError
	return errors.As(err, &e)
}

// IntrospectionError reports an entry type without a usable prediction shape.
type IntrospectionError struct {
	Symbol string
	Reason string
	Want   []Capability
	Have   []Capability
}

func (e *IntrospectionError) Error() string {
	msg := fmt.Sprintf("introspect %s: %s", e.Symbol, e.Reason)
	if len(e.Want) > 0 {
		msg += fmt.Sprintf(" (want %s, have %s)", join(e.Want), join(e.Have))
	}
	return msg
}

// IsIntrospection reports whether err is or wraps an IntrospectionError.
func IsIntrospection(err error) bool {
	var e *IntrospectionError
	return errors.As(err, &e)
}

func join(cs []Capability) string {
	if len(cs) == 0 {
		return "none"
	}
	s := make([]string, len(cs))
	for i, c := range cs {
		s[i] = string(c)
	}
	return strings.Join(s, "|")
}
