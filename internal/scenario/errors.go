package scenario

import (
	"errors"
	"fmt"
	"strings"

	"mlpredict/internal/symbol"
)

// unsupportedScenarioError reports a scenario tag with no registered handler.
type unsupportedScenarioError struct{ tag string }

func (e unsupportedScenarioError) Error() string { return "unsupported scenario: " + e.tag }

// ErrUnsupportedScenario constructs an unsupported scenario error.
func ErrUnsupportedScenario(tag string) error { return unsupportedScenarioError{tag: tag} }

// IsUnsupportedScenario reports whether err indicates an unknown scenario.
func IsUnsupportedScenario(err error) bool {
	var e unsupportedScenarioError
	return errors.As(err, &e)
}

// inputError marks a failure reading or interpreting the input data. It is
// not the entry symbol's fault, so the dispatcher does not try other candidates.
type inputError struct{ err error }

func (e inputError) Error() string { return e.err.Error() }
func (e inputError) Unwrap() error { return e.err }

// ErrInput wraps err as an input error.
func ErrInput(err error) error { return inputError{err: err} }

// ErrInputf formats an input error.
func ErrInputf(format string, args ...any) error { return inputError{err: fmt.Errorf(format, args...)} }

// IsInput reports whether err is an input error.
func IsInput(err error) bool {
	var e inputError
	return errors.As(err, &e)
}

// Attempt records one candidate tried by the dispatcher.
type Attempt struct {
	Candidate symbol.Candidate
	Err       error
}

// FallbackExhaustedError is returned when every candidate failed.
type FallbackExhaustedError struct {
	Scenario string
	Attempts []Attempt
}

func (e *FallbackExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s (%s): %v", a.Candidate.Name, a.Candidate.Step, a.Err)
	}
	return fmt.Sprintf("no usable entry symbol for %s after %d candidate(s): %s", e.Scenario, len(e.Attempts), strings.Join(parts, "; "))
}

func (e *FallbackExhaustedError) Unwrap() []error {
	out := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Err
	}
	return out
}

// IsFallbackExhausted reports whether err is a FallbackExhaustedError.
func IsFallbackExhausted(err error) bool {
	var e *FallbackExhaustedError
	return errors.As(err, &e)
}
