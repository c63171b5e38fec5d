package deps

import (
	"errors"
	"fmt"

	"golang.org/x/mod/module"
)

// FetchWarning records a dependency that could not be fetched or extracted.
// Resolution continues past it; callers decide whether it is fatal.
type FetchWarning struct {
	Module module.Version
	Err    error
}

func (w *FetchWarning) Error() string {
	return fmt.Sprintf("dependency %s: %v", w.Module, w.Err)
}

func (w *FetchWarning) Unwrap() error { return w.Err }

// IsFetchWarning reports whether err is or wraps a FetchWarning.
func IsFetchWarning(err error) bool {
	var w *FetchWarning
	return errors.As(err, &w)
}

// notFoundError is returned by fetchers when the repository has no zip for a module.
type notFoundError struct{ mod module.Version }

func (e notFoundError) Error() string { return "module not found in repository: " + e.mod.String() }

// ErrModuleNotFound constructs the error fetchers return for a missing module.
func ErrModuleNotFound(mod module.Version) error { return notFoundError{mod: mod} }

// IsModuleNotFound reports whether err indicates the repository lacks the module.
func IsModuleNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf)
}
