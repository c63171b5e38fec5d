package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// dirMissingError reports a bundle directory that does not exist.
type dirMissingError struct{ dir string }

func (e dirMissingError) Error() string { return fmt.Sprintf("model directory %q does not exist", e.dir) }
func (e dirMissingError) Unwrap() error { return fs.ErrNotExist }

// notFoundError reports a required bundle file that is missing or ambiguous.
type notFoundError struct {
	kind    Kind
	dir     string
	matches []string
}

func (e notFoundError) Error() string {
	if len(e.matches) > 1 {
		return fmt.Sprintf("artifact not found: ambiguous %s in %s (%s)", e.kind, e.dir, strings.Join(e.matches, ", "))
	}
	return fmt.Sprintf("artifact not found: no %s (%s) in %s", e.kind, e.kind.Pattern(), e.dir)
}

// ErrNotFound returns an error naming the missing artifact kind.
func ErrNotFound(kind Kind, dir string, matches ...string) error {
	return notFoundError{kind: kind, dir: dir, matches: matches}
}

// IsNotFound reports whether err indicates a missing or ambiguous artifact.
func IsNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf)
}

// MissingKind returns the artifact kind named by a not-found error.
func MissingKind(err error) (Kind, bool) {
	var nf notFoundError
	if errors.As(err, &nf) {
		return nf.kind, true
	}
	return "", false
}
