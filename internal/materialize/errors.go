package materialize

import "fmt"

// CoercionWarning records a cell that could not be converted and was
// replaced by the field's zero value.
type CoercionWarning struct {
	// Row is the 1-based data row, not counting the header.
	Row   int
	Field string
	Value string
	Err   error
}

func (w CoercionWarning) Error() string {
	return fmt.Sprintf("row %d field %s: cannot use %q: %v", w.Row, w.Field, w.Value, w.Err)
}

func (w CoercionWarning) Unwrap() error { return w.Err }
