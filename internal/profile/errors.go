package profile

import (
	"errors"
	"fmt"
)

var (
	// ErrInconsistentRow indicates a row whose field set differs from the dataset columns.
	ErrInconsistentRow = errors.New("row does not match dataset columns")
	// ErrDuplicateColumn indicates a column name used more than once.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// StructuralError reports malformed input that violates the dataset invariants.
// Row is -1 when the problem is in the column list itself.
type StructuralError struct {
	Row    int
	Column string
	Err    error
}

func (e *StructuralError) Error() string {
	switch {
	case e.Row < 0:
		return fmt.Sprintf("malformed dataset: column %q: %v", e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("malformed dataset: row %d: column %q: %v", e.Row, e.Column, e.Err)
	default:
		return fmt.Sprintf("malformed dataset: row %d: %v", e.Row, e.Err)
	}
}

func (e *StructuralError) Unwrap() error { return e.Err }
