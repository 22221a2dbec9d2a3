package etl

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn marks a structurally invalid input table.
	ErrMissingColumn = errors.New("missing required column")
	// ErrTableUnavailable marks a join input that failed to load.
	ErrTableUnavailable = errors.New("required table unavailable")
)

// SchemaError reports a column absent from an entire table. It is fatal for
// the batch, unlike per-record problems which become rejections.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s: %s %q", e.Table, ErrMissingColumn, e.Column)
}

func (e *SchemaError) Unwrap() error { return ErrMissingColumn }
