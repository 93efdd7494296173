package export

import (
	"errors"
	"fmt"
)

// ErrTooManyRows indicates a sheet would exceed the xlsx per-sheet row limit.
var ErrTooManyRows = errors.New("too many rows")

// ErrWrite indicates the workbook could not be written or saved.
var ErrWrite = errors.New("write failed")

// Stages reported by ColumnError.
const (
	StageTabulate = "tabulate"
	StageSheet    = "sheet"
	StageWrite    = "write"
	StageSave     = "save"
)

// ColumnError identifies the column and stage at which an export failed.
type ColumnError struct {
	Column string
	Sheet  string
	Stage  string
	Err    error
}

func (e *ColumnError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("export %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("export column %q (sheet %q, %s): %v", e.Column, e.Sheet, e.Stage, e.Err)
}

func (e *ColumnError) Unwrap() error {
	return e.Err
}

func newColumnError(column, sheet, stage string, err error) *ColumnError {
	return &ColumnError{Column: column, Sheet: sheet, Stage: stage, Err: err}
}
