package ingest

import (
	"errors"
	"fmt"
)

// Parse failures. All of them reject the upload before anything is persisted.
var (
	// ErrEmptyFile means the input has no header plus data row.
	ErrEmptyFile = errors.New("empty file: a header row and at least one data row are required")

	// ErrMissingColumn is matched by every *MissingColumnError.
	ErrMissingColumn = errors.New("missing required column")

	// ErrNoValidRecords means every data row was skipped.
	ErrNoValidRecords = errors.New("no valid records: every data row was empty or malformed")
)

// MissingColumnError reports a required semantic field that no header cell
// matched.
type MissingColumnError struct {
	Field Field
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s %q", ErrMissingColumn.Error(), e.Field)
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}
