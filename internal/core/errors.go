package core

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/equipview/internal/store"
)

var (
	// ErrUnauthorized is returned when an operation needs an authenticated actor.
	ErrUnauthorized = errors.New("unauthorized: sign in required")

	// ErrDatasetNotFound is store.ErrNotFound, re-exported for callers of core.
	ErrDatasetNotFound = store.ErrNotFound

	// ErrNotCSV is returned for uploads without a .csv extension.
	ErrNotCSV = errors.New("not a csv file")

	// ErrFileTooLarge is returned for uploads above the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// StoreError wraps a failed record store call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Persist phases.
const (
	PhaseDataset   = 1
	PhaseEquipment = 2
)

// PersistError reports which phase of an ingest write failed. After a
// PhaseEquipment failure the dataset row with DatasetID exists without its
// equipment rows.
type PersistError struct {
	Phase     int
	DatasetID string
	Err       error
}

func (e *PersistError) Error() string {
	if e.Phase == PhaseEquipment {
		return fmt.Sprintf("partial upload: dataset %s saved but equipment insert failed: %v", e.DatasetID, e.Err)
	}
	return fmt.Sprintf("save dataset: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Orphaned reports whether the failure left a dataset row behind.
func (e *PersistError) Orphaned() bool {
	return e.Phase == PhaseEquipment && e.DatasetID != ""
}
