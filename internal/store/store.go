// Package store persists datasets and their equipment records.
//
// Two collections are exposed: datasets (parent rows, one per upload) and
// equipment (child rows referencing a dataset). Deleting a dataset removes
// its equipment rows; every backend enforces that cascade.
//
// Backends:
//
//   - Postgres: pgx connection pool, COPY for the equipment batch
//   - SQLite: database/sql with mattn/go-sqlite3, for single-node installs
//   - Memory: process-local maps, for development and tests
package store

import (
	"context"
	"errors"

	"github.com/JonMunkholm/equipview/internal/equipment"
)

// ErrNotFound is returned when a dataset does not exist or belongs to a
// different owner.
var ErrNotFound = errors.New("dataset not found")

// Store is the record store consumed by the dataset lifecycle.
type Store interface {
	// InsertDataset creates a dataset row and returns it with its ID and
	// CreatedAt assigned.
	InsertDataset(ctx context.Context, ds equipment.NewDataset) (equipment.Dataset, error)

	// GetDataset returns a dataset by ID, or ErrNotFound.
	GetDataset(ctx context.Context, id string) (equipment.Dataset, error)

	// ListRecentDatasets returns an owner's most recent datasets, newest first.
	ListRecentDatasets(ctx context.Context, ownerID string, limit int) ([]equipment.Dataset, error)

	// DeleteDataset removes an owner's dataset and its equipment rows.
	// Returns ErrNotFound if nothing was deleted.
	DeleteDataset(ctx context.Context, ownerID, id string) error

	// InsertEquipment writes all records for a dataset in a single batch.
	InsertEquipment(ctx context.Context, datasetID string, records []equipment.Record) error

	// ListEquipment returns the records of a dataset in insertion order.
	ListEquipment(ctx context.Context, datasetID string) ([]equipment.Record, error)

	// Close releases the backend's resources.
	Close() error
}
