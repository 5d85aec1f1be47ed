package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/equipview/internal/equipment"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS datasets (
		id              TEXT PRIMARY KEY,
		owner_id        TEXT NOT NULL,
		filename        TEXT NOT NULL,
		total_count     INTEGER NOT NULL,
		avg_flowrate    REAL NOT NULL DEFAULT 0,
		avg_pressure    REAL NOT NULL DEFAULT 0,
		avg_temperature REAL NOT NULL DEFAULT 0,
		created_at      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS datasets_owner_created_idx ON datasets (owner_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS equipment (
		id          TEXT PRIMARY KEY,
		dataset_id  TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		name        TEXT NOT NULL,
		type        TEXT NOT NULL,
		flowrate    REAL,
		pressure    REAL,
		temperature REAL
	)`,
	`CREATE INDEX IF NOT EXISTS equipment_dataset_idx ON equipment (dataset_id, position)`,
}

// SQLite is a Store backed by a local SQLite file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path + "?_foreign_keys=1&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables and indexes if they do not exist.
func (s *SQLite) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLite) InsertDataset(ctx context.Context, nd equipment.NewDataset) (equipment.Dataset, error) {
	ds := equipment.Dataset{
		ID:             uuid.New().String(),
		OwnerID:        nd.OwnerID,
		Filename:       nd.Filename,
		TotalCount:     nd.TotalCount,
		AvgFlowrate:    nd.AvgFlowrate,
		AvgPressure:    nd.AvgPressure,
		AvgTemperature: nd.AvgTemperature,
		CreatedAt:      s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO datasets (id, owner_id, filename, total_count, avg_flowrate, avg_pressure, avg_temperature, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.OwnerID, ds.Filename, ds.TotalCount,
		ds.AvgFlowrate, ds.AvgPressure, ds.AvgTemperature, ds.CreatedAt.UnixNano(),
	)
	if err != nil {
		return equipment.Dataset{}, fmt.Errorf("insert dataset: %w", err)
	}
	return ds, nil
}

func (s *SQLite) GetDataset(ctx context.Context, id string) (equipment.Dataset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, filename, total_count, avg_flowrate, avg_pressure, avg_temperature, created_at
		FROM datasets WHERE id = ?`, id)

	ds, err := scanSQLiteDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return equipment.Dataset{}, ErrNotFound
	}
	if err != nil {
		return equipment.Dataset{}, fmt.Errorf("get dataset: %w", err)
	}
	return ds, nil
}

func (s *SQLite) ListRecentDatasets(ctx context.Context, ownerID string, limit int) ([]equipment.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, filename, total_count, avg_flowrate, avg_pressure, avg_temperature, created_at
		FROM datasets
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var result []equipment.Dataset
	for rows.Next() {
		ds, err := scanSQLiteDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		result = append(result, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return result, nil
}

func (s *SQLite) DeleteDataset(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertEquipment writes the batch inside one transaction.
func (s *SQLite) InsertEquipment(ctx context.Context, datasetID string, records []equipment.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT 1 FROM datasets WHERE id = ?`, datasetID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
			return err
		}
		return fmt.Errorf("check dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO equipment (id, dataset_id, position, name, type, flowrate, pressure, temperature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err = stmt.ExecContext(ctx,
			uuid.New().String(), datasetID, i, r.Name, r.Type,
			r.Flowrate, r.Pressure, r.Temperature,
		); err != nil {
			return fmt.Errorf("insert equipment row %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLite) ListEquipment(ctx context.Context, datasetID string) ([]equipment.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, flowrate, pressure, temperature
		FROM equipment
		WHERE dataset_id = ?
		ORDER BY position`,
		datasetID,
	)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	result := make([]equipment.Record, 0)
	for rows.Next() {
		var (
			r                  equipment.Record
			flow, press, temp sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &flow, &press, &temp); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		r.Flowrate = nullFloat(flow)
		r.Pressure = nullFloat(press)
		r.Temperature = nullFloat(temp)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	return result, nil
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping checks the database handle.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanSQLiteDataset(row rowScanner) (equipment.Dataset, error) {
	var (
		ds      equipment.Dataset
		created int64
	)
	err := row.Scan(
		&ds.ID, &ds.OwnerID, &ds.Filename, &ds.TotalCount,
		&ds.AvgFlowrate, &ds.AvgPressure, &ds.AvgTemperature, &created,
	)
	if err != nil {
		return equipment.Dataset{}, err
	}
	ds.CreatedAt = time.Unix(0, created).UTC()
	return ds, nil
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
