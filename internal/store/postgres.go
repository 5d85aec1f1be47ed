package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/equipview/internal/equipment"
)

// DBTX is the subset of pgx used by the Postgres store.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS datasets (
		id              uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id        text NOT NULL,
		filename        text NOT NULL,
		total_count     integer NOT NULL,
		avg_flowrate    double precision NOT NULL DEFAULT 0,
		avg_pressure    double precision NOT NULL DEFAULT 0,
		avg_temperature double precision NOT NULL DEFAULT 0,
		created_at      timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS datasets_owner_created_idx ON datasets (owner_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS equipment (
		id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		dataset_id  uuid NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
		position    integer NOT NULL,
		name        text NOT NULL,
		type        text NOT NULL,
		flowrate    double precision,
		pressure    double precision,
		temperature double precision
	)`,
	`CREATE INDEX IF NOT EXISTS equipment_dataset_idx ON equipment (dataset_id, position)`,
}

var equipmentCopyColumns = []string{
	"dataset_id", "position", "name", "type", "flowrate", "pressure", "temperature",
}

const datasetColumns = `id::text, owner_id, filename, total_count,
	avg_flowrate, avg_pressure, avg_temperature, created_at`

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, db: pool}
}

// Migrate creates the tables and indexes if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) InsertDataset(ctx context.Context, nd equipment.NewDataset) (equipment.Dataset, error) {
	row := p.db.QueryRow(ctx, `
		INSERT INTO datasets (owner_id, filename, total_count, avg_flowrate, avg_pressure, avg_temperature)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+datasetColumns,
		nd.OwnerID, nd.Filename, nd.TotalCount, nd.AvgFlowrate, nd.AvgPressure, nd.AvgTemperature,
	)

	ds, err := scanDataset(row)
	if err != nil {
		return equipment.Dataset{}, fmt.Errorf("insert dataset: %w", err)
	}
	return ds, nil
}

func (p *Postgres) GetDataset(ctx context.Context, id string) (equipment.Dataset, error) {
	if _, err := uuid.Parse(id); err != nil {
		return equipment.Dataset{}, ErrNotFound
	}

	row := p.db.QueryRow(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = $1::uuid`, id)
	ds, err := scanDataset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return equipment.Dataset{}, ErrNotFound
	}
	if err != nil {
		return equipment.Dataset{}, fmt.Errorf("get dataset: %w", err)
	}
	return ds, nil
}

func (p *Postgres) ListRecentDatasets(ctx context.Context, ownerID string, limit int) ([]equipment.Dataset, error) {
	rows, err := p.db.Query(ctx, `
		SELECT `+datasetColumns+`
		FROM datasets
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var result []equipment.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
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

func (p *Postgres) DeleteDataset(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	tag, err := p.db.Exec(ctx, `DELETE FROM datasets WHERE id = $1::uuid AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertEquipment uses the COPY protocol, so the batch lands in one
// statement or not at all.
func (p *Postgres) InsertEquipment(ctx context.Context, datasetID string, records []equipment.Record) error {
	dsID, err := uuid.Parse(datasetID)
	if err != nil {
		return ErrNotFound
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{dsID, i, r.Name, r.Type, r.Flowrate, r.Pressure, r.Temperature}
	}

	n, err := p.db.CopyFrom(ctx, pgx.Identifier{"equipment"}, equipmentCopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy equipment: %w", err)
	}
	if int(n) != len(records) {
		return fmt.Errorf("copy equipment: wrote %d of %d rows", n, len(records))
	}
	return nil
}

func (p *Postgres) ListEquipment(ctx context.Context, datasetID string) ([]equipment.Record, error) {
	if _, err := uuid.Parse(datasetID); err != nil {
		return nil, ErrNotFound
	}

	rows, err := p.db.Query(ctx, `
		SELECT id::text, name, type, flowrate, pressure, temperature
		FROM equipment
		WHERE dataset_id = $1::uuid
		ORDER BY position`,
		datasetID,
	)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	result := make([]equipment.Record, 0)
	for rows.Next() {
		var r equipment.Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.Flowrate, &r.Pressure, &r.Temperature); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	return result, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (equipment.Dataset, error) {
	var ds equipment.Dataset
	err := row.Scan(
		&ds.ID, &ds.OwnerID, &ds.Filename, &ds.TotalCount,
		&ds.AvgFlowrate, &ds.AvgPressure, &ds.AvgTemperature, &ds.CreatedAt,
	)
	return ds, err
}
