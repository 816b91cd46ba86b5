package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/06sarv/Parameter-Visualiser/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// equipment_types uses json, not jsonb: jsonb normalizes key order, and
// the distribution's first-seen order is part of the dataset.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS datasets (
	id              BIGSERIAL PRIMARY KEY,
	name            TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	raw_csv         BYTEA,
	total_count     INTEGER NOT NULL,
	avg_flowrate    DOUBLE PRECISION NOT NULL,
	avg_pressure    DOUBLE PRECISION NOT NULL,
	avg_temperature DOUBLE PRECISION NOT NULL,
	equipment_types JSON NOT NULL
);
CREATE TABLE IF NOT EXISTS equipment (
	id             BIGSERIAL PRIMARY KEY,
	dataset_id     BIGINT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	equipment_name TEXT NOT NULL,
	type           TEXT NOT NULL,
	flowrate       DOUBLE PRECISION NOT NULL,
	pressure       DOUBLE PRECISION NOT NULL,
	temperature    DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_equipment_dataset ON equipment(dataset_id, position);
`

// Postgres is a dataset store backed by PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres ensures the schema exists and returns the store. The caller
// owns the pool.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Create persists a dataset and its records in one transaction.
func (p *Postgres) Create(ctx context.Context, name string, raw []byte, records []core.EquipmentRecord, stats core.Stats) (core.Dataset, error) {
	distJSON, err := json.Marshal(stats.TypeDistribution)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("encode type distribution: %w", err)
	}

	createdAt := time.Now().UTC()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO datasets (name, created_at, raw_csv, total_count,
			avg_flowrate, avg_pressure, avg_temperature, equipment_types)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, name, createdAt, raw, stats.TotalCount,
		stats.AvgFlowrate, stats.AvgPressure, stats.AvgTemperature, string(distJSON)).Scan(&id)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("insert dataset: %w", err)
	}

	for i, rec := range records {
		if _, err := tx.Exec(ctx, `
			INSERT INTO equipment (dataset_id, position, equipment_name,
				type, flowrate, pressure, temperature)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, i, rec.Name, rec.Type, rec.Flowrate, rec.Pressure, rec.Temperature); err != nil {
			return core.Dataset{}, fmt.Errorf("insert equipment row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return core.Dataset{}, fmt.Errorf("commit: %w", err)
	}

	return core.Dataset{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
		Records:   append([]core.EquipmentRecord(nil), records...),
		RawCSV:    append([]byte(nil), raw...),
		Stats:     stats,
	}, nil
}

// Get returns the full dataset for id.
func (p *Postgres) Get(ctx context.Context, id int64) (core.Dataset, error) {
	var ds core.Dataset
	var distJSON []byte

	err := p.pool.QueryRow(ctx, `
		SELECT id, name, created_at, raw_csv, total_count,
			avg_flowrate, avg_pressure, avg_temperature, equipment_types::text
		FROM datasets WHERE id = $1
	`, id).Scan(&ds.ID, &ds.Name, &ds.CreatedAt, &ds.RawCSV, &ds.TotalCount,
		&ds.AvgFlowrate, &ds.AvgPressure, &ds.AvgTemperature, &distJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Dataset{}, fmt.Errorf("dataset %d: %w", id, core.ErrNotFound)
		}
		return core.Dataset{}, fmt.Errorf("scan dataset: %w", err)
	}

	if err := json.Unmarshal(distJSON, &ds.TypeDistribution); err != nil {
		return core.Dataset{}, fmt.Errorf("decode type distribution: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT equipment_name, type, flowrate, pressure, temperature
		FROM equipment WHERE dataset_id = $1
		ORDER BY position ASC
	`, id)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("query equipment: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec core.EquipmentRecord
		if err := rows.Scan(&rec.Name, &rec.Type, &rec.Flowrate, &rec.Pressure, &rec.Temperature); err != nil {
			return core.Dataset{}, fmt.Errorf("scan equipment: %w", err)
		}
		ds.Records = append(ds.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return core.Dataset{}, fmt.Errorf("iterate equipment: %w", err)
	}

	return ds, nil
}

// ListRecent returns projections for ids in the given order, skipping ids
// that do not exist.
func (p *Postgres) ListRecent(ctx context.Context, ids []int64) ([]core.HistoryEntry, error) {
	entries := make([]core.HistoryEntry, 0, len(ids))
	for _, id := range ids {
		var e core.HistoryEntry
		err := p.pool.QueryRow(ctx, `
			SELECT id, name, created_at, total_count,
				avg_flowrate, avg_pressure, avg_temperature
			FROM datasets WHERE id = $1
		`, id).Scan(&e.ID, &e.Name, &e.CreatedAt, &e.TotalCount,
			&e.AvgFlowrate, &e.AvgPressure, &e.AvgTemperature)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
