package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/06sarv/Parameter-Visualiser/internal/core"
	_ "modernc.org/sqlite"
)

// sqliteSchema holds datasets and their equipment rows. The type
// distribution is stored as insertion-ordered JSON text; SQLite keeps the
// text verbatim, so first-seen order survives the round trip.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS datasets (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	raw_csv         BLOB,
	total_count     INTEGER NOT NULL,
	avg_flowrate    REAL NOT NULL,
	avg_pressure    REAL NOT NULL,
	avg_temperature REAL NOT NULL,
	equipment_types TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS equipment (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset_id     INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	equipment_name TEXT NOT NULL,
	type           TEXT NOT NULL,
	flowrate       REAL NOT NULL,
	pressure       REAL NOT NULL,
	temperature    REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_equipment_dataset ON equipment(dataset_id, position);
`

// SQLite is a dataset store backed by an embedded SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists. Pass ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Create persists a dataset and its records in one transaction, so the id
// assignment is serialized and no reader observes a partial dataset.
func (s *SQLite) Create(ctx context.Context, name string, raw []byte, records []core.EquipmentRecord, stats core.Stats) (core.Dataset, error) {
	distJSON, err := json.Marshal(stats.TypeDistribution)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("encode type distribution: %w", err)
	}

	createdAt := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO datasets (name, created_at, raw_csv, total_count,
			avg_flowrate, avg_pressure, avg_temperature, equipment_types)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, name, createdAt.Format(time.RFC3339Nano), raw, stats.TotalCount,
		stats.AvgFlowrate, stats.AvgPressure, stats.AvgTemperature, string(distJSON))
	if err != nil {
		return core.Dataset{}, fmt.Errorf("insert dataset: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Dataset{}, fmt.Errorf("dataset id: %w", err)
	}

	for i, rec := range records {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO equipment (dataset_id, position, equipment_name,
				type, flowrate, pressure, temperature)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, i, rec.Name, rec.Type, rec.Flowrate, rec.Pressure, rec.Temperature); err != nil {
			return core.Dataset{}, fmt.Errorf("insert equipment row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
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
func (s *SQLite) Get(ctx context.Context, id int64) (core.Dataset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, raw_csv, total_count,
			avg_flowrate, avg_pressure, avg_temperature, equipment_types
		FROM datasets WHERE id = ?
	`, id)

	ds, err := scanDataset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Dataset{}, fmt.Errorf("dataset %d: %w", id, core.ErrNotFound)
		}
		return core.Dataset{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT equipment_name, type, flowrate, pressure, temperature
		FROM equipment WHERE dataset_id = ?
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
// that do not exist. The id list is capped by the history index, so the
// per-id query is fine.
func (s *SQLite) ListRecent(ctx context.Context, ids []int64) ([]core.HistoryEntry, error) {
	entries := make([]core.HistoryEntry, 0, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx, `
			SELECT id, name, created_at, total_count,
				avg_flowrate, avg_pressure, avg_temperature
			FROM datasets WHERE id = ?
		`, id)

		var e core.HistoryEntry
		var createdAt string
		err := row.Scan(&e.ID, &e.Name, &createdAt, &e.TotalCount,
			&e.AvgFlowrate, &e.AvgPressure, &e.AvgTemperature)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func scanDataset(row *sql.Row) (core.Dataset, error) {
	var ds core.Dataset
	var createdAt string
	var raw []byte
	var distJSON string

	err := row.Scan(&ds.ID, &ds.Name, &createdAt, &raw, &ds.TotalCount,
		&ds.AvgFlowrate, &ds.AvgPressure, &ds.AvgTemperature, &distJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Dataset{}, err
		}
		return core.Dataset{}, fmt.Errorf("scan dataset: %w", err)
	}

	if ds.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return core.Dataset{}, fmt.Errorf("parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(distJSON), &ds.TypeDistribution); err != nil {
		return core.Dataset{}, fmt.Errorf("decode type distribution: %w", err)
	}
	ds.RawCSV = raw

	return ds, nil
}
