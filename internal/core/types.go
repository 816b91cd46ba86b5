// Package core provides the equipment ingestion pipeline: CSV parsing and
// validation, summary statistics, report rendering, and the service facade
// that ties them to a dataset store and history index. This package has no
// HTTP dependencies and can be driven by any frontend.
package core

import (
	"context"
	"time"
)

// EquipmentRecord is a single validated row of equipment data.
// Records are produced only by ParseRecords; downstream code never
// re-validates fields.
type EquipmentRecord struct {
	Name        string  `json:"equipment_name"`
	Type        string  `json:"type"`
	Flowrate    float64 `json:"flowrate"`
	Pressure    float64 `json:"pressure"`
	Temperature float64 `json:"temperature"`
}

// Stats holds the aggregate metrics computed over a record set.
type Stats struct {
	TotalCount       int              `json:"total_count"`
	AvgFlowrate      float64          `json:"avg_flowrate"`
	AvgPressure      float64          `json:"avg_pressure"`
	AvgTemperature   float64          `json:"avg_temperature"`
	TypeDistribution TypeDistribution `json:"equipment_types"`
}

// Dataset is an immutable aggregate of parsed records plus their
// precomputed statistics. It is created exactly once by Store.Create and
// never mutated afterward.
type Dataset struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"uploaded_at"`
	Records   []EquipmentRecord `json:"equipment_items"`
	RawCSV    []byte            `json:"-"`
	Stats
}

// HistoryEntry is a lightweight projection of a Dataset for the recent
// uploads view. It never carries record-level detail.
type HistoryEntry struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"uploaded_at"`
	TotalCount     int       `json:"total_count"`
	AvgFlowrate    float64   `json:"avg_flowrate"`
	AvgPressure    float64   `json:"avg_pressure"`
	AvgTemperature float64   `json:"avg_temperature"`
}

// Store persists datasets. Implementations must assign unique,
// monotonically increasing ids and make Create atomic: no reader ever
// observes a partially written dataset.
type Store interface {
	// Create persists a new dataset and returns it with id and
	// creation timestamp assigned.
	Create(ctx context.Context, name string, raw []byte, records []EquipmentRecord, stats Stats) (Dataset, error)

	// Get returns the full dataset for id, or an error wrapping
	// ErrNotFound if no such dataset exists.
	Get(ctx context.Context, id int64) (Dataset, error)

	// ListRecent returns projections for the given ids, preserving the
	// given order. Ids that no longer exist are skipped.
	ListRecent(ctx context.Context, ids []int64) ([]HistoryEntry, error)
}

// History is the bounded newest-first index of recently created dataset
// ids. Record must be atomic with respect to concurrent calls: the index
// never exceeds its cap and never loses a concurrently inserted id.
type History interface {
	Record(ctx context.Context, id int64) error
	Snapshot(ctx context.Context) ([]int64, error)
}
