// Package store provides the dataset store backends implementing
// core.Store: an in-memory map, an embedded SQLite database, and
// PostgreSQL. All three assign monotonically increasing ids and create
// datasets atomically; datasets are never updated or deleted afterward.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/06sarv/Parameter-Visualiser/internal/core"
)

// Memory is a mutex-guarded in-memory store. It is the default for tests
// and useful for ephemeral deployments.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]core.Dataset
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[int64]core.Dataset)}
}

// Create persists a new dataset under the next id.
func (m *Memory) Create(_ context.Context, name string, raw []byte, records []core.EquipmentRecord, stats core.Stats) (core.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	ds := core.Dataset{
		ID:        m.nextID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Records:   append([]core.EquipmentRecord(nil), records...),
		RawCSV:    append([]byte(nil), raw...),
		Stats:     stats,
	}
	m.data[ds.ID] = ds

	return copyDataset(ds), nil
}

// Get returns the dataset for id.
func (m *Memory) Get(_ context.Context, id int64) (core.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.data[id]
	if !ok {
		return core.Dataset{}, fmt.Errorf("dataset %d: %w", id, core.ErrNotFound)
	}
	return copyDataset(ds), nil
}

// ListRecent returns projections for ids in the given order, skipping
// ids that do not exist.
func (m *Memory) ListRecent(_ context.Context, ids []int64) ([]core.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]core.HistoryEntry, 0, len(ids))
	for _, id := range ids {
		ds, ok := m.data[id]
		if !ok {
			continue
		}
		entries = append(entries, project(ds))
	}
	return entries, nil
}

// copyDataset clones the slices so callers cannot reach the stored
// aggregate. Stats is shared; it is immutable after Summarize.
func copyDataset(ds core.Dataset) core.Dataset {
	ds.Records = append([]core.EquipmentRecord(nil), ds.Records...)
	ds.RawCSV = append([]byte(nil), ds.RawCSV...)
	return ds
}

func project(ds core.Dataset) core.HistoryEntry {
	return core.HistoryEntry{
		ID:             ds.ID,
		Name:           ds.Name,
		CreatedAt:      ds.CreatedAt,
		TotalCount:     ds.TotalCount,
		AvgFlowrate:    ds.AvgFlowrate,
		AvgPressure:    ds.AvgPressure,
		AvgTemperature: ds.AvgTemperature,
	}
}
