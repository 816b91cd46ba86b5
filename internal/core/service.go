package core

import (
	"context"
	"fmt"

	"github.com/06sarv/Parameter-Visualiser/internal/logging"
	"github.com/google/uuid"
)

// Service is the ingestion facade. It orchestrates parse -> summarize ->
// store -> history for uploads and exposes pass-through reads so every
// consumer sees the same numbers.
type Service struct {
	store    Store
	history  History
	renderer *Renderer
}

// NewService wires the facade to a dataset store and history index.
func NewService(store Store, history History) *Service {
	return &Service{
		store:    store,
		history:  history,
		renderer: NewRenderer(),
	}
}

// Ingest parses and validates raw CSV bytes, computes statistics, and
// persists the result as a new dataset recorded in the history index.
//
// On a validation failure nothing is persisted: the store and the history
// index are left exactly as before the call. displayName is typically the
// source filename.
func (s *Service) Ingest(ctx context.Context, data []byte, displayName string) (Dataset, error) {
	logger := logging.WithFields(ctx,
		"ingest_id", uuid.NewString(),
		"file", displayName,
		"bytes", len(data),
	)

	records, err := ParseRecords(data)
	if err != nil {
		logger.Warn("upload rejected", "error", err)
		return Dataset{}, err
	}

	stats := Summarize(records)

	ds, err := s.store.Create(ctx, displayName, data, records, stats)
	if err != nil {
		logger.Error("dataset create failed", "error", err)
		return Dataset{}, fmt.Errorf("create dataset: %w", err)
	}

	if err := s.history.Record(ctx, ds.ID); err != nil {
		// The dataset exists and is retrievable by id; only the
		// "recent uploads" view missed it.
		logger.Error("history record failed", "dataset_id", ds.ID, "error", err)
		return ds, fmt.Errorf("record history for dataset %d: %w", ds.ID, err)
	}

	logger.Info("dataset created",
		"dataset_id", ds.ID,
		"rows", stats.TotalCount,
		"types", stats.TypeDistribution.Len(),
	)
	return ds, nil
}

// Dataset returns the full dataset for id, including its ordered records.
func (s *Service) Dataset(ctx context.Context, id int64) (Dataset, error) {
	return s.store.Get(ctx, id)
}

// History returns projections of the most recently created datasets,
// newest first. Datasets evicted from the index remain retrievable by id.
func (s *Service) History(ctx context.Context) ([]HistoryEntry, error) {
	ids, err := s.history.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("history snapshot: %w", err)
	}
	return s.store.ListRecent(ctx, ids)
}

// Report renders the text report for a dataset. Rendering reads the
// persisted dataset and never mutates the store.
func (s *Service) Report(ctx context.Context, id int64) ([]byte, error) {
	ds, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(ds)
}
