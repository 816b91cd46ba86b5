package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/06sarv/Parameter-Visualiser/internal/core"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ============================================================================
// SQLite Store Tests
// ============================================================================

func TestSQLite_CreateAndGet(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	records := sampleRecords()
	stats := core.Summarize(records)
	raw := []byte("Equipment Name,Type,Flowrate,Pressure,Temperature\n")

	ds, err := s.Create(ctx, "plant.csv", raw, records, stats)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if ds.ID != 1 {
		t.Errorf("first id = %d, want 1", ds.ID)
	}

	got, err := s.Get(ctx, ds.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Name != "plant.csv" {
		t.Errorf("Name = %q, want %q", got.Name, "plant.csv")
	}
	if got.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", got.TotalCount)
	}
	if len(got.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(got.Records))
	}
	// Record order is source row order.
	if got.Records[0].Name != "R1" || got.Records[1].Name != "P1" {
		t.Errorf("record order not preserved: %+v", got.Records)
	}
	if string(got.RawCSV) != string(raw) {
		t.Error("raw CSV bytes not preserved")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not persisted")
	}
}

func TestSQLite_DistributionOrderSurvivesRoundTrip(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	// First-seen order Zebra, Alpha, Mango — alphabetical would differ.
	records := []core.EquipmentRecord{
		{Name: "1", Type: "Zebra", Flowrate: 1, Pressure: 1, Temperature: 1},
		{Name: "2", Type: "Alpha", Flowrate: 1, Pressure: 1, Temperature: 1},
		{Name: "3", Type: "Mango", Flowrate: 1, Pressure: 1, Temperature: 1},
		{Name: "4", Type: "Zebra", Flowrate: 1, Pressure: 1, Temperature: 1},
	}
	stats := core.Summarize(records)

	ds, err := s.Create(ctx, "order.csv", nil, records, stats)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, ds.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	want := []string{"Zebra", "Alpha", "Mango"}
	if !reflect.DeepEqual(got.TypeDistribution.Types(), want) {
		t.Errorf("Types() = %v, want %v", got.TypeDistribution.Types(), want)
	}
	if got.TypeDistribution.Count("Zebra") != 2 {
		t.Errorf(`Count("Zebra") = %d, want 2`, got.TypeDistribution.Count("Zebra"))
	}
}

func TestSQLite_ZeroRecordDataset(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	ds, err := s.Create(ctx, "empty.csv", nil, nil, core.Summarize(nil))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, ds.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TotalCount != 0 || len(got.Records) != 0 {
		t.Errorf("zero-record dataset round trip: count=%d records=%d", got.TotalCount, len(got.Records))
	}
	if got.TypeDistribution.Len() != 0 {
		t.Error("distribution should be empty")
	}
}

func TestSQLite_GetNotFound(t *testing.T) {
	s := openTestSQLite(t)

	_, err := s.Get(context.Background(), 42)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLite_ListRecent(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	var ids []int64
	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		records := sampleRecords()
		ds, err := s.Create(ctx, name, nil, records, core.Summarize(records))
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		ids = append(ids, ds.ID)
	}

	entries, err := s.ListRecent(ctx, []int64{ids[1], 999, ids[0]})
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "b.csv" || entries[1].Name != "a.csv" {
		t.Errorf("order not preserved: %+v", entries)
	}
	if entries[0].AvgFlowrate != 75.0 {
		t.Errorf("AvgFlowrate = %v, want 75.0", entries[0].AvgFlowrate)
	}
}

func TestSQLite_IDsIncrease(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	a, err := s.Create(ctx, "a.csv", nil, nil, core.Summarize(nil))
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := s.Create(ctx, "b.csv", nil, nil, core.Summarize(nil))
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if b.ID <= a.ID {
		t.Errorf("ids not increasing: %d then %d", a.ID, b.ID)
	}
}
