package core_test

// Facade tests run against the in-memory store and ring index — the same
// wiring the HTTP layer uses in its own tests.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/06sarv/Parameter-Visualiser/internal/core"
	"github.com/06sarv/Parameter-Visualiser/internal/history"
	"github.com/06sarv/Parameter-Visualiser/internal/store"
)

func newTestService() (*core.Service, *store.Memory, *history.Ring) {
	st := store.NewMemory()
	idx := history.NewRing(5)
	return core.NewService(st, idx), st, idx
}

const csvHeader = "Equipment Name,Type,Flowrate,Pressure,Temperature\n"

// ============================================================================
// Ingest Tests
// ============================================================================

func TestService_Ingest(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	input := csvHeader +
		"R1,Reactor,100.0,20.0,300.0\n" +
		"R2,Reactor,200.0,30.0,310.0\n"

	ds, err := svc.Ingest(ctx, []byte(input), "plant.csv")
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}

	if ds.ID == 0 {
		t.Error("dataset should have an assigned id")
	}
	if ds.Name != "plant.csv" {
		t.Errorf("Name = %q, want %q", ds.Name, "plant.csv")
	}
	if ds.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if ds.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", ds.TotalCount)
	}
	if ds.AvgFlowrate != 150.0 || ds.AvgPressure != 25.0 || ds.AvgTemperature != 305.0 {
		t.Errorf("averages = %v/%v/%v, want 150/25/305",
			ds.AvgFlowrate, ds.AvgPressure, ds.AvgTemperature)
	}
	if ds.TypeDistribution.Count("Reactor") != 2 {
		t.Errorf(`Count("Reactor") = %d, want 2`, ds.TypeDistribution.Count("Reactor"))
	}

	// The dataset is retrievable and in history.
	got, err := svc.Dataset(ctx, ds.ID)
	if err != nil {
		t.Fatalf("Dataset returned error: %v", err)
	}
	if len(got.Records) != 2 {
		t.Errorf("retrieved %d records, want 2", len(got.Records))
	}

	entries, err := svc.History(ctx)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != ds.ID {
		t.Errorf("history = %+v, want single entry for dataset %d", entries, ds.ID)
	}
}

func TestService_Ingest_HeaderOnly(t *testing.T) {
	svc, _, _ := newTestService()

	ds, err := svc.Ingest(context.Background(), []byte(csvHeader), "empty.csv")
	if err != nil {
		t.Fatalf("header-only upload should succeed, got: %v", err)
	}

	if ds.TotalCount != 0 {
		t.Errorf("TotalCount = %d, want 0", ds.TotalCount)
	}
	if ds.AvgFlowrate != 0.0 || ds.AvgPressure != 0.0 || ds.AvgTemperature != 0.0 {
		t.Error("zero-record averages should be 0.0")
	}
	if ds.TypeDistribution.Len() != 0 {
		t.Error("zero-record distribution should be empty")
	}
}

func TestService_Ingest_RejectionLeavesNoTrace(t *testing.T) {
	svc, _, idx := newTestService()
	ctx := context.Background()

	// Seed one good dataset so we can verify state is untouched.
	seeded, err := svc.Ingest(ctx, []byte(csvHeader+"R1,Reactor,1,2,3\n"), "good.csv")
	if err != nil {
		t.Fatalf("seed ingest: %v", err)
	}

	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "missing Pressure column",
			input: "Equipment Name,Type,Flowrate,Temperature\nR1,Reactor,1,3\n",
		},
		{
			name:  "bad numeric row",
			input: csvHeader + "R1,Reactor,abc,2,3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := idx.Snapshot(ctx)

			_, err := svc.Ingest(ctx, []byte(tt.input), "bad.csv")
			if !core.IsValidation(err) {
				t.Fatalf("expected validation failure, got %v", err)
			}

			after, _ := idx.Snapshot(ctx)
			if len(after) != len(before) {
				t.Errorf("history changed on failed ingest: %v -> %v", before, after)
			}

			entries, err := svc.History(ctx)
			if err != nil {
				t.Fatalf("History returned error: %v", err)
			}
			if len(entries) != 1 || entries[0].ID != seeded.ID {
				t.Errorf("failed ingest should not appear in history: %+v", entries)
			}
		})
	}
}

func TestService_Ingest_SchemaErrorNamesPressure(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Ingest(context.Background(),
		[]byte("Equipment Name,Type,Flowrate,Temperature\n"), "nopressure.csv")

	var schemaErr *core.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %T: %v", err, err)
	}
	found := false
	for _, col := range schemaErr.Missing {
		if col == "Pressure" {
			found = true
		}
	}
	if !found {
		t.Errorf("Missing = %v, should name Pressure", schemaErr.Missing)
	}
}

func TestService_Ingest_Concurrent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := fmt.Sprintf("%sE%d,Pump,%d,1,1\n", csvHeader, i, i+1)
			ds, err := svc.Ingest(ctx, []byte(input), fmt.Sprintf("file%d.csv", i))
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			ids[i] = ds.ID
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for i, id := range ids {
		if id == 0 {
			t.Fatalf("worker %d got no id", i)
		}
		if seen[id] {
			t.Errorf("duplicate dataset id %d", id)
		}
		seen[id] = true
	}

	// History holds at most 5, newest first, no duplicates, and every
	// id it names is retrievable.
	entries, err := svc.History(ctx)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(entries) > 5 {
		t.Errorf("history has %d entries, cap is 5", len(entries))
	}
	seenHist := make(map[int64]bool)
	for _, e := range entries {
		if seenHist[e.ID] {
			t.Errorf("duplicate id %d in history", e.ID)
		}
		seenHist[e.ID] = true
		if _, err := svc.Dataset(ctx, e.ID); err != nil {
			t.Errorf("history id %d not retrievable: %v", e.ID, err)
		}
	}
}

// ============================================================================
// History Eviction Tests
// ============================================================================

func TestService_HistoryEviction(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 6; i++ {
		ds, err := svc.Ingest(ctx,
			[]byte(fmt.Sprintf("%sE%d,Pump,1,1,1\n", csvHeader, i)),
			fmt.Sprintf("file%d.csv", i))
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		ids = append(ids, ds.ID)
	}

	entries, err := svc.History(ctx)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("history has %d entries, want 5", len(entries))
	}

	// Newest first: the 6th upload leads, the 1st is evicted.
	if entries[0].ID != ids[5] {
		t.Errorf("entries[0].ID = %d, want newest %d", entries[0].ID, ids[5])
	}
	for _, e := range entries {
		if e.ID == ids[0] {
			t.Errorf("oldest dataset %d should be evicted from history", ids[0])
		}
	}

	// Evicted, not deleted: still retrievable by id.
	if _, err := svc.Dataset(ctx, ids[0]); err != nil {
		t.Errorf("evicted dataset should remain retrievable: %v", err)
	}
}

// ============================================================================
// Read Path Tests
// ============================================================================

func TestService_Dataset_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Dataset(context.Background(), 404)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Report(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	ds, err := svc.Ingest(ctx, []byte(csvHeader+"R1,Reactor,100,20,300\n"), "r.csv")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	doc, err := svc.Report(ctx, ds.ID)
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if len(doc) == 0 {
		t.Fatal("report should not be empty")
	}

	// Rendering twice yields identical content apart from the timestamp.
	second, err := svc.Report(ctx, ds.ID)
	if err != nil {
		t.Fatalf("second Report: %v", err)
	}
	if stripGeneratedLine(string(doc)) != stripGeneratedLine(string(second)) {
		t.Error("report content should be reproducible")
	}
}

func TestService_Report_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Report(context.Background(), 404)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Report_DoesNotMutateStore(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	ds, err := svc.Ingest(ctx, []byte(csvHeader+"R1,Reactor,100,20,300\n"), "r.csv")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if _, err := svc.Report(ctx, ds.ID); err != nil {
		t.Fatalf("Report: %v", err)
	}

	after, err := svc.Dataset(ctx, ds.ID)
	if err != nil {
		t.Fatalf("Dataset after report: %v", err)
	}
	if after.TotalCount != ds.TotalCount || len(after.Records) != len(ds.Records) {
		t.Error("rendering must not change the stored dataset")
	}
}

func stripGeneratedLine(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "Generated:") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
