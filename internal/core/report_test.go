package core

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func fixedRenderer(ts time.Time) *Renderer {
	r := NewRenderer()
	r.now = func() time.Time { return ts }
	return r
}

func sampleDataset() Dataset {
	records := []EquipmentRecord{
		{Name: "R1", Type: "Reactor", Flowrate: 100.0, Pressure: 20.0, Temperature: 300.0},
		{Name: "R2", Type: "Reactor", Flowrate: 200.0, Pressure: 30.0, Temperature: 310.0},
		{Name: "P1", Type: "Pump", Flowrate: 55.5, Pressure: 5.8, Temperature: 25.0},
	}
	return Dataset{
		ID:        7,
		Name:      "sample.csv",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Records:   records,
		Stats:     Summarize(records),
	}
}

// ============================================================================
// Render Tests
// ============================================================================

func TestRender_Sections(t *testing.T) {
	doc, err := fixedRenderer(time.Unix(0, 0)).Render(sampleDataset())
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	text := string(doc)
	sections := []string{
		"Chemical Equipment Analysis Report",
		"Summary Statistics",
		"Equipment Type Distribution",
		"Equipment Details",
	}

	// Sections must appear in order.
	pos := -1
	for _, section := range sections {
		p := strings.Index(text, section)
		if p < 0 {
			t.Fatalf("section %q missing from report", section)
		}
		if p < pos {
			t.Errorf("section %q out of order", section)
		}
		pos = p
	}
}

func TestRender_Content(t *testing.T) {
	doc, err := fixedRenderer(time.Unix(0, 0)).Render(sampleDataset())
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	text := string(doc)

	for _, want := range []string{
		"sample.csv (id 7)",
		"Total Equipment:     3",
		"Average Flowrate:    118.50",
		"Average Pressure:    18.60",
		"Average Temperature: 211.67",
		"Reactor: 2",
		"Pump: 1",
		"R1",
		"55.50", // record values rounded to 2 decimals
		"5.80",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q\n%s", want, text)
		}
	}
}

func TestRender_DistributionInFirstSeenOrder(t *testing.T) {
	doc, err := fixedRenderer(time.Unix(0, 0)).Render(sampleDataset())
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	text := string(doc)

	if strings.Index(text, "Reactor: 2") > strings.Index(text, "Pump: 1") {
		t.Error("distribution should list Reactor before Pump (first-seen order)")
	}
}

func TestRender_Deterministic(t *testing.T) {
	r := fixedRenderer(time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC))
	ds := sampleDataset()

	first, err := r.Render(ds)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := r.Render(ds)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("same dataset and clock should render byte-identical documents")
	}
}

func TestRender_OnlyTimestampVaries(t *testing.T) {
	ds := sampleDataset()

	first, err := fixedRenderer(time.Unix(1000, 0)).Render(ds)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := fixedRenderer(time.Unix(2000, 0)).Render(ds)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}

	if got, want := stripGenerated(string(first)), stripGenerated(string(second)); got != want {
		t.Error("section content should be identical apart from the Generated line")
	}
}

func TestRender_ZeroRecords(t *testing.T) {
	ds := Dataset{
		ID:        1,
		Name:      "empty.csv",
		CreatedAt: time.Unix(0, 0),
		Stats:     Summarize(nil),
	}

	doc, err := fixedRenderer(time.Unix(0, 0)).Render(ds)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	text := string(doc)

	// The table is present with an explicit empty body, not omitted.
	if !strings.Contains(text, "Equipment Details") {
		t.Error("record table section missing for zero-record dataset")
	}
	if !strings.Contains(text, "(no records)") {
		t.Error("zero-record dataset should render an explicit empty table body")
	}
	if !strings.Contains(text, "Total Equipment:     0") {
		t.Error("zero-record dataset should report a count of 0")
	}
	if !strings.Contains(text, "Average Flowrate:    0.00") {
		t.Error("zero-record averages should render as 0.00")
	}
}

func TestRender_CorruptDataset(t *testing.T) {
	ds := sampleDataset()
	ds.TotalCount = 99 // disagrees with len(Records)

	_, err := fixedRenderer(time.Unix(0, 0)).Render(ds)

	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected *RenderError, got %T: %v", err, err)
	}
}

func TestRenderTo_WriteFailure(t *testing.T) {
	err := fixedRenderer(time.Unix(0, 0)).RenderTo(failingWriter{}, sampleDataset())

	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected *RenderError on write failure, got %T: %v", err, err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, fmt.Errorf("disk full")
}

// stripGenerated removes the generation timestamp line, the only
// permitted non-determinism.
func stripGenerated(text string) string {
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
