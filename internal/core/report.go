package core

// report.go renders a persisted dataset as a plain-text analysis report.
//
// Rendering is a pure function of the dataset: the same id and content
// produce byte-identical sections. The generation timestamp is the only
// permitted non-determinism, and it is injected through the clock so
// tests can pin it.

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

const reportTimeLayout = "2006-01-02 15:04:05 MST"

// Renderer renders datasets into text report documents.
type Renderer struct {
	now func() time.Time
}

// NewRenderer returns a Renderer stamping reports with the wall clock.
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// Render produces the report document for a dataset.
func (r *Renderer) Render(ds Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.RenderTo(&buf, ds); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderTo writes the report document to w. Any failure, including a
// write error, surfaces as *RenderError; the document is never silently
// truncated.
func (r *Renderer) RenderTo(w io.Writer, ds Dataset) error {
	// A dataset whose stored stats disagree with its records was
	// corrupted somewhere below us; refuse to print misleading numbers.
	if ds.TotalCount != len(ds.Records) {
		return &RenderError{Err: fmt.Errorf(
			"dataset %d: total_count %d does not match %d records",
			ds.ID, ds.TotalCount, len(ds.Records))}
	}

	if err := r.write(w, ds); err != nil {
		return &RenderError{Err: err}
	}
	return nil
}

func (r *Renderer) write(w io.Writer, ds Dataset) error {
	p := &printer{w: w}

	p.section("Chemical Equipment Analysis Report", '=')
	p.printf("Dataset:   %s (id %d)\n", ds.Name, ds.ID)
	p.printf("Uploaded:  %s\n", ds.CreatedAt.UTC().Format(reportTimeLayout))
	p.printf("Generated: %s\n", r.now().UTC().Format(reportTimeLayout))
	p.printf("\n")

	p.section("Summary Statistics", '-')
	p.printf("Total Equipment:     %d\n", ds.TotalCount)
	p.printf("Average Flowrate:    %.2f\n", ds.AvgFlowrate)
	p.printf("Average Pressure:    %.2f\n", ds.AvgPressure)
	p.printf("Average Temperature: %.2f\n", ds.AvgTemperature)
	p.printf("\n")

	p.section("Equipment Type Distribution", '-')
	if ds.TypeDistribution.Len() == 0 {
		p.printf("(no records)\n")
	}
	for _, t := range ds.TypeDistribution.Types() {
		p.printf("%s: %d\n", t, ds.TypeDistribution.Count(t))
	}
	p.printf("\n")

	p.section("Equipment Details", '-')
	p.recordTable(ds.Records)

	return p.err
}

// printer accumulates the first write error so rendering code can stay
// linear instead of checking every Fprintf.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) section(title string, underline rune) {
	p.printf("%s\n", title)
	p.printf("%s\n", repeat(underline, len(title)))
}

// recordTable prints the full record table with aligned columns. A
// zero-record dataset gets an explicit empty body, not a missing table.
func (p *printer) recordTable(records []EquipmentRecord) {
	nameW, typeW := len("Equipment Name"), len("Type")
	for _, rec := range records {
		if len(rec.Name) > nameW {
			nameW = len(rec.Name)
		}
		if len(rec.Type) > typeW {
			typeW = len(rec.Type)
		}
	}

	p.printf("%-*s  %-*s  %12s  %12s  %12s\n",
		nameW, "Equipment Name", typeW, "Type", "Flowrate", "Pressure", "Temperature")

	if len(records) == 0 {
		p.printf("(no records)\n")
		return
	}

	for _, rec := range records {
		p.printf("%-*s  %-*s  %12.2f  %12.2f  %12.2f\n",
			nameW, rec.Name, typeW, rec.Type, rec.Flowrate, rec.Pressure, rec.Temperature)
	}
}

func repeat(r rune, n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = r
	}
	return string(b)
}
