package core

// parse.go turns raw CSV bytes into validated EquipmentRecords.
//
// The policy is fail-fast: a missing required column or a single bad row
// rejects the whole upload. An analyst must be told the file is malformed
// rather than get a quietly partial report.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// RequiredColumns are the exact header names an upload must carry, matched
// case-sensitively. Extra columns are ignored.
var RequiredColumns = []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"}

const (
	colName        = "Equipment Name"
	colType        = "Type"
	colFlowrate    = "Flowrate"
	colPressure    = "Pressure"
	colTemperature = "Temperature"
)

// ParseRecords parses raw CSV bytes into an ordered record sequence.
//
// The first row must be the header. A header with zero data rows is valid
// and yields an empty slice. Failures are reported as *SchemaError (missing
// columns) or *RowParseError (first bad row); in both cases no records are
// returned.
func ParseRecords(data []byte) ([]EquipmentRecord, error) {
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &RowParseError{Row: pe.Line, Reason: "malformed CSV: " + pe.Err.Error()}
		}
		return nil, &RowParseError{Reason: "malformed CSV: " + err.Error()}
	}

	if len(rows) == 0 {
		return nil, &SchemaError{Missing: append([]string(nil), RequiredColumns...)}
	}

	idx, err := indexHeader(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]EquipmentRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		rec, err := parseRow(row, idx, i+2) // 1-based, header is row 1
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// indexHeader maps required column names to their position, first
// occurrence winning. Returns *SchemaError listing every absent column.
func indexHeader(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, ok := idx[name]; !ok {
			idx[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return idx, nil
}

// parseRow validates one data row. rowNum is the 1-based line number used
// in error reporting.
func parseRow(row []string, idx map[string]int, rowNum int) (EquipmentRecord, error) {
	cell := func(col string) (string, error) {
		pos := idx[col]
		if pos >= len(row) {
			return "", &RowParseError{Row: rowNum, Field: col, Reason: "missing value"}
		}
		return strings.TrimSpace(row[pos]), nil
	}

	text := func(col string) (string, error) {
		v, err := cell(col)
		if err != nil {
			return "", err
		}
		if v == "" {
			return "", &RowParseError{Row: rowNum, Field: col, Reason: "required field is empty"}
		}
		return v, nil
	}

	number := func(col string) (float64, error) {
		v, err := cell(col)
		if err != nil {
			return 0, err
		}
		if v == "" {
			return 0, &RowParseError{Row: rowNum, Field: col, Reason: "required field is empty"}
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, &RowParseError{Row: rowNum, Field: col, Value: v, Reason: "invalid number"}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, &RowParseError{Row: rowNum, Field: col, Value: v, Reason: "number is not finite"}
		}
		return f, nil
	}

	var rec EquipmentRecord
	var err error
	if rec.Name, err = text(colName); err != nil {
		return EquipmentRecord{}, err
	}
	if rec.Type, err = text(colType); err != nil {
		return EquipmentRecord{}, err
	}
	if rec.Flowrate, err = number(colFlowrate); err != nil {
		return EquipmentRecord{}, err
	}
	if rec.Pressure, err = number(colPressure); err != nil {
		return EquipmentRecord{}, err
	}
	if rec.Temperature, err = number(colTemperature); err != nil {
		return EquipmentRecord{}, err
	}
	return rec, nil
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with the replacement
// character so exports from legacy encodings fail validation with a clear
// message instead of corrupting the CSV reader.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
