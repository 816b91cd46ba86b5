package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Summarize reduces an ordered record sequence to its aggregate metrics.
//
// Averages are plain arithmetic means accumulated in record order. A zero
// record set yields averages of exactly 0.0 and an empty distribution,
// never an error: downstream renderers must not have to branch on
// "missing" stats or divide by zero.
func Summarize(records []EquipmentRecord) Stats {
	stats := Stats{TotalCount: len(records)}
	if len(records) == 0 {
		return stats
	}

	var flowrate, pressure, temperature float64
	for _, rec := range records {
		flowrate += rec.Flowrate
		pressure += rec.Pressure
		temperature += rec.Temperature
		stats.TypeDistribution.Add(rec.Type)
	}

	n := float64(len(records))
	stats.AvgFlowrate = flowrate / n
	stats.AvgPressure = pressure / n
	stats.AvgTemperature = temperature / n
	return stats
}

// TypeDistribution counts records per equipment type, remembering the
// order in which types were first seen. Type labels are counted verbatim;
// the parser's whitespace trim is the only normalization applied.
//
// The JSON form is an object with keys in first-seen order. encoding/json
// would sort (marshal) or scramble (unmarshal) map keys, so both
// directions are implemented by hand.
type TypeDistribution struct {
	order  []string
	counts map[string]int
}

// Add increments the count for an equipment type.
func (d *TypeDistribution) Add(equipmentType string) {
	if d.counts == nil {
		d.counts = make(map[string]int)
	}
	if _, seen := d.counts[equipmentType]; !seen {
		d.order = append(d.order, equipmentType)
	}
	d.counts[equipmentType]++
}

// Count returns the count for an equipment type, zero if absent.
func (d TypeDistribution) Count(equipmentType string) int {
	return d.counts[equipmentType]
}

// Types returns the distinct equipment types in first-seen order.
func (d TypeDistribution) Types() []string {
	return append([]string(nil), d.order...)
}

// Len returns the number of distinct equipment types.
func (d TypeDistribution) Len() int {
	return len(d.order)
}

// Total returns the sum of all counts. For a distribution built from a
// record set this equals the record count.
func (d TypeDistribution) Total() int {
	total := 0
	for _, n := range d.counts {
		total += n
	}
	return total
}

// MarshalJSON emits an object with keys in first-seen order.
func (d TypeDistribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(d.counts[t]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, preserving key order.
func (d *TypeDistribution) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("type distribution: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("type distribution: expected object, got %v", tok)
	}

	d.order = nil
	d.counts = make(map[string]int)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("type distribution: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("type distribution: expected string key, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("type distribution: %w", err)
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return fmt.Errorf("type distribution: count for %q is not a number", key)
		}
		n, err := num.Int64()
		if err != nil {
			return fmt.Errorf("type distribution: count for %q: %w", key, err)
		}

		if _, seen := d.counts[key]; !seen {
			d.order = append(d.order, key)
		}
		d.counts[key] = int(n)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("type distribution: %w", err)
	}
	return nil
}
