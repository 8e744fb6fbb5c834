package analysis

import (
	"encoding/json"
	"math"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// Range is a closed numeric interval.
type Range struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// MarshalJSON encodes an infinite bound as null.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Lo *float64 `json:"lo"`
		Hi *float64 `json:"hi"`
	}{finite(r.Lo), finite(r.Hi)})
}

// Contains reports whether lo <= v <= hi.
func (r Range) Contains(v float64) bool { return r.Lo <= v && v <= r.Hi }

// Defaults are the schema-derived starting parameters of an exploration.
type Defaults struct {
	CategoryColumn string   `json:"category_column,omitempty"`
	CategoryValues []string `json:"category_values,omitempty"`
	NumericColumn  string   `json:"numeric_column,omitempty"`
	// Bounds is the observed [min, max] of NumericColumn.
	Bounds *Range `json:"bounds,omitempty"`
	// Range is the default selection within Bounds.
	Range *Range `json:"range,omitempty"`
}

// PickColumn returns the first candidate classified as k, or else the first
// column of kind k in table order. It reports false when no column has kind k.
func PickColumn(c Classification, candidates []string, k Kind) (string, bool) {
	for _, name := range candidates {
		if c.Is(name, k) {
			return name, true
		}
	}
	if names := c.Names(k); len(names) > 0 {
		return names[0], true
	}
	return "", false
}

// SelectDefaults chooses the default filter columns and their starting
// values: every distinct value of the categorical column and the default
// range of the numeric column.
func SelectDefaults(t *dataset.Table, c Classification, p Policy) Defaults {
	var d Defaults
	if name, ok := PickColumn(c, p.FilterCategorical, KindCategorical); ok {
		d.CategoryColumn = name
		col, _ := t.Column(name)
		d.CategoryValues = col.Distinct()
	}
	if name, ok := PickColumn(c, p.FilterNumeric, KindNumeric); ok {
		d.NumericColumn = name
		col, _ := t.Column(name)
		if b, ok := ColumnBounds(col); ok {
			d.Bounds = &b
			r := DefaultRange(col, p)
			d.Range = &r
		}
	}
	return d
}

// ColumnBounds returns the [min, max] of the present values of a numeric
// column. It reports false for non-numeric or all-missing columns.
func ColumnBounds(col *dataset.Column) (Range, bool) {
	vals := col.Floats()
	if len(vals) == 0 {
		return Range{}, false
	}
	r := Range{Lo: math.Inf(1), Hi: math.Inf(-1)}
	for _, v := range vals {
		r.Lo = math.Min(r.Lo, v)
		r.Hi = math.Max(r.Hi, v)
	}
	return r, true
}

// DefaultRange is the default selection for a numeric column: its full
// bounds, or the trim percentiles for columns the policy lists as trimmed.
// The zero Range is returned for columns without numeric values.
func DefaultRange(col *dataset.Column, p Policy) Range {
	b, ok := ColumnBounds(col)
	if !ok {
		return Range{}
	}
	if !p.trimmed(col.Name()) {
		return b
	}
	lo, hi := p.trimBounds()
	vals := col.Floats()
	return Range{Lo: percentile(vals, lo), Hi: percentile(vals, hi)}
}
