package analysis

import (
	"encoding/json"
	"math"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// CategoryFilter keeps rows whose Column value, compared as text, is one of
// Values. An empty Values keeps nothing.
type CategoryFilter struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// RangeFilter keeps rows whose Column value lies in the closed interval
// [Lo, Hi]. Build it with NewRangeFilter to get clamped, ordered bounds.
type RangeFilter struct {
	Column string  `json:"column"`
	Lo     float64 `json:"lo"`
	Hi     float64 `json:"hi"`
}

func (f RangeFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Column string   `json:"column"`
		Lo     *float64 `json:"lo"`
		Hi     *float64 `json:"hi"`
	}{f.Column, finite(f.Lo), finite(f.Hi)})
}

// FilterSpec combines at most one categorical and one range predicate with AND.
// A nil predicate, or one naming a column the table lacks, always holds.
type FilterSpec struct {
	Category *CategoryFilter `json:"category,omitempty"`
	Range    *RangeFilter    `json:"range,omitempty"`
}

// NewRangeFilter builds a range filter on col with bounds clamped to the
// column's observed [min, max] and ordered so Lo <= Hi. A NaN bound means
// the observed limit. It returns nil when col has no numeric values.
func NewRangeFilter(col *dataset.Column, lo, hi float64) *RangeFilter {
	b, ok := ColumnBounds(col)
	if !ok {
		return nil
	}
	if math.IsNaN(lo) {
		lo = b.Lo
	}
	if math.IsNaN(hi) {
		hi = b.Hi
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return &RangeFilter{
		Column: col.Name(),
		Lo:     math.Min(math.Max(lo, b.Lo), b.Hi),
		Hi:     math.Max(math.Min(hi, b.Hi), b.Lo),
	}
}

// ApplyFilter returns the rows of t that satisfy f as a new table; t is
// never modified. Missing values never satisfy a predicate, except that a
// category filter selecting every distinct value passes all rows through.
func ApplyFilter(t *dataset.Table, f FilterSpec) *dataset.Table {
	var (
		cat      *dataset.Column
		selected map[string]struct{}
		num      *dataset.Column
		rng      Range
	)
	if f.Category != nil {
		if col, ok := t.Column(f.Category.Column); ok {
			selected = make(map[string]struct{}, len(f.Category.Values))
			for _, v := range f.Category.Values {
				selected[v] = struct{}{}
			}
			if !coversAll(col, selected) {
				cat = col
			}
		}
	}
	if f.Range != nil {
		if col, ok := t.Column(f.Range.Column); ok {
			num = col
			rng = Range{Lo: f.Range.Lo, Hi: f.Range.Hi}
		}
	}
	rows := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if cat != nil {
			s, ok := cat.Text(i)
			if !ok {
				continue
			}
			if _, hit := selected[s]; !hit {
				continue
			}
		}
		if num != nil {
			v, ok := num.Float(i)
			if !ok || !rng.Contains(v) {
				continue
			}
		}
		rows = append(rows, i)
	}
	return t.Take(rows)
}

func coversAll(col *dataset.Column, selected map[string]struct{}) bool {
	if len(selected) == 0 {
		return false
	}
	for _, v := range col.Distinct() {
		if _, ok := selected[v]; !ok {
			return false
		}
	}
	return true
}
