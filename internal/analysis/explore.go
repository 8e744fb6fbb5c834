package analysis

import (
	"math"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// DefaultPreviewRows is the number of filtered rows included in a result preview.
const DefaultPreviewRows = 50

// Params are the user-adjustable parameters of one exploration. Nil fields
// take the schema-derived defaults. An empty, non-nil CategoryValues selects
// nothing; a CategoryColumn or NumericColumn set to "" disables that filter.
type Params struct {
	CategoryColumn *string      `json:"category_column,omitempty"`
	CategoryValues []string     `json:"category_values"`
	NumericColumn  *string      `json:"numeric_column,omitempty"`
	RangeLo        *float64     `json:"range_lo,omitempty"`
	RangeHi        *float64     `json:"range_hi,omitempty"`
	Chart          ChartRequest `json:"chart"`
	PreviewRows    int          `json:"preview_rows,omitempty"`
}

// Validate checks the named choices that cannot be resolved against a schema.
func (p Params) Validate() error {
	if _, err := ParseChartMode(string(p.Chart.Mode)); err != nil {
		return err
	}
	if _, err := ParseAggFunc(string(p.Chart.Func)); err != nil {
		return err
	}
	return nil
}

// Result is the outcome of one exploration: everything the rendering side
// needs to draw the filtered preview, insight cards and chart.
type Result struct {
	Dataset        string          `json:"dataset"`
	Classification Classification  `json:"classification"`
	Defaults       Defaults        `json:"defaults"`
	Filter         FilterSpec      `json:"filter"`
	Insights       Insights        `json:"insights"`
	Chart          ChartPlan       `json:"chart"`
	Summary        []ColumnSummary `json:"summary"`
	Preview        *dataset.Table  `json:"preview"`

	// Filtered is the full filtered view.
	Filtered *dataset.Table `json:"-"`
}

// Explore runs one full recomputation over t: classify, select defaults,
// apply params over the defaults, filter, then derive insights, the chart
// plan and column summaries from the filtered view. t is not modified.
// Explore with zero Params restores the schema-derived defaults.
func Explore(t *dataset.Table, p Policy, params Params) *Result {
	class := Classify(t)
	def := SelectDefaults(t, class, p)
	spec := buildFilter(t, p, def, params)
	filtered := ApplyFilter(t, spec)

	preview := params.PreviewRows
	if preview <= 0 {
		preview = DefaultPreviewRows
	}
	return &Result{
		Dataset:        t.Name(),
		Classification: class,
		Defaults:       def,
		Filter:         spec,
		Insights:       BuildInsights(filtered, t.NumRows(), class, p.Insights),
		Chart:          PlanChart(filtered, class, p.Charts, params.Chart),
		Summary:        Describe(filtered, class),
		Preview:        filtered.Head(preview),
		Filtered:       filtered,
	}
}

func buildFilter(t *dataset.Table, p Policy, def Defaults, params Params) FilterSpec {
	var spec FilterSpec

	catCol := def.CategoryColumn
	if params.CategoryColumn != nil {
		catCol = *params.CategoryColumn
	}
	if catCol != "" {
		values := params.CategoryValues
		if values == nil {
			if catCol == def.CategoryColumn {
				values = def.CategoryValues
			} else if col, ok := t.Column(catCol); ok {
				values = col.Distinct()
			}
		}
		if values == nil {
			values = []string{}
		}
		spec.Category = &CategoryFilter{Column: catCol, Values: values}
	}

	numCol := def.NumericColumn
	if params.NumericColumn != nil {
		numCol = *params.NumericColumn
	}
	if numCol == "" {
		return spec
	}
	col, ok := t.Column(numCol)
	if !ok {
		return spec
	}
	lo, hi := math.NaN(), math.NaN()
	if numCol == def.NumericColumn && def.Range != nil {
		lo, hi = def.Range.Lo, def.Range.Hi
	} else if _, ok := ColumnBounds(col); ok {
		r := DefaultRange(col, p)
		lo, hi = r.Lo, r.Hi
	}
	if params.RangeLo != nil {
		lo = *params.RangeLo
	}
	if params.RangeHi != nil {
		hi = *params.RangeHi
	}
	spec.Range = NewRangeFilter(col, lo, hi)
	return spec
}

// ColumnInfo describes one column of a loaded table.
type ColumnInfo struct {
	Name    string       `json:"name"`
	Type    dataset.Type `json:"type"`
	Kind    Kind         `json:"kind"`
	Present int          `json:"present"`
	Missing int          `json:"missing"`
}

// Schema is the shape of a loaded table with its default parameters.
type Schema struct {
	Dataset  string         `json:"dataset"`
	Rows     int            `json:"rows"`
	Columns  []ColumnInfo   `json:"columns"`
	Defaults Defaults       `json:"defaults"`
	Preview  *dataset.Table `json:"preview,omitempty"`
}

// DescribeSchema classifies t and reports its columns and defaults, with the
// first previewRows rows (none when previewRows is 0).
func DescribeSchema(t *dataset.Table, p Policy, previewRows int) *Schema {
	class := Classify(t)
	s := &Schema{Dataset: t.Name(), Rows: t.NumRows(), Defaults: SelectDefaults(t, class, p)}
	for _, col := range t.Columns() {
		s.Columns = append(s.Columns, ColumnInfo{
			Name:    col.Name(),
			Type:    col.Type(),
			Kind:    class.Kinds[col.Name()],
			Present: col.Present(),
			Missing: col.Len() - col.Present(),
		})
	}
	if previewRows > 0 {
		s.Preview = t.Head(previewRows)
	}
	return s
}
