package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// AggFunc names a grouped aggregation.
type AggFunc string

const (
	AggSum    AggFunc = "sum"
	AggMean   AggFunc = "mean"
	AggMedian AggFunc = "median"
	AggCount  AggFunc = "count"
)

// ErrUnknownAggFunc is returned by ParseAggFunc for unsupported names.
var ErrUnknownAggFunc = errors.New("unknown aggregation function")

// AggFuncs lists the supported aggregation functions.
var AggFuncs = []AggFunc{AggSum, AggMean, AggMedian, AggCount}

// ParseAggFunc resolves a user-supplied function name. Empty means mean.
func ParseAggFunc(s string) (AggFunc, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AggMean, nil
	}
	for _, f := range AggFuncs {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want sum, mean, median or count)", ErrUnknownAggFunc, s)
}

// Title returns the function name for chart titles, e.g. "Mean".
func (f AggFunc) Title() string {
	if f == "" {
		return ""
	}
	return strings.ToUpper(string(f[:1])) + string(f[1:])
}

// AggregationSpec selects a grouping column, a measure column and a function.
type AggregationSpec struct {
	Group   string  `json:"group"`
	Measure string  `json:"measure"`
	Func    AggFunc `json:"func"`
}

// GroupValue is one aggregated group. Value is NaN when the group has no
// present measure values and Func is not count.
type GroupValue struct {
	Group string
	Value float64
	// Count is the number of present measure values in the group.
	Count int
}

func (g GroupValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Group string   `json:"group"`
		Value *float64 `json:"value"`
		Count int      `json:"count"`
	}{g.Group, finite(g.Value), g.Count})
}

// Aggregate groups t by spec.Group and reduces spec.Measure with spec.Func.
// Rows with a missing group value are dropped; missing measure values are
// ignored. Groups are returned by value descending, ties in group text
// order, undefined values last. Absent columns yield no groups.
func Aggregate(t *dataset.Table, spec AggregationSpec) []GroupValue {
	gcol, ok := t.Column(spec.Group)
	if !ok {
		return nil
	}
	mcol, ok := t.Column(spec.Measure)
	if !ok {
		return nil
	}
	fn := spec.Func
	if fn == "" {
		fn = AggMean
	}
	type acc struct {
		vals  []float64
		count int
	}
	groups := make(map[string]*acc)
	for i := 0; i < t.NumRows(); i++ {
		key, ok := gcol.Text(i)
		if !ok {
			continue
		}
		a := groups[key]
		if a == nil {
			a = &acc{}
			groups[key] = a
		}
		if mcol.IsMissing(i) {
			continue
		}
		a.count++
		if v, ok := mcol.Float(i); ok {
			a.vals = append(a.vals, v)
		}
	}
	out := make([]GroupValue, 0, len(groups))
	for key, a := range groups {
		gv := GroupValue{Group: key, Count: a.count}
		switch fn {
		case AggSum:
			gv.Value = sum(a.vals)
		case AggMedian:
			gv.Value = median(a.vals)
		case AggCount:
			gv.Value = float64(a.count)
		default:
			gv.Value = mean(a.vals)
		}
		out = append(out, gv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Value, out[j].Value
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})
	return out
}

// Mean is the mean of the present values of column, NaN when the column is
// absent or has no values.
func Mean(t *dataset.Table, column string) float64 {
	return mean(floatsOf(t, column))
}

// Median is the median of the present values of column, NaN when the column
// is absent or has no values.
func Median(t *dataset.Table, column string) float64 {
	return median(floatsOf(t, column))
}

// Segment is the mean of a measure over the rows where a segment column
// equals Value, with its difference from the overall mean.
type Segment struct {
	Value string
	Mean  float64
	// Delta is Mean minus the overall mean, or 0 when either is NaN or infinite.
	Delta float64
}

// SegmentMean computes the measure mean over rows whose segment text equals
// value (case-insensitive) and its delta from the overall measure mean.
func SegmentMean(t *dataset.Table, measure, segment, value string) Segment {
	s := Segment{Value: value, Mean: math.NaN()}
	mcol, ok := t.Column(measure)
	if !ok {
		return s
	}
	scol, ok := t.Column(segment)
	if !ok {
		return s
	}
	var vals []float64
	for i := 0; i < t.NumRows(); i++ {
		txt, ok := scol.Text(i)
		if !ok || !strings.EqualFold(txt, value) {
			continue
		}
		if v, ok := mcol.Float(i); ok {
			vals = append(vals, v)
		}
	}
	s.Mean = mean(vals)
	if overall := mean(mcol.Floats()); isFinite(s.Mean) && isFinite(overall) {
		s.Delta = s.Mean - overall
	}
	return s
}

// ThresholdRate is the percentage of present values of column that are
// >= threshold. Missing values are excluded from the denominator; the rate
// is NaN when there are no present values.
func ThresholdRate(t *dataset.Table, column string, threshold float64) float64 {
	vals := floatsOf(t, column)
	if len(vals) == 0 {
		return math.NaN()
	}
	n := 0
	for _, v := range vals {
		if v >= threshold {
			n++
		}
	}
	return float64(n) * 100 / float64(len(vals))
}

func floatsOf(t *dataset.Table, column string) []float64 {
	col, ok := t.Column(column)
	if !ok {
		return nil
	}
	return col.Floats()
}
