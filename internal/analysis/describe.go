package analysis

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// OutlierThreshold is the robust Z-score above which a value counts as an outlier.
const OutlierThreshold = 3.5

// ColumnSummary captures descriptive statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    Kind
	Type    dataset.Type
	Count   int
	Missing int
	// Numeric stats
	Mean, Std, Min, Q25, Q50, Q75, Max float64
	Outliers                           int
	// Categorical and date stats
	Unique    int
	TopValues []CategoryCount
}

// CategoryCount is a distinct value and its frequency.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Top returns the most frequent value and its count.
func (s ColumnSummary) Top() (string, int) {
	if len(s.TopValues) == 0 {
		return "", 0
	}
	return s.TopValues[0].Value, s.TopValues[0].Count
}

func (s ColumnSummary) MarshalJSON() ([]byte, error) {
	type numeric struct {
		Mean     *float64 `json:"mean"`
		Std      *float64 `json:"std"`
		Min      *float64 `json:"min"`
		Q25      *float64 `json:"25%"`
		Q50      *float64 `json:"50%"`
		Q75      *float64 `json:"75%"`
		Max      *float64 `json:"max"`
		Outliers int      `json:"outliers"`
	}
	out := struct {
		Name      string          `json:"name"`
		Kind      Kind            `json:"kind"`
		Type      dataset.Type    `json:"type"`
		Count     int             `json:"count"`
		Missing   int             `json:"missing"`
		Stats     *numeric        `json:"stats,omitempty"`
		Unique    int             `json:"unique,omitempty"`
		TopValues []CategoryCount `json:"top_values,omitempty"`
	}{Name: s.Name, Kind: s.Kind, Type: s.Type, Count: s.Count, Missing: s.Missing, Unique: s.Unique, TopValues: s.TopValues}
	if s.Kind == KindNumeric {
		out.Stats = &numeric{
			Mean: finite(s.Mean), Std: finite(s.Std), Min: finite(s.Min),
			Q25: finite(s.Q25), Q50: finite(s.Q50), Q75: finite(s.Q75), Max: finite(s.Max),
			Outliers: s.Outliers,
		}
	}
	return json.Marshal(out)
}

// Describe summarizes every column of t: counts for all columns, location
// and spread for numeric columns, distinct values and frequencies for the rest.
func Describe(t *dataset.Table, c Classification) []ColumnSummary {
	out := make([]ColumnSummary, 0, t.NumCols())
	for _, col := range t.Columns() {
		s := ColumnSummary{
			Name:    col.Name(),
			Kind:    c.Kinds[col.Name()],
			Type:    col.Type(),
			Count:   col.Present(),
			Missing: col.Len() - col.Present(),
		}
		if s.Kind == KindNumeric {
			describeNumeric(&s, col.Floats())
		} else {
			describeCategorical(&s, col)
		}
		out = append(out, s)
	}
	return out
}

func describeNumeric(s *ColumnSummary, vals []float64) {
	nan := math.NaN()
	s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
	if len(vals) == 0 {
		return
	}
	sorted := sortedCopy(vals)
	s.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	s.Min = sorted[0]
	s.Q25 = quantile(sorted, 0.25)
	s.Q50 = quantile(sorted, 0.5)
	s.Q75 = quantile(sorted, 0.75)
	s.Max = sorted[len(sorted)-1]
	s.Outliers = robustOutliers(sorted, OutlierThreshold)
}

func describeCategorical(s *ColumnSummary, col *dataset.Column) {
	cats := make(map[string]int)
	for i := 0; i < col.Len(); i++ {
		if v, ok := col.Text(i); ok {
			cats[v]++
		}
	}
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > 8 {
		tops = tops[:8]
	}
	s.Unique = len(cats)
	s.TopValues = tops
}
