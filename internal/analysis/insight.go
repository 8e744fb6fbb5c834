package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// Status tells whether a metric could be computed.
type Status string

const (
	StatusOK Status = "ok"
	// StatusUndefined marks a metric whose columns exist but which has no data.
	StatusUndefined Status = "undefined"
	// StatusNotApplicable marks a metric whose required columns are absent.
	StatusNotApplicable Status = "not_applicable"
)

// Metric is a single insight card. HasDelta is set for segment metrics,
// which compare against the overall mean.
type Metric struct {
	Name     string
	Label    string
	Value    float64
	Delta    float64
	HasDelta bool
	Status   Status
}

func (m Metric) MarshalJSON() ([]byte, error) {
	out := struct {
		Name   string   `json:"name"`
		Label  string   `json:"label"`
		Value  *float64 `json:"value"`
		Delta  *float64 `json:"delta,omitempty"`
		Status Status   `json:"status"`
	}{Name: m.Name, Label: m.Label, Status: m.Status}
	if m.Status == StatusOK {
		out.Value = finite(m.Value)
	}
	if m.HasDelta {
		out.Delta = finite(m.Delta)
	}
	return json.Marshal(out)
}

// Breakdown is the grouped-aggregate table of the insight report.
type Breakdown struct {
	Spec   AggregationSpec `json:"spec"`
	Groups []GroupValue    `json:"groups"`
}

// Insights is the fixed bundle of insight cards for a filtered view.
type Insights struct {
	OverallMean   Metric `json:"overall_mean"`
	SegmentA      Metric `json:"segment_a"`
	SegmentB      Metric `json:"segment_b"`
	Median        Metric `json:"median"`
	ThresholdRate Metric `json:"threshold_rate"`

	FilteredRows       int `json:"filtered_rows"`
	TotalRows          int `json:"total_rows"`
	NumericColumns     int `json:"numeric_columns"`
	CategoricalColumns int `json:"categorical_columns"`

	// Breakdown is nil when its columns are absent.
	Breakdown *Breakdown `json:"breakdown,omitempty"`
}

// Metrics returns the scalar cards in display order.
func (in Insights) Metrics() []Metric {
	return []Metric{in.OverallMean, in.SegmentA, in.SegmentB, in.Median, in.ThresholdRate}
}

// BuildInsights assembles the insight cards for filtered, the view derived
// from a table of totalRows rows classified as c. Metrics whose designated
// columns are absent are marked not applicable; metrics without data are
// undefined. It never fails.
func BuildInsights(filtered *dataset.Table, totalRows int, c Classification, p InsightPolicy) Insights {
	in := Insights{
		FilteredRows:       filtered.NumRows(),
		TotalRows:          totalRows,
		NumericColumns:     len(c.Numeric),
		CategoricalColumns: len(c.Categorical),
	}
	hasMeasure := c.Is(p.Measure, KindNumeric)
	_, hasSegment := c.Kinds[p.Segment]

	in.OverallMean = Metric{Name: "overall_mean", Label: fmt.Sprintf("Avg %s (all)", p.Measure)}
	if hasMeasure {
		in.OverallMean.Value = Mean(filtered, p.Measure)
	}
	in.OverallMean.Status = status(hasMeasure, in.OverallMean.Value)

	in.SegmentA = segmentMetric("segment_a", filtered, p, p.SegmentA, hasMeasure && hasSegment)
	in.SegmentB = segmentMetric("segment_b", filtered, p, p.SegmentB, hasMeasure && hasSegment)

	hasThreshold := c.Is(p.ThresholdColumn, KindNumeric)
	in.Median = Metric{Name: "median", Label: fmt.Sprintf("Median %s", p.ThresholdColumn)}
	in.ThresholdRate = Metric{Name: "threshold_rate", Label: fmt.Sprintf("%s >= %s rate (%%)", p.ThresholdColumn, dataset.FormatFloat(p.Threshold))}
	if hasThreshold {
		in.Median.Value = Median(filtered, p.ThresholdColumn)
		in.ThresholdRate.Value = ThresholdRate(filtered, p.ThresholdColumn, p.Threshold)
	}
	in.Median.Status = status(hasThreshold, in.Median.Value)
	in.ThresholdRate.Status = status(hasThreshold, in.ThresholdRate.Value)

	if c.Is(p.BreakdownGroup, KindCategorical) && c.Is(p.BreakdownMeasure, KindNumeric) {
		spec := AggregationSpec{Group: p.BreakdownGroup, Measure: p.BreakdownMeasure, Func: p.BreakdownFunc}
		if spec.Func == "" {
			spec.Func = AggMean
		}
		in.Breakdown = &Breakdown{Spec: spec, Groups: Aggregate(filtered, spec)}
	}
	return in
}

func segmentMetric(name string, filtered *dataset.Table, p InsightPolicy, value string, applicable bool) Metric {
	m := Metric{
		Name:     name,
		Label:    fmt.Sprintf("Avg %s (%s=%s)", p.Measure, p.Segment, value),
		HasDelta: true,
	}
	if applicable {
		s := SegmentMean(filtered, p.Measure, p.Segment, value)
		m.Value, m.Delta = s.Mean, s.Delta
	}
	m.Status = status(applicable, m.Value)
	return m
}

func status(applicable bool, v float64) Status {
	switch {
	case !applicable:
		return StatusNotApplicable
	case !isFinite(v):
		return StatusUndefined
	default:
		return StatusOK
	}
}
