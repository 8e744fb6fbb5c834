package analysis

import "slices"

// Policy is the defaulting data of the pipeline: ordered candidate lists per
// role, the columns whose default range is percentile-trimmed, and the
// designated insight columns.
type Policy struct {
	FilterCategorical []string      `mapstructure:"filter_categorical" yaml:"filter_categorical" json:"filter_categorical"`
	FilterNumeric     []string      `mapstructure:"filter_numeric" yaml:"filter_numeric" json:"filter_numeric"`
	TrimmedColumns    []string      `mapstructure:"trimmed_columns" yaml:"trimmed_columns" json:"trimmed_columns"`
	TrimLow           float64       `mapstructure:"trim_low" yaml:"trim_low" json:"trim_low"`
	TrimHigh          float64       `mapstructure:"trim_high" yaml:"trim_high" json:"trim_high"`
	Charts            ChartPolicy   `mapstructure:"charts" yaml:"charts" json:"charts"`
	Insights          InsightPolicy `mapstructure:"insights" yaml:"insights" json:"insights"`
}

// ChartPolicy holds the candidate columns for each chart role.
type ChartPolicy struct {
	ScatterX     []string `mapstructure:"scatter_x" yaml:"scatter_x" json:"scatter_x"`
	ScatterY     []string `mapstructure:"scatter_y" yaml:"scatter_y" json:"scatter_y"`
	ScatterColor []string `mapstructure:"scatter_color" yaml:"scatter_color" json:"scatter_color"`
	BarGroup     []string `mapstructure:"bar_group" yaml:"bar_group" json:"bar_group"`
	BarMeasure   []string `mapstructure:"bar_measure" yaml:"bar_measure" json:"bar_measure"`
	Hist         []string `mapstructure:"hist" yaml:"hist" json:"hist"`
	BoxGroup     []string `mapstructure:"box_group" yaml:"box_group" json:"box_group"`
	BoxValue     []string `mapstructure:"box_value" yaml:"box_value" json:"box_value"`
	Bins         int      `mapstructure:"bins" yaml:"bins" json:"bins"`
}

// InsightPolicy designates the columns behind the insight cards.
type InsightPolicy struct {
	Measure          string  `mapstructure:"measure" yaml:"measure" json:"measure"`
	Segment          string  `mapstructure:"segment" yaml:"segment" json:"segment"`
	SegmentA         string  `mapstructure:"segment_a" yaml:"segment_a" json:"segment_a"`
	SegmentB         string  `mapstructure:"segment_b" yaml:"segment_b" json:"segment_b"`
	ThresholdColumn  string  `mapstructure:"threshold_column" yaml:"threshold_column" json:"threshold_column"`
	Threshold        float64 `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	BreakdownGroup   string  `mapstructure:"breakdown_group" yaml:"breakdown_group" json:"breakdown_group"`
	BreakdownMeasure string  `mapstructure:"breakdown_measure" yaml:"breakdown_measure" json:"breakdown_measure"`
	BreakdownFunc    AggFunc `mapstructure:"breakdown_func" yaml:"breakdown_func" json:"breakdown_func"`
}

const (
	DefaultBins = 30
	MinBins     = 5
	MaxBins     = 100
)

// DefaultPolicy returns the defaults tuned for the insurance schema
// (age, sex, bmi, children, smoker, region, charges) and the synthetic sample.
func DefaultPolicy() Policy {
	return Policy{
		FilterCategorical: []string{"smoker", "region", "sex", "category", "city"},
		FilterNumeric:     []string{"charges", "bmi", "value", "cost"},
		TrimmedColumns:    []string{"charges"},
		TrimLow:           5,
		TrimHigh:          95,
		Charts: ChartPolicy{
			ScatterX:     []string{"bmi"},
			ScatterY:     []string{"charges"},
			ScatterColor: []string{"smoker"},
			BarGroup:     []string{"region"},
			BarMeasure:   []string{"charges"},
			Hist:         []string{"bmi"},
			BoxGroup:     []string{"smoker"},
			BoxValue:     []string{"charges"},
			Bins:         DefaultBins,
		},
		Insights: InsightPolicy{
			Measure:          "charges",
			Segment:          "smoker",
			SegmentA:         "yes",
			SegmentB:         "no",
			ThresholdColumn:  "bmi",
			Threshold:        30,
			BreakdownGroup:   "region",
			BreakdownMeasure: "charges",
			BreakdownFunc:    AggMean,
		},
	}
}

// trimmed reports whether the default range of column is percentile-trimmed.
func (p Policy) trimmed(column string) bool {
	return slices.Contains(p.TrimmedColumns, column)
}

// trimBounds returns the trim percentiles, falling back to 5/95 when unset
// or out of order.
func (p Policy) trimBounds() (lo, hi float64) {
	lo, hi = p.TrimLow, p.TrimHigh
	if lo <= 0 && hi <= 0 || lo < 0 || hi > 100 || lo >= hi {
		return 5, 95
	}
	return lo, hi
}

// ClampBins bounds a histogram bin count to [MinBins, MaxBins]; zero means
// the policy default.
func (c ChartPolicy) ClampBins(n int) int {
	if n == 0 {
		n = c.Bins
	}
	if n == 0 {
		n = DefaultBins
	}
	return min(max(n, MinBins), MaxBins)
}
