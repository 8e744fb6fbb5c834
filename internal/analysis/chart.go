package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// ChartMode is one of the five supported chart kinds.
type ChartMode string

const (
	ChartScatter   ChartMode = "scatter"
	ChartBar       ChartMode = "bar"
	ChartHistogram ChartMode = "histogram"
	ChartBox       ChartMode = "box"
	ChartLine      ChartMode = "line"
)

// ChartModes lists the supported modes in menu order.
var ChartModes = []ChartMode{ChartScatter, ChartBar, ChartHistogram, ChartBox, ChartLine}

// ErrUnknownChartMode is returned by ParseChartMode for unsupported names.
var ErrUnknownChartMode = errors.New("unknown chart mode")

// ParseChartMode resolves a user-supplied mode name. Empty means scatter;
// "hist" is accepted for histogram.
func ParseChartMode(s string) (ChartMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return ChartScatter, nil
	case "hist":
		return ChartHistogram, nil
	}
	for _, m := range ChartModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChartMode, s)
}

// ChartRequest is the user's chart selection. Blank fields take policy
// defaults.
type ChartRequest struct {
	Mode    ChartMode `json:"mode,omitempty"`
	X       string    `json:"x,omitempty"`
	Y       string    `json:"y,omitempty"`
	Color   string    `json:"color,omitempty"`
	Group   string    `json:"group,omitempty"`
	Measure string    `json:"measure,omitempty"`
	Func    AggFunc   `json:"func,omitempty"`
	Bins    int       `json:"bins,omitempty"`
	Date    string    `json:"date,omitempty"`
}

// ChartPlan is the resolved column selection for the rendering side. When
// the request cannot be satisfied Guidance explains why and no columns are set.
type ChartPlan struct {
	Mode     ChartMode `json:"mode"`
	Title    string    `json:"title,omitempty"`
	X        string    `json:"x,omitempty"`
	Y        string    `json:"y,omitempty"`
	Color    string    `json:"color,omitempty"`
	Func     AggFunc   `json:"func,omitempty"`
	Bins     int       `json:"bins,omitempty"`
	Guidance string    `json:"guidance,omitempty"`
	// Groups holds the aggregated bars of a bar chart.
	Groups []GroupValue `json:"groups,omitempty"`
	// Data holds the date-sorted view of a line chart.
	Data *dataset.Table `json:"data,omitempty"`
}

// OK reports whether the plan can be drawn.
func (p ChartPlan) OK() bool { return p.Guidance == "" }

const (
	guideScatter = "Need at least two numeric columns."
	guideCatNum  = "Need at least one categorical and one numeric column."
	guideNumeric = "Need at least one numeric column."
	guideDate    = "No date-like column detected. Add/rename a date column to use a time series chart."
)

// PlanChart resolves req against the classification of the filtered view.
// Unsatisfiable requests produce a plan carrying guidance instead of an error.
func PlanChart(filtered *dataset.Table, c Classification, p ChartPolicy, req ChartRequest) ChartPlan {
	mode := req.Mode
	if mode == "" {
		mode = ChartScatter
	}
	plan := ChartPlan{Mode: mode}
	var err error
	switch mode {
	case ChartScatter:
		err = planScatter(&plan, c, p, req)
	case ChartBar:
		err = planBar(&plan, filtered, c, p, req)
	case ChartHistogram:
		err = planHistogram(&plan, c, p, req)
	case ChartBox:
		err = planBox(&plan, c, p, req)
	case ChartLine:
		err = planLine(&plan, filtered, c, req)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownChartMode, mode)
	}
	if err != nil {
		return ChartPlan{Mode: mode, Guidance: err.Error()}
	}
	return plan
}

func planScatter(plan *ChartPlan, c Classification, p ChartPolicy, req ChartRequest) error {
	if len(c.Numeric) < 2 {
		return errors.New(guideScatter)
	}
	x, err := resolve(c, req.X, p.ScatterX, KindNumeric, "")
	if err != nil {
		return err
	}
	y, err := resolve(c, req.Y, p.ScatterY, KindNumeric, x)
	if err != nil {
		return err
	}
	color := req.Color
	if color != "" {
		if !c.Is(color, KindCategorical) {
			return fmt.Errorf("column %q is not categorical", color)
		}
	} else {
		for _, name := range p.ScatterColor {
			if c.Is(name, KindCategorical) {
				color = name
				break
			}
		}
	}
	plan.X, plan.Y, plan.Color = x, y, color
	plan.Title = fmt.Sprintf("%s vs %s", y, x)
	return nil
}

func planBar(plan *ChartPlan, filtered *dataset.Table, c Classification, p ChartPolicy, req ChartRequest) error {
	if len(c.Categorical) == 0 || len(c.Numeric) == 0 {
		return errors.New(guideCatNum)
	}
	group, err := resolve(c, firstNonEmpty(req.Group, req.X), p.BarGroup, KindCategorical, "")
	if err != nil {
		return err
	}
	measure, err := resolve(c, firstNonEmpty(req.Measure, req.Y), p.BarMeasure, KindNumeric, "")
	if err != nil {
		return err
	}
	fn := req.Func
	if fn == "" {
		fn = AggMean
	}
	if _, err := ParseAggFunc(string(fn)); err != nil {
		return err
	}
	plan.X, plan.Y, plan.Func = group, measure, fn
	plan.Groups = Aggregate(filtered, AggregationSpec{Group: group, Measure: measure, Func: fn})
	plan.Title = fmt.Sprintf("%s of %s by %s", fn.Title(), measure, group)
	return nil
}

func planHistogram(plan *ChartPlan, c Classification, p ChartPolicy, req ChartRequest) error {
	if len(c.Numeric) == 0 {
		return errors.New(guideNumeric)
	}
	x, err := resolve(c, firstNonEmpty(req.X, req.Measure), p.Hist, KindNumeric, "")
	if err != nil {
		return err
	}
	plan.X = x
	plan.Bins = p.ClampBins(req.Bins)
	plan.Title = fmt.Sprintf("Distribution of %s", x)
	return nil
}

func planBox(plan *ChartPlan, c Classification, p ChartPolicy, req ChartRequest) error {
	if len(c.Categorical) == 0 || len(c.Numeric) == 0 {
		return errors.New(guideCatNum)
	}
	group, err := resolve(c, firstNonEmpty(req.Group, req.X), p.BoxGroup, KindCategorical, "")
	if err != nil {
		return err
	}
	value, err := resolve(c, firstNonEmpty(req.Measure, req.Y), p.BoxValue, KindNumeric, "")
	if err != nil {
		return err
	}
	plan.X, plan.Y = group, value
	plan.Title = fmt.Sprintf("%s by %s", value, group)
	return nil
}

func planLine(plan *ChartPlan, filtered *dataset.Table, c Classification, req ChartRequest) error {
	if len(c.Date) == 0 {
		return errors.New(guideDate)
	}
	if len(c.Numeric) == 0 {
		return errors.New(guideNumeric)
	}
	date, err := resolve(c, firstNonEmpty(req.Date, req.X), nil, KindDate, "")
	if err != nil {
		return err
	}
	value, err := resolve(c, firstNonEmpty(req.Y, req.Measure), nil, KindNumeric, "")
	if err != nil {
		return err
	}
	plan.X, plan.Y = date, value
	plan.Data = SortByTime(filtered, date)
	plan.Title = fmt.Sprintf("%s over time", value)
	return nil
}

// resolve returns the requested column when it has kind k, or else the first
// candidate of kind k, or else the first column of kind k other than avoid
// (avoid is ignored when it is the only column of that kind).
func resolve(c Classification, requested string, candidates []string, k Kind, avoid string) (string, error) {
	if requested != "" {
		if !c.Is(requested, k) {
			return "", fmt.Errorf("column %q is not %s", requested, k)
		}
		return requested, nil
	}
	for _, name := range candidates {
		if c.Is(name, k) && name != avoid {
			return name, nil
		}
	}
	names := c.Names(k)
	for _, name := range names {
		if name != avoid {
			return name, nil
		}
	}
	if len(names) > 0 {
		return names[0], nil
	}
	return "", fmt.Errorf("no %s column", k)
}

// SortByTime returns t ordered by the timestamps of column, ascending.
// The sort is stable; missing and unparseable cells go last.
func SortByTime(t *dataset.Table, column string) *dataset.Table {
	col, ok := t.Column(column)
	if !ok {
		return t
	}
	type key struct {
		row int
		ts  time.Time
		ok  bool
	}
	keys := make([]key, t.NumRows())
	for i := range keys {
		ts, ok := col.Time(i)
		keys[i] = key{row: i, ts: ts, ok: ok}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if !keys[j].ok {
			return keys[i].ok
		}
		return keys[i].ok && keys[i].ts.Before(keys[j].ts)
	})
	rows := make([]int, len(keys))
	for i, k := range keys {
		rows[i] = k.row
	}
	return t.Take(rows)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
