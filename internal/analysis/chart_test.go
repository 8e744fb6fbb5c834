package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

func TestPlanChartDefaults(t *testing.T) {
	tbl := insuranceTable()
	c := Classify(tbl)
	p := DefaultPolicy().Charts
	tests := []struct {
		req   ChartRequest
		x, y  string
		color string
		title string
	}{
		{ChartRequest{}, "bmi", "charges", "smoker", "charges vs bmi"},
		{ChartRequest{Mode: ChartBar}, "region", "charges", "", "Mean of charges by region"},
		{ChartRequest{Mode: ChartBar, Func: AggCount}, "region", "charges", "", "Count of charges by region"},
		{ChartRequest{Mode: ChartHistogram}, "bmi", "", "", "Distribution of bmi"},
		{ChartRequest{Mode: ChartBox}, "smoker", "charges", "", "charges by smoker"},
		{ChartRequest{Mode: ChartScatter, X: "age", Y: "children", Color: "sex"}, "age", "children", "sex", "children vs age"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			plan := PlanChart(tbl, c, p, tt.req)
			if !plan.OK() {
				t.Fatalf("guidance: %s", plan.Guidance)
			}
			if plan.X != tt.x || plan.Y != tt.y || plan.Color != tt.color || plan.Title != tt.title {
				t.Fatalf("plan = %+v", plan)
			}
		})
	}
}

func TestPlanChartBarGroups(t *testing.T) {
	tbl := insuranceTable()
	plan := PlanChart(tbl, Classify(tbl), DefaultPolicy().Charts, ChartRequest{Mode: ChartBar})
	if len(plan.Groups) != 3 || plan.Groups[0].Group != "southwest" {
		t.Fatalf("groups = %+v", plan.Groups)
	}
	for i := 1; i < len(plan.Groups); i++ {
		if plan.Groups[i].Value > plan.Groups[i-1].Value {
			t.Fatalf("groups not sorted descending: %+v", plan.Groups)
		}
	}
}

func TestPlanChartBins(t *testing.T) {
	tbl := insuranceTable()
	c := Classify(tbl)
	p := DefaultPolicy().Charts
	for in, want := range map[int]int{0: 30, 1: 5, 5: 5, 42: 42, 500: 100} {
		plan := PlanChart(tbl, c, p, ChartRequest{Mode: ChartHistogram, Bins: in})
		if plan.Bins != want {
			t.Fatalf("bins(%d) = %d, want %d", in, plan.Bins, want)
		}
	}
}

func TestPlanChartGuidance(t *testing.T) {
	oneNumeric := dataset.MustTable("t",
		dataset.NewColumn("g", "a", "b"),
		dataset.NewColumn("v", "1", "2"),
	)
	onlyText := dataset.MustTable("t", dataset.NewColumn("g", "a", "b"))
	tests := []struct {
		name string
		tbl  *dataset.Table
		req  ChartRequest
		want string
	}{
		{"scatter needs two numeric", oneNumeric, ChartRequest{Mode: ChartScatter}, "two numeric"},
		{"bar needs numeric", onlyText, ChartRequest{Mode: ChartBar}, "one categorical and one numeric"},
		{"box needs numeric", onlyText, ChartRequest{Mode: ChartBox}, "one categorical and one numeric"},
		{"histogram needs numeric", onlyText, ChartRequest{Mode: ChartHistogram}, "numeric column"},
		{"line needs date", oneNumeric, ChartRequest{Mode: ChartLine}, "No date-like column"},
		{"requested column kind", oneNumeric, ChartRequest{Mode: ChartHistogram, X: "g"}, `"g" is not numeric`},
		{"unknown mode", oneNumeric, ChartRequest{Mode: "pie"}, "unknown chart mode"},
		{"unknown func", oneNumeric, ChartRequest{Mode: ChartBar, Func: "mode"}, "unknown aggregation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanChart(tt.tbl, Classify(tt.tbl), DefaultPolicy().Charts, tt.req)
			if plan.OK() || !strings.Contains(plan.Guidance, tt.want) {
				t.Fatalf("guidance = %q, want it to contain %q", plan.Guidance, tt.want)
			}
			if plan.X != "" || plan.Y != "" {
				t.Fatalf("unsatisfiable plan must not name columns: %+v", plan)
			}
		})
	}
}

func TestPlanChartLineSortsByDate(t *testing.T) {
	tbl := dataset.MustTable("t",
		dataset.NewColumn("date", "2024-03-01", "2024-01-01", "", "2024-02-01"),
		dataset.NewColumn("v", "3", "1", "9", "2"),
	)
	plan := PlanChart(tbl, Classify(tbl), DefaultPolicy().Charts, ChartRequest{Mode: ChartLine})
	if !plan.OK() || plan.X != "date" || plan.Y != "v" {
		t.Fatalf("plan = %+v", plan)
	}
	v, _ := plan.Data.Column("v")
	if !equalFloats(v.Floats(), []float64{1, 2, 3, 9}) {
		t.Fatalf("line data = %v", v.Floats())
	}
	src, _ := tbl.Column("v")
	if !equalFloats(src.Floats(), []float64{3, 1, 9, 2}) {
		t.Fatalf("source reordered: %v", src.Floats())
	}
}

func TestParseChartMode(t *testing.T) {
	for in, want := range map[string]ChartMode{"": ChartScatter, "Bar": ChartBar, "hist": ChartHistogram, "line": ChartLine} {
		got, err := ParseChartMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseChartMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseChartMode("pie"); !errors.Is(err, ErrUnknownChartMode) {
		t.Fatalf("err = %v", err)
	}
}
