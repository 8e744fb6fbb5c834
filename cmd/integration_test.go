package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const insuranceCSV = `age,sex,bmi,children,smoker,region,charges
19,female,27.9,0,yes,southwest,16884.924
18,male,33.77,1,no,southeast,1725.5523
28,male,33,3,no,southeast,4449.462
33,male,22.705,0,no,northwest,21984.47061
32,male,,0,no,northwest,3866.8552
`

// resetFlags restores every flag to its default so values and Changed state
// do not leak between invocations of the shared rootCmd.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(interface{ Replace([]string) error }); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmdErr executes the root command with args and returns stdout and stderr.
func runCmdErr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, _, err := runCmdErr(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// setupHome isolates config under a temp HOME and writes the insurance fixture.
func setupHome(t *testing.T) (home, csvPath string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	csvPath = filepath.Join(home, "insurance.csv")
	if err := os.WriteFile(csvPath, []byte(insuranceCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return home, csvPath
}

type exploreJSON struct {
	Dataset  string `json:"dataset"`
	Insights struct {
		FilteredRows int `json:"filtered_rows"`
		TotalRows    int `json:"total_rows"`
		OverallMean  struct {
			Value  *float64 `json:"value"`
			Status string   `json:"status"`
		} `json:"overall_mean"`
	} `json:"insights"`
	Chart struct {
		Mode     string `json:"mode"`
		Title    string `json:"title"`
		Guidance string `json:"guidance"`
	} `json:"chart"`
}

func decodeExplore(t *testing.T, out string) exploreJSON {
	t.Helper()
	var v exploreJSON
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return v
}

func TestCLI_ExploreSampleMarkdown(t *testing.T) {
	setupHome(t)
	out := runCmd(t, "explore")
	for _, want := range []string{"[DATASET SUMMARY]", "File: sample", "Rows: 400", "[INSIGHTS]", "[CHART]", "X: value"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_ExploreFiltersJSON(t *testing.T) {
	_, csvPath := setupHome(t)

	def := decodeExplore(t, runCmd(t, "explore", csvPath, "--format", "json"))
	if def.Dataset != "insurance.csv" || def.Insights.FilteredRows != 3 || def.Insights.TotalRows != 5 {
		t.Fatalf("defaults = %+v", def)
	}

	yes := decodeExplore(t, runCmd(t, "explore", csvPath, "--format", "json", "--values", "yes", "--numeric", "", "--chart", "bar", "--func", "count"))
	if yes.Insights.FilteredRows != 1 || yes.Chart.Title != "Count of charges by region" {
		t.Fatalf("smokers = %+v", yes)
	}

	none := decodeExplore(t, runCmd(t, "explore", csvPath, "--format", "json", "--values="))
	if none.Insights.FilteredRows != 0 || none.Insights.OverallMean.Value != nil || none.Insights.OverallMean.Status != "undefined" {
		t.Fatalf("empty selection = %+v", none)
	}

	// Flags from the previous run must not leak into this one.
	again := decodeExplore(t, runCmd(t, "explore", csvPath, "--format", "json"))
	if again.Insights.FilteredRows != 3 || again.Chart.Mode != "scatter" {
		t.Fatalf("flag state leaked: %+v", again)
	}

	bounded := decodeExplore(t, runCmd(t, "explore", csvPath, "--format", "json", "--category", "", "--lo", "4000", "--hi", "17000"))
	if bounded.Insights.FilteredRows != 2 {
		t.Fatalf("bounded = %+v", bounded)
	}
}

func TestCLI_ExploreGuidanceIsNotAnError(t *testing.T) {
	home, _ := setupHome(t)
	p := filepath.Join(home, "text.csv")
	if err := os.WriteFile(p, []byte("g\na\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := decodeExplore(t, runCmd(t, "explore", p, "--format", "json", "--chart", "histogram"))
	if res.Chart.Guidance == "" {
		t.Fatalf("expected guidance: %+v", res.Chart)
	}
}

func TestCLI_ExploreInfiniteCellsJSON(t *testing.T) {
	home, _ := setupHome(t)
	p := filepath.Join(home, "inf.csv")
	if err := os.WriteFile(p, []byte("smoker,charges\nyes,100\nno,inf\nyes,9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := runCmd(t, "explore", p, "--format", "json")
	res := decodeExplore(t, out)
	if res.Insights.FilteredRows != 2 || res.Insights.OverallMean.Status != "undefined" {
		t.Fatalf("explore = %+v", res)
	}
	if strings.Contains(out, "Inf") {
		t.Fatalf("Inf leaked into JSON:\n%s", out)
	}
}

func TestCLI_ExploreWritesOutput(t *testing.T) {
	home, csvPath := setupHome(t)
	outPath := filepath.Join(home, "out.md")
	out := runCmd(t, "explore", csvPath, "--output", outPath, "--chart", "box")
	if !strings.Contains(out, "✓ Wrote exploration to") {
		t.Fatalf("stdout = %q", out)
	}
	body, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(body), "Title: charges by smoker") {
		t.Fatalf("output file:\n%s", body)
	}
}

func TestCLI_ExploreErrors(t *testing.T) {
	home, csvPath := setupHome(t)
	bad := filepath.Join(home, "bad.csv")
	if err := os.WriteFile(bad, []byte("a,b\n1,2\n1,2,3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown chart", []string{"explore", csvPath, "--chart", "pie"}, "unknown chart mode"},
		{"unknown func", []string{"explore", csvPath, "--func", "mode"}, "unknown aggregation"},
		{"bad delimiter", []string{"explore", csvPath, "--delimiter", "x"}, "unsupported --delimiter"},
		{"bad format", []string{"explore", csvPath, "--format", "xml"}, "unsupported --format"},
		{"ragged row", []string{"explore", bad}, "line 3"},
		{"missing file", []string{"explore", filepath.Join(home, "nope.csv")}, "read file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCmdErr(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestCLI_SchemaBatch(t *testing.T) {
	home, _ := setupHome(t)
	for _, d := range []string{"d1", "d2"} {
		dir := filepath.Join(home, d)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "metrics.csv"), []byte("col1,col2\nA,1\nB,2\nC,3\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out, errOut, err := runCmdErr(t, "schema", filepath.Join(home, "d*", "metrics.csv"), "--format", "json")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(errOut, "[1/2] Processing metrics.csv") || !strings.Contains(errOut, "[2/2]") {
		t.Fatalf("progress = %q", errOut)
	}
	var schemas []struct {
		Rows    int `json:"rows"`
		Columns []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"columns"`
	}
	if err := json.Unmarshal([]byte(out), &schemas); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(schemas) != 2 || schemas[0].Rows != 3 || schemas[0].Columns[1].Kind != "numeric" {
		t.Fatalf("schemas = %+v", schemas)
	}

	_, errOut, err = runCmdErr(t, "schema", filepath.Join(home, "d*", "metrics.csv"), "--quiet")
	if err != nil || errOut != "" {
		t.Fatalf("quiet run: err=%v stderr=%q", err, errOut)
	}
}

func TestCLI_SchemaSample(t *testing.T) {
	setupHome(t)
	out := runCmd(t, "schema", "--head", "0")
	for _, want := range []string{"[SCHEMA]", "- value: numeric", "- category: categorical", "[DEFAULTS]", "- category: category (5 values)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[HEAD]") {
		t.Fatalf("--head 0 should omit rows:\n%s", out)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home, csvPath := setupHome(t)
	runCmd(t, "config", "set", "server.addr", "0.0.0.0:9999")
	runCmd(t, "config", "set", "policy.filter_categorical", "region")

	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "0.0.0.0:9999") || !strings.Contains(out, filepath.Join(home, ".tabloom", "config.yaml")) {
		t.Fatalf("show = %s", out)
	}

	// The saved policy now drives the default category filter.
	res := runCmd(t, "explore", csvPath)
	if !strings.Contains(res, "- region in {") {
		t.Fatalf("policy not applied:\n%s", res)
	}

	if _, _, err := runCmdErr(t, "config", "set", "bogus", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	keys := runCmd(t, "config", "keys")
	if !strings.Contains(keys, "policy.insights.measure") {
		t.Fatalf("keys = %s", keys)
	}
}
