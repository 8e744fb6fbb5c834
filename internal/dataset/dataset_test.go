package dataset

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

const insuranceCSV = `age,sex,bmi,children,smoker,region,charges
19,female,27.9,0,yes,southwest,16884.924
18,male,33.77,1,no,southeast,1725.5523
28,male,33,3,no,southeast,4449.462
33,male,22.705,0,no,northwest,21984.47061
32,male,,0,no,northwest,3866.8552
`

func TestLoadInfersTypes(t *testing.T) {
	tbl, err := Load("insurance.csv", []byte(insuranceCSV), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.NumRows() != 5 || tbl.NumCols() != 7 {
		t.Fatalf("shape = %dx%d, want 5x7", tbl.NumRows(), tbl.NumCols())
	}
	want := map[string]Type{
		"age": TypeInt, "sex": TypeText, "bmi": TypeFloat, "children": TypeInt,
		"smoker": TypeText, "region": TypeText, "charges": TypeFloat,
	}
	for name, typ := range want {
		c, ok := tbl.Column(name)
		if !ok {
			t.Fatalf("column %q missing", name)
		}
		if c.Type() != typ {
			t.Errorf("%s type = %s, want %s", name, c.Type(), typ)
		}
	}
	bmi, _ := tbl.Column("bmi")
	if !bmi.IsMissing(4) {
		t.Fatalf("empty bmi cell should be missing")
	}
	if got := bmi.Present(); got != 4 {
		t.Fatalf("bmi present = %d, want 4", got)
	}
	if v, ok := bmi.Float(1); !ok || v != 33.77 {
		t.Fatalf("bmi[1] = %v, %v", v, ok)
	}
	if _, ok := bmi.Float(4); ok {
		t.Fatalf("missing cell must not report a value")
	}
}

func TestNewColumnTypes(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  Type
	}{
		{"ints", []string{"1", "2", "NA"}, TypeInt},
		{"floats", []string{"1", "2.5", ""}, TypeFloat},
		{"all missing", []string{"", "nan", "NULL"}, TypeFloat},
		{"bools", []string{"True", "false", "TRUE"}, TypeBool},
		{"yes/no stays text", []string{"yes", "no"}, TypeText},
		{"mixed", []string{"1", "x"}, TypeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewColumn("c", tt.cells...)
			if c.Type() != tt.want {
				t.Fatalf("type = %s, want %s", c.Type(), tt.want)
			}
		})
	}
}

func TestLoadHeaderNames(t *testing.T) {
	tbl, err := Load("dups.csv", []byte("a,a,,a\n1,2,3,4\n"), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := strings.Join(tbl.Names(), "|")
	if got != "a|a.1|Unnamed: 2|a.2" {
		t.Fatalf("names = %s", got)
	}
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"ragged", "a,b\n1,2\n1,2,3\n"},
		{"bad quote", "a,b\n\"x,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Load("bad.csv", []byte(tt.data), Options{})
			if err == nil {
				t.Fatalf("expected load error")
			}
			if tbl != nil {
				t.Fatalf("no partial table may be returned")
			}
			var le *LoadError
			if !errors.As(err, &le) || le.Name != "bad.csv" {
				t.Fatalf("err = %v, want *LoadError", err)
			}
		})
	}
	_, err := Load("bad.csv", nil, Options{})
	if !errors.Is(err, ErrNoColumns) {
		t.Fatalf("err = %v, want ErrNoColumns", err)
	}
	_, err = Load("bad.csv", []byte("a,b\n1,2\n1,2,3\n"), Options{})
	var le *LoadError
	if !errors.As(err, &le) || le.Line != 3 {
		t.Fatalf("expected line 3 in %v", err)
	}
}

func TestLoadOrSample(t *testing.T) {
	tbl, err := LoadOrSample("", nil, Options{})
	if err != nil {
		t.Fatalf("LoadOrSample: %v", err)
	}
	if tbl.Name() != SampleName || tbl.NumRows() != SampleRows {
		t.Fatalf("sample = %s/%d", tbl.Name(), tbl.NumRows())
	}
	if _, err := LoadOrSample("x.csv", []byte{}, Options{}); err == nil {
		t.Fatalf("empty upload must fail, not fall back to the sample")
	}
}

func TestSampleDeterministic(t *testing.T) {
	a, b := Sample(), Sample()
	if strings.Join(a.Names(), ",") != "category,city,value,cost" {
		t.Fatalf("names = %v", a.Names())
	}
	for _, name := range a.Names() {
		ca, _ := a.Column(name)
		cb, _ := b.Column(name)
		for i := 0; i < a.NumRows(); i++ {
			x, _ := ca.Text(i)
			y, _ := cb.Text(i)
			if x != y {
				t.Fatalf("%s[%d] differs: %q vs %q", name, i, x, y)
			}
		}
	}
	city, _ := a.Column("city")
	if n := len(city.Distinct()); n != 4 {
		t.Fatalf("city distinct = %d, want 4", n)
	}
	cost, _ := a.Column("cost")
	for _, v := range cost.Floats() {
		if v < 0 || v != math.Round(v*10)/10 {
			t.Fatalf("cost value %v not a non-negative one-decimal number", v)
		}
	}
	value, _ := a.Column("value")
	mean := 0.0
	for _, v := range value.Floats() {
		mean += v
	}
	mean /= float64(value.Len())
	if mean < 90 || mean > 110 {
		t.Fatalf("value mean %v far from 100", mean)
	}
}

func TestTakeLeavesSourceUntouched(t *testing.T) {
	tbl := MustTable("t",
		NewColumn("x", "1", "2", "3"),
		NewColumn("y", "a", "", "c"),
	)
	view := tbl.Take([]int{2, 0})
	if view.NumRows() != 2 || tbl.NumRows() != 3 {
		t.Fatalf("rows view=%d src=%d", view.NumRows(), tbl.NumRows())
	}
	x, _ := view.Column("x")
	if v, _ := x.Float(0); v != 3 {
		t.Fatalf("view x[0] = %v, want 3", v)
	}
	src, _ := tbl.Column("x")
	if v, _ := src.Float(0); v != 1 {
		t.Fatalf("source mutated: x[0] = %v", v)
	}
	y, _ := tbl.Column("y")
	if got := y.Distinct(); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("distinct = %v", got)
	}
}

func TestNewTableValidates(t *testing.T) {
	if _, err := NewTable("t", NewColumn("a", "1"), NewColumn("a", "2")); err == nil {
		t.Fatalf("expected duplicate name error")
	}
	if _, err := NewTable("t", NewColumn("a", "1"), NewColumn("b", "1", "2")); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestTableJSON(t *testing.T) {
	day := time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC)
	tbl := MustTable("t",
		NewColumn("n", "1.5", ""),
		NewColumn("flag", "true", "false"),
		NewDateColumn("date", []time.Time{day, {}}),
	)
	b, err := json.Marshal(tbl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Rows    int     `json:"row_count"`
		Data    [][]any `json:"rows"`
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Rows != 2 || out.Columns[2].Type != "date" {
		t.Fatalf("decoded = %+v", out)
	}
	if out.Data[0][0] != 1.5 || out.Data[1][0] != nil || out.Data[0][1] != true || out.Data[1][2] != nil {
		t.Fatalf("rows = %#v", out.Data)
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2024-08-10", "2024/08/10", "08/10/2024", "8/10/2024 13:45", "Aug 10, 2024", "20240810", "2024-08-10T10:00:00Z"} {
		if _, ok := ParseTime(s); !ok {
			t.Errorf("ParseTime(%q) failed", s)
		}
	}
	for _, s := range []string{"", "yesterday", "2024-13-45"} {
		if _, ok := ParseTime(s); ok {
			t.Errorf("ParseTime(%q) should fail", s)
		}
	}
}

func TestCacheMemoizes(t *testing.T) {
	c := NewCache(2)
	data := []byte(insuranceCSV)
	var wg sync.WaitGroup
	tables := make([]*Table, 8)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tbl, err := c.Load("insurance.csv", data, Options{})
			if err != nil {
				t.Errorf("Load: %v", err)
				return
			}
			tables[i] = tbl
		}(i)
	}
	wg.Wait()
	first, err := c.Load("insurance.csv", data, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i, tbl := range tables {
		if tbl != nil && tbl != first {
			t.Fatalf("load %d returned a different table", i)
		}
	}
	if c.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", c.Len())
	}

	if _, err := c.Load("a.csv", []byte("a\n1\n"), Options{}); err != nil {
		t.Fatalf("Load a: %v", err)
	}
	if _, err := c.Load("b.csv", []byte("b\n1\n"), Options{}); err != nil {
		t.Fatalf("Load b: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("cache len = %d, want 2 after eviction", c.Len())
	}
	if _, err := c.Load("bad.csv", []byte(""), Options{}); err == nil {
		t.Fatalf("expected error from cached load of bad input")
	}
	if c.Len() != 2 {
		t.Fatalf("failed loads must not be cached")
	}
}
