// Package dataset holds the in-memory table model: typed, immutable columns
// built from uploaded records or generated samples.
package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Type is the declared value type of a column.
type Type string

const (
	TypeInt   Type = "int"
	TypeFloat Type = "float"
	TypeBool  Type = "bool"
	TypeText  Type = "text"
	TypeDate  Type = "date"
)

// IsNumeric reports whether values of t are integers or floating point.
func (t Type) IsNumeric() bool { return t == TypeInt || t == TypeFloat }

// Column is a named sequence of values of a single declared type. Every cell
// keeps its textual representation; numeric and date cells also keep the
// parsed value. A Column is never modified after construction.
type Column struct {
	name    string
	typ     Type
	text    []string
	nums    []float64
	times   []time.Time
	missing []bool
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Type returns the declared value type.
func (c *Column) Type() Type { return c.typ }

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.missing) }

// IsMissing reports whether cell i holds the missing marker.
func (c *Column) IsMissing(i int) bool { return c.missing[i] }

// Text returns the textual representation of cell i. Missing cells report false.
func (c *Column) Text(i int) (string, bool) {
	if c.missing[i] {
		return "", false
	}
	return c.text[i], true
}

// Float returns the numeric value of cell i. Missing and non-numeric cells report false.
func (c *Column) Float(i int) (float64, bool) {
	if c.missing[i] || c.nums == nil {
		return 0, false
	}
	return c.nums[i], true
}

// Time returns cell i as a timestamp. Date columns return the stored value;
// other columns parse the cell text.
func (c *Column) Time(i int) (time.Time, bool) {
	if c.missing[i] {
		return time.Time{}, false
	}
	if c.times != nil {
		return c.times[i], true
	}
	return ParseTime(c.text[i])
}

// Value returns cell i as a plain Go value for encoding: float64, bool,
// string, time.Time, or nil when missing.
func (c *Column) Value(i int) any {
	if c.missing[i] {
		return nil
	}
	switch c.typ {
	case TypeInt, TypeFloat:
		return c.nums[i]
	case TypeBool:
		return strings.EqualFold(c.text[i], "true")
	case TypeDate:
		return c.times[i]
	default:
		return c.text[i]
	}
}

// Present returns the count of non-missing cells.
func (c *Column) Present() int {
	n := 0
	for _, m := range c.missing {
		if !m {
			n++
		}
	}
	return n
}

// Floats returns the numeric values of present cells in row order.
func (c *Column) Floats() []float64 {
	if c.nums == nil {
		return nil
	}
	out := make([]float64, 0, len(c.nums))
	for i, v := range c.nums {
		if !c.missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// Distinct returns the sorted distinct textual values of present cells.
func (c *Column) Distinct() []string {
	seen := make(map[string]struct{})
	var out []string
	for i, s := range c.text {
		if c.missing[i] {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// take builds a new column holding the given rows, in order.
func (c *Column) take(rows []int) *Column {
	out := &Column{name: c.name, typ: c.typ, text: make([]string, len(rows)), missing: make([]bool, len(rows))}
	if c.nums != nil {
		out.nums = make([]float64, len(rows))
	}
	if c.times != nil {
		out.times = make([]time.Time, len(rows))
	}
	for j, i := range rows {
		out.text[j] = c.text[i]
		out.missing[j] = c.missing[i]
		if c.nums != nil {
			out.nums[j] = c.nums[i]
		}
		if c.times != nil {
			out.times[j] = c.times[i]
		}
	}
	return out
}

// Table is an ordered set of equal-length, uniquely named columns.
type Table struct {
	name  string
	cols  []*Column
	index map[string]int
	rows  int
}

// NewTable assembles columns into a table, enforcing equal lengths and unique names.
func NewTable(name string, cols ...*Column) (*Table, error) {
	t := &Table{name: name, cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.name)
		}
		t.index[c.name] = i
		if i == 0 {
			t.rows = c.Len()
			continue
		}
		if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.name, c.Len(), t.rows)
		}
	}
	return t, nil
}

// MustTable is NewTable for fixtures that are known to be well formed.
func MustTable(name string, cols ...*Column) *Table {
	t, err := NewTable(name, cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the dataset name (usually the uploaded file name).
func (t *Table) Name() string { return t.name }

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns the columns in table order. The slice must not be modified.
func (t *Table) Columns() []*Column { return t.cols }

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Names returns the column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

// Take returns a new table holding the given rows in the given order.
// The receiver is left untouched.
func (t *Table) Take(rows []int) *Table {
	out := &Table{name: t.name, cols: make([]*Column, len(t.cols)), index: t.index, rows: len(rows)}
	for i, c := range t.cols {
		out.cols[i] = c.take(rows)
	}
	return out
}

// Head returns the first n rows as a new table.
func (t *Table) Head(n int) *Table {
	if n < 0 || n > t.rows {
		n = t.rows
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.Take(rows)
}

type jsonColumn struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// MarshalJSON encodes the table as column descriptors plus row arrays.
// Missing and non-finite cells encode as null.
func (t *Table) MarshalJSON() ([]byte, error) {
	cols := make([]jsonColumn, len(t.cols))
	for i, c := range t.cols {
		cols[i] = jsonColumn{Name: c.name, Type: c.typ}
	}
	rows := make([][]any, t.rows)
	for r := range rows {
		row := make([]any, len(t.cols))
		for j, c := range t.cols {
			v := c.Value(r)
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				v = nil
			}
			row[j] = v
		}
		rows[r] = row
	}
	return json.Marshal(struct {
		Name    string       `json:"name"`
		Rows    int          `json:"row_count"`
		Columns []jsonColumn `json:"columns"`
		Data    [][]any      `json:"rows"`
	}{t.name, t.rows, cols, rows})
}

// FormatFloat renders a number the way generated and computed cells are shown.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
