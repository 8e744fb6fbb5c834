// Package analysis implements the exploration pipeline: column
// classification, default selection, filtering, aggregation and the
// derived insight, chart and summary outputs.
package analysis

import (
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// Kind is the role a column plays in exploration.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
	KindDate        Kind = "date"
)

// Classification maps every column of a table to a Kind and keeps the
// per-kind name lists in table order.
type Classification struct {
	Kinds       map[string]Kind `json:"kinds"`
	Numeric     []string        `json:"numeric"`
	Categorical []string        `json:"categorical"`
	Date        []string        `json:"date"`
}

// Is reports whether name is classified as k.
func (c Classification) Is(name string, k Kind) bool {
	got, ok := c.Kinds[name]
	return ok && got == k
}

// Names returns the columns of kind k in table order.
func (c Classification) Names(k Kind) []string {
	switch k {
	case KindNumeric:
		return c.Numeric
	case KindCategorical:
		return c.Categorical
	case KindDate:
		return c.Date
	}
	return nil
}

// Classify partitions the columns of t. Numeric types are numeric, text and
// bool are categorical. Date columns, and columns whose name contains "date"
// and whose every present value parses as a timestamp, are date; a failed
// parse keeps the column's original kind.
func Classify(t *dataset.Table) Classification {
	c := Classification{Kinds: make(map[string]Kind, t.NumCols())}
	for _, col := range t.Columns() {
		k := KindCategorical
		if col.Type().IsNumeric() {
			k = KindNumeric
		}
		if col.Type() == dataset.TypeDate || (strings.Contains(strings.ToLower(col.Name()), "date") && parsesAsDates(col)) {
			k = KindDate
		}
		c.Kinds[col.Name()] = k
		switch k {
		case KindNumeric:
			c.Numeric = append(c.Numeric, col.Name())
		case KindCategorical:
			c.Categorical = append(c.Categorical, col.Name())
		case KindDate:
			c.Date = append(c.Date, col.Name())
		}
	}
	return c
}

func parsesAsDates(col *dataset.Column) bool {
	present := 0
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		if _, ok := col.Time(i); !ok {
			return false
		}
		present++
	}
	return present > 0
}
