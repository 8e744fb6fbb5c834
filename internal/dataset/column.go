package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// missingTokens are cell spellings read as the missing marker.
var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "<NA>": {},
}

// IsMissingToken reports whether s spells a missing value.
func IsMissingToken(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

// NewColumn infers a declared type from raw cell text and builds the column.
// All-missing columns are float; columns whose present cells all parse as
// integers are int, as numbers float, as true/false bool; anything else is text.
func NewColumn(name string, cells ...string) *Column {
	n := len(cells)
	c := &Column{name: name, text: make([]string, n), missing: make([]bool, n)}
	isInt, isFloat, isBool := true, true, true
	present := 0
	for i, raw := range cells {
		s := strings.TrimSpace(raw)
		if IsMissingToken(s) {
			c.missing[i] = true
			continue
		}
		present++
		c.text[i] = s
		if isInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				isFloat = false
			}
		}
		if isBool && !strings.EqualFold(s, "true") && !strings.EqualFold(s, "false") {
			isBool = false
		}
	}
	switch {
	case present == 0:
		c.typ = TypeFloat
	case isInt:
		c.typ = TypeInt
	case isFloat:
		c.typ = TypeFloat
	case isBool:
		c.typ = TypeBool
	default:
		c.typ = TypeText
	}
	if c.typ.IsNumeric() {
		c.nums = make([]float64, n)
		for i, s := range c.text {
			if c.missing[i] {
				c.nums[i] = math.NaN()
				continue
			}
			c.nums[i], _ = strconv.ParseFloat(s, 64)
		}
	}
	return c
}

// NewFloatColumn builds a float column. NaN marks a missing cell.
func NewFloatColumn(name string, vals []float64) *Column {
	c := &Column{name: name, typ: TypeFloat, text: make([]string, len(vals)), nums: make([]float64, len(vals)), missing: make([]bool, len(vals))}
	copy(c.nums, vals)
	for i, v := range vals {
		if math.IsNaN(v) {
			c.missing[i] = true
			continue
		}
		c.text[i] = FormatFloat(v)
	}
	return c
}

// NewTextColumn builds a text column. Missing tokens mark missing cells.
func NewTextColumn(name string, vals []string) *Column {
	c := &Column{name: name, typ: TypeText, text: make([]string, len(vals)), missing: make([]bool, len(vals))}
	for i, v := range vals {
		if IsMissingToken(v) {
			c.missing[i] = true
			continue
		}
		c.text[i] = v
	}
	return c
}

// NewDateColumn builds a date column. The zero time marks a missing cell.
func NewDateColumn(name string, vals []time.Time) *Column {
	c := &Column{name: name, typ: TypeDate, text: make([]string, len(vals)), times: make([]time.Time, len(vals)), missing: make([]bool, len(vals))}
	copy(c.times, vals)
	for i, v := range vals {
		if v.IsZero() {
			c.missing[i] = true
			continue
		}
		c.text[i] = formatTime(v)
	}
	return c
}

// timeLayouts are tried in order; four-digit years first, month-first before day-first.
var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "2006-01-02 15:04", "2006-01-02 15:04:05",
	"2006-01-02T15:04:05", "01/02/2006", "1/2/2006", "02/01/2006", "1/2/2006 15:04",
	"1/2/2006 15:04:05", "Jan 2, 2006", "2 Jan 2006", "20060102",
}

// ParseTime parses s with the supported date layouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
