package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("File: %s\n", r.Dataset))
	b.WriteString(fmt.Sprintf("Rows: %d (filtered %d)\n", r.Insights.TotalRows, r.Insights.FilteredRows))
	b.WriteString(fmt.Sprintf("Columns: numeric %d, categorical %d, date %d\n\n",
		len(r.Classification.Numeric), len(r.Classification.Categorical), len(r.Classification.Date)))

	b.WriteString("[FILTER]\n")
	if f := r.Filter.Category; f != nil {
		b.WriteString(fmt.Sprintf("- %s in {%s}\n", safeName(f.Column), safeVal(strings.Join(f.Values, ", "))))
	} else {
		b.WriteString("- category: (none)\n")
	}
	if f := r.Filter.Range; f != nil {
		b.WriteString(fmt.Sprintf("- %s in [%s, %s]\n", safeName(f.Column), fmtNum(f.Lo), fmtNum(f.Hi)))
	} else {
		b.WriteString("- range: (none)\n")
	}

	b.WriteString("\n[INSIGHTS]\n")
	for _, m := range r.Insights.Metrics() {
		b.WriteString(fmt.Sprintf("- %s: ", m.Label))
		switch m.Status {
		case StatusOK:
			b.WriteString(fmtNum(m.Value))
			if m.HasDelta {
				b.WriteString(fmt.Sprintf(" (%s vs all)", fmtDelta(m.Delta)))
			}
		case StatusUndefined:
			b.WriteString("undefined")
		default:
			b.WriteString("n/a")
		}
		b.WriteString("\n")
	}
	if bd := r.Insights.Breakdown; bd != nil {
		b.WriteString(fmt.Sprintf("\n[%s OF %s BY %s]\n", strings.ToUpper(string(bd.Spec.Func)),
			strings.ToUpper(bd.Spec.Measure), strings.ToUpper(bd.Spec.Group)))
		writeGroups(&b, bd.Groups)
	}

	b.WriteString("\n[CHART]\n")
	writeChart(&b, r.Chart)

	if len(r.Summary) > 0 {
		b.WriteString("\n[DESCRIBE]\n")
		for _, s := range r.Summary {
			b.WriteString(fmt.Sprintf("- %s: %s (count %d, missing %d)", safeName(s.Name), s.Kind, s.Count, s.Missing))
			if s.Kind == KindNumeric {
				if s.Count > 0 {
					b.WriteString(fmt.Sprintf("; mean %s, std %s, min %s, 25%% %s, 50%% %s, 75%% %s, max %s",
						fmtNum(s.Mean), fmtNum(s.Std), fmtNum(s.Min), fmtNum(s.Q25), fmtNum(s.Q50), fmtNum(s.Q75), fmtNum(s.Max)))
					if s.Outliers > 0 {
						b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", s.Outliers, OutlierThreshold))
					}
				}
			} else if top, freq := s.Top(); freq > 0 {
				b.WriteString(fmt.Sprintf("; unique %d, top %s(%d)", s.Unique, safeVal(top), freq))
			}
			b.WriteString("\n")
		}
	}

	if r.Preview != nil && r.Preview.NumRows() > 0 {
		b.WriteString("\n[PREVIEW]\n")
		writeTable(&b, r.Preview)
	}
	return b.String()
}

// Markdown renders the column inventory and default parameters.
func (s *Schema) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("File: %s\n", s.Dataset))
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(s.Columns)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range s.Columns {
		total := c.Present + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s [%s] (non-null %d, missing %.1f%%)\n", safeName(c.Name), c.Kind, c.Type, c.Present, missPct))
	}

	b.WriteString("\n[DEFAULTS]\n")
	d := s.Defaults
	if d.CategoryColumn != "" {
		b.WriteString(fmt.Sprintf("- category: %s (%d values)\n", safeName(d.CategoryColumn), len(d.CategoryValues)))
	} else {
		b.WriteString("- category: (none)\n")
	}
	switch {
	case d.NumericColumn == "":
		b.WriteString("- numeric: (none)\n")
	case d.Range != nil:
		b.WriteString(fmt.Sprintf("- numeric: %s, range [%s, %s] of [%s, %s]\n", safeName(d.NumericColumn),
			fmtNum(d.Range.Lo), fmtNum(d.Range.Hi), fmtNum(d.Bounds.Lo), fmtNum(d.Bounds.Hi)))
	default:
		b.WriteString(fmt.Sprintf("- numeric: %s (no values)\n", safeName(d.NumericColumn)))
	}

	if s.Preview != nil && s.Preview.NumRows() > 0 {
		b.WriteString("\n[HEAD]\n")
		writeTable(&b, s.Preview)
	}
	return b.String()
}

func writeChart(b *strings.Builder, p ChartPlan) {
	b.WriteString(fmt.Sprintf("Mode: %s\n", p.Mode))
	if !p.OK() {
		b.WriteString(fmt.Sprintf("Guidance: %s\n", p.Guidance))
		return
	}
	b.WriteString(fmt.Sprintf("Title: %s\n", p.Title))
	if p.X != "" {
		b.WriteString(fmt.Sprintf("X: %s\n", p.X))
	}
	if p.Y != "" {
		b.WriteString(fmt.Sprintf("Y: %s\n", p.Y))
	}
	if p.Color != "" {
		b.WriteString(fmt.Sprintf("Color: %s\n", p.Color))
	}
	if p.Bins > 0 {
		b.WriteString(fmt.Sprintf("Bins: %d\n", p.Bins))
	}
	if len(p.Groups) > 0 {
		writeGroups(b, p.Groups)
	}
	if p.Data != nil {
		b.WriteString(fmt.Sprintf("Points: %d\n", p.Data.NumRows()))
	}
}

func writeGroups(b *strings.Builder, groups []GroupValue) {
	if len(groups) == 0 {
		b.WriteString("- (no groups)\n")
		return
	}
	for _, g := range groups {
		b.WriteString(fmt.Sprintf("- %s: %s (n=%d)\n", safeVal(g.Group), fmtNum(g.Value), g.Count))
	}
}

func writeTable(b *strings.Builder, t *dataset.Table) {
	cols := t.Columns()
	b.WriteString("| ")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeName(c.Name()))
	}
	b.WriteString(" |\n| ")
	for i := range cols {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for r := 0; r < t.NumRows(); r++ {
		b.WriteString("| ")
		for i, c := range cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			val, _ := c.Text(r)
			if len(val) > 80 {
				val = val[:77] + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
}

func fmtNum(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "undefined"
	}
	return dataset.FormatFloat(math.Round(v*100) / 100)
}

func fmtDelta(v float64) string {
	if v > 0 {
		return "+" + fmtNum(v)
	}
	return fmtNum(v)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
