package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/KaramelBytes/tabloom-cli/internal/parser"
)

// Options controls loading. It mirrors parser.Options.
type Options struct {
	Delimiter  rune
	MaxRows    int
	SheetName  string
	SheetIndex int
}

func (o Options) parser() parser.Options {
	return parser.Options{Delimiter: o.Delimiter, MaxRows: o.MaxRows, SheetName: o.SheetName, SheetIndex: o.SheetIndex}
}

// ErrNoColumns indicates the input has no header to build columns from.
var ErrNoColumns = parser.ErrNoHeader

// LoadError is the single fatal failure of the pipeline: structurally invalid input.
type LoadError struct {
	Name string
	Line int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load %s: line %d: %v", e.Name, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load builds a table from the raw bytes of a delimited or XLSX file.
// No partial table is returned on error.
func Load(name string, data []byte, opt Options) (*Table, error) {
	recs, err := parser.Parse(name, data, opt.parser())
	if err != nil {
		le := &LoadError{Name: name, Err: err}
		var rowErr *parser.RowError
		if errors.As(err, &rowErr) {
			le.Line = rowErr.Line
			le.Err = rowErr.Err
		}
		return nil, le
	}
	t, err := FromRecords(name, recs)
	if err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}
	return t, nil
}

// LoadFile reads path and loads it.
func LoadFile(path string, opt Options) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Load(filepath.Base(path), data, opt)
}

// LoadOrSample loads data, or returns the synthetic sample when no input was given.
func LoadOrSample(name string, data []byte, opt Options) (*Table, error) {
	if data == nil {
		return Sample(), nil
	}
	return Load(name, data, opt)
}

// FromRecords converts raw records into typed columns. Blank header names
// become "Unnamed: i" and repeated names get ".1", ".2" suffixes.
func FromRecords(name string, recs *parser.Records) (*Table, error) {
	if recs == nil || len(recs.Header) == 0 {
		return nil, ErrNoColumns
	}
	names := uniqueNames(recs.Header)
	cols := make([]*Column, len(names))
	cells := make([]string, len(recs.Rows))
	for j, n := range names {
		for i, row := range recs.Rows {
			if j < len(row) {
				cells[i] = row[j]
			} else {
				cells[i] = ""
			}
		}
		cols[j] = NewColumn(n, cells...)
	}
	return NewTable(name, cols...)
}

func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		cand := h
		for k := 1; taken[cand]; k++ {
			cand = h + "." + strconv.Itoa(k)
		}
		taken[cand] = true
		out[i] = cand
	}
	return out
}
