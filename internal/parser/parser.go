package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Records is the raw content of a tabular file: a header row and data rows,
// every cell kept as its source text.
type Records struct {
	Header []string
	Rows   [][]string
}

// Options controls record extraction.
type Options struct {
	// Delimiter for CSV. If 0, chosen from the file name (tab for .tsv, comma otherwise).
	Delimiter rune
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// XLSX sheet selection. SheetName wins over SheetIndex (1-based).
	SheetName  string
	SheetIndex int
}

// Parser extracts records from one tabular format.
type Parser interface {
	CanParse(filename string, head []byte) bool
	Parse(name string, content []byte, opt Options) (*Records, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// Parse selects a parser by file name and leading bytes and extracts records.
// Content no registered parser claims is read as CSV.
func Parse(name string, content []byte, opt Options) (*Records, error) {
	for _, p := range registry {
		if p.CanParse(name, head(content)) {
			return p.Parse(name, content, opt)
		}
	}
	return csvParser{}.Parse(name, content, opt)
}

// ParseFile reads path and extracts its records.
func ParseFile(path string, opt Options) (*Records, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Parse(filepath.Base(path), data, opt)
}

func head(b []byte) []byte {
	if len(b) > 8 {
		return b[:8]
	}
	return b
}

func init() {
	Register(xlsxParser{})
	Register(csvParser{})
}

// ErrNoHeader indicates the input has no header row to take column names from.
var ErrNoHeader = errors.New("no columns to parse from input")

// ErrRaggedRow indicates a data row carries more fields than the header.
var ErrRaggedRow = errors.New("row has more fields than header")

// RowError locates a structural problem at a 1-based input line.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
