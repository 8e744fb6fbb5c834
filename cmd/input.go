package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/KaramelBytes/tabloom-cli/internal/parser"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

// loadFlags are the input options shared by commands that read a dataset.
type loadFlags struct {
	delimiter  string
	maxRows    int
	sheetName  string
	sheetIndex int
}

func (l *loadFlags) bind(c *cobra.Command) {
	c.Flags().StringVar(&l.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (default from config, else by extension)")
	c.Flags().IntVar(&l.maxRows, "max-rows", 0, "maximum rows to load (0 = config value, unlimited by default)")
	c.Flags().StringVar(&l.sheetName, "sheet-name", "", "XLSX: sheet name to load")
	c.Flags().IntVar(&l.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

// options merges the flags over the loaded configuration.
func (l *loadFlags) options() (dataset.Options, error) {
	opt := dataset.Options{SheetName: l.sheetName, SheetIndex: l.sheetIndex}
	if cfg != nil {
		opt.Delimiter = cfg.DelimiterRune()
		opt.MaxRows = cfg.MaxRows
	}
	if l.delimiter != "" {
		d, err := parser.ParseDelimiter(l.delimiter)
		if err != nil {
			return opt, fmt.Errorf("unsupported --delimiter: %s", l.delimiter)
		}
		opt.Delimiter = d
	}
	if l.maxRows < 0 {
		return opt, fmt.Errorf("--max-rows must be >= 0")
	}
	if l.maxRows > 0 {
		opt.MaxRows = l.maxRows
	}
	if l.sheetIndex < 1 {
		return opt, fmt.Errorf("--sheet-index must be >= 1")
	}
	return opt, nil
}

// loadInput reads path, or returns the synthetic sample when path is empty.
func loadInput(path string, opt dataset.Options) (*dataset.Table, error) {
	if path == "" {
		slog.Debug("no input file, using synthetic sample", "rows", dataset.SampleRows)
		return dataset.Sample(), nil
	}
	t, err := dataset.LoadFile(path, opt)
	if err != nil {
		return nil, err
	}
	slog.Debug("dataset loaded", "file", path, "rows", t.NumRows(), "columns", t.NumCols())
	return t, nil
}

// expandInputs resolves glob patterns, keeps literal paths that exist, and
// drops duplicates. The result is sorted.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err != nil {
				return nil, fmt.Errorf("no input files matched %s", arg)
			}
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// renderOutput serializes v as indented JSON or uses the markdown text.
func renderOutput(format string, v any, markdown func() string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "markdown", "md":
		return []byte(markdown()), nil
	case "json":
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported --format: %s (use markdown or json)", format)
	}
}

// emit writes out to path atomically, or to the command's stdout.
func emit(cmd *cobra.Command, out []byte, path, what string) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(out)
		return err
	}
	if err := utils.SafeWriteFile(path, out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s to %s\n", what, path)
	return nil
}
