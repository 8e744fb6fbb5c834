package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	scLoad       loadFlags
	scHeadRows   int
	scFormat     string
	scOutputPath string
	scQuiet      bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema [files...]",
	Short: "Show column kinds and default filters of one or more datasets",
	Long: `Schema classifies every column of each input (numeric, categorical or date)
and reports the default category and range filters. Glob patterns are
expanded; with no input the synthetic sample is described.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := scLoad.options()
		if err != nil {
			return err
		}
		files := []string{""}
		if len(args) > 0 {
			if files, err = expandInputs(args); err != nil {
				return err
			}
		}

		var (
			schemas []*analysis.Schema
			md      strings.Builder
		)
		total := len(files)
		for i, path := range files {
			if total > 1 && !scQuiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			t, err := loadInput(path, opt)
			if err != nil {
				return err
			}
			s := analysis.DescribeSchema(t, cfg.Policy, scHeadRows)
			schemas = append(schemas, s)
			if i > 0 {
				md.WriteString("\n")
			}
			md.WriteString(s.Markdown())
		}

		var v any = schemas
		if len(schemas) == 1 {
			v = schemas[0]
		}
		out, err := renderOutput(scFormat, v, md.String)
		if err != nil {
			return err
		}
		return emit(cmd, out, scOutputPath, "schema")
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	scLoad.bind(schemaCmd)
	schemaCmd.Flags().IntVar(&scHeadRows, "head", 5, "number of leading rows to include (0 disables)")
	schemaCmd.Flags().StringVar(&scFormat, "format", "markdown", "output format: markdown|json")
	schemaCmd.Flags().StringVarP(&scOutputPath, "output", "o", "", "optional path to write the result")
	schemaCmd.Flags().BoolVar(&scQuiet, "quiet", false, "suppress progress output")
}
