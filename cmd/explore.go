package cmd

import (
	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	exLoad       loadFlags
	exCategory   string
	exValues     []string
	exNumeric    string
	exLo         float64
	exHi         float64
	exChart      string
	exX          string
	exY          string
	exColor      string
	exGroup      string
	exMeasure    string
	exFunc       string
	exBins       int
	exDate       string
	exPreview    int
	exFormat     string
	exOutputPath string
)

var exploreCmd = &cobra.Command{
	Use:   "explore [file]",
	Short: "Filter a dataset and report insights, a chart plan and column statistics",
	Long: `Explore loads a CSV/TSV/XLSX file (or the synthetic sample when no file is
given) and runs one exploration. Filters not set on the command line take
schema-derived defaults; --category "" or --numeric "" disables that filter
and an explicit empty --values= selects no rows.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := exLoad.options()
		if err != nil {
			return err
		}
		params, err := exploreParams(cmd)
		if err != nil {
			return err
		}
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		t, err := loadInput(path, opt)
		if err != nil {
			return err
		}

		res := analysis.Explore(t, cfg.Policy, params)
		out, err := renderOutput(exFormat, res, res.Markdown)
		if err != nil {
			return err
		}
		return emit(cmd, out, exOutputPath, "exploration")
	},
}

// exploreParams maps the flags onto analysis.Params. Only flags the user set
// override the schema-derived defaults.
func exploreParams(cmd *cobra.Command) (analysis.Params, error) {
	f := cmd.Flags()
	p := analysis.Params{
		Chart: analysis.ChartRequest{
			Mode:    analysis.ChartMode(exChart),
			X:       exX,
			Y:       exY,
			Color:   exColor,
			Group:   exGroup,
			Measure: exMeasure,
			Func:    analysis.AggFunc(exFunc),
			Bins:    exBins,
			Date:    exDate,
		},
		PreviewRows: exPreview,
	}
	if p.PreviewRows <= 0 {
		p.PreviewRows = cfg.PreviewRows
	}
	if f.Changed("category") {
		p.CategoryColumn = &exCategory
	}
	if f.Changed("values") {
		p.CategoryValues = exValues
		if p.CategoryValues == nil {
			p.CategoryValues = []string{}
		}
	}
	if f.Changed("numeric") {
		p.NumericColumn = &exNumeric
	}
	if f.Changed("lo") {
		p.RangeLo = &exLo
	}
	if f.Changed("hi") {
		p.RangeHi = &exHi
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exLoad.bind(exploreCmd)
	exploreCmd.Flags().StringVar(&exCategory, "category", "", "category filter column (\"\" disables the filter)")
	exploreCmd.Flags().StringSliceVar(&exValues, "values", nil, "comma-separated category values to keep (empty keeps no rows)")
	exploreCmd.Flags().StringVar(&exNumeric, "numeric", "", "range filter column (\"\" disables the filter)")
	exploreCmd.Flags().Float64Var(&exLo, "lo", 0, "range filter lower bound (clamped to the observed range)")
	exploreCmd.Flags().Float64Var(&exHi, "hi", 0, "range filter upper bound (clamped to the observed range)")
	exploreCmd.Flags().StringVar(&exChart, "chart", "scatter", "chart mode: scatter|bar|histogram|box|line")
	exploreCmd.Flags().StringVar(&exX, "x", "", "chart X column")
	exploreCmd.Flags().StringVar(&exY, "y", "", "chart Y column")
	exploreCmd.Flags().StringVar(&exColor, "color", "", "scatter color column")
	exploreCmd.Flags().StringVar(&exGroup, "group", "", "bar/box group column")
	exploreCmd.Flags().StringVar(&exMeasure, "measure", "", "bar measure / box value column")
	exploreCmd.Flags().StringVar(&exFunc, "func", "mean", "bar aggregation: sum|mean|median|count")
	exploreCmd.Flags().IntVar(&exBins, "bins", 0, "histogram bins (5-100, 0 = policy default)")
	exploreCmd.Flags().StringVar(&exDate, "date", "", "line chart date column")
	exploreCmd.Flags().IntVar(&exPreview, "preview", 0, "filtered rows to include in the preview (0 = config value)")
	exploreCmd.Flags().StringVar(&exFormat, "format", "markdown", "output format: markdown|json")
	exploreCmd.Flags().StringVarP(&exOutputPath, "output", "o", "", "optional path to write the result")
}
