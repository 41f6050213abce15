package evalcmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command: a full linkage run with evaluation
func NewRunCmd() *cobra.Command {
	var configPath string
	var outputJSON string
	var metricsFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Index, compare, classify and evaluate two record files",
		Long: `Run a complete linkage experiment described by a YAML configuration.

Both record files and the ground truth are loaded, candidate pairs are produced
by the configured indexer, compared field by field and classified by every
configured classifier. Each classifier is evaluated against the ground truth
and appended to the results log; its matches are written to a mapping file.

The blocking step is evaluated on its own as well: pair completeness is the
share of true matches that survive indexing, reduction ratio is the share of
the full cross product that indexing skipped.`,
		Example: `  # Run the experiment in linker.yaml
  linker link run --config linker.yaml

  # Also save the summary as JSON and write Prometheus metrics
  linker link run --config linker.yaml --output-json run.json --metrics linker.prom --verbose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd.Context(), cmd.OutOrStdout(), configPath, outputJSON, metricsFile, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "linker.yaml", "Path to the YAML run configuration")
	cmd.Flags().StringVar(&outputJSON, "output-json", "", "Also save the run summary as JSON to this path")
	cmd.Flags().StringVar(&metricsFile, "metrics", "", "Write Prometheus text-format metrics to this path (overrides output.metrics_file)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	return cmd
}

// NewIndexCmd creates the index command, which evaluates the indexer alone
func NewIndexCmd() *cobra.Command {
	var configPath string
	var outputPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Generate candidate pairs and report blocking quality",
		Long: `Run only the indexer of a configuration and report how many candidate pairs
it produced, its pair completeness against the ground truth and its reduction
ratio. Candidate pairs can be written to a CSV file for inspection.`,
		Example: `  # Compare window sizes by editing indexer.window between runs
  linker link index --config linker.yaml

  # Keep the candidate pairs
  linker link index --config linker.yaml --output candidates.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeIndex(cmd.Context(), cmd.OutOrStdout(), configPath, outputPath, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "linker.yaml", "Path to the YAML run configuration")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write candidate pairs to this CSV file")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	return cmd
}

// NewCompareCmd creates the compare command for the compare-methods study
func NewCompareCmd() *cobra.Command {
	var configPath string
	var field string
	var outputDir string
	var bins int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Score one field with every string comparator",
		Long: `Study how well each comparator separates true matches from non-matches on
one field. True matches come from the ground truth; non-matches are a seeded
sample of the remaining cross product, study.ratio times as many as matches.

The raw scores are written to cm_matches.csv and cm_distinct.csv, and the
score distribution of each comparator to cm_bin_<method>.csv.`,
		Example: `  # Study the title field
  linker link compare --config linker.yaml --field title

  # Use 10 bins and a custom output directory
  linker link compare --config linker.yaml --field title --bins 10 --output ./study`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bins < 0 {
				return fmt.Errorf("--bins must be positive")
			}
			return executeCompare(cmd.Context(), cmd.OutOrStdout(), configPath, field, outputDir, bins, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "linker.yaml", "Path to the YAML run configuration")
	cmd.Flags().StringVar(&field, "field", "", "Field to study (defaults to study.field, then the first compared field)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (defaults to study.output_dir)")
	cmd.Flags().IntVar(&bins, "bins", 0, "Histogram bins (defaults to study.bins)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	return cmd
}

// NewScoreCmd creates the score command for evaluating an existing mapping
func NewScoreCmd() *cobra.Command {
	var configPath string
	var appendLog bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "score <mapping.csv>...",
		Short: "Evaluate mapping files against the ground truth",
		Long: `Evaluate one or more mapping files (id_a,id_b[,score]) against the ground
truth named in the configuration. Reports correct, incorrect and missing
matches together with precision, recall and F-measure.`,
		Example: `  # Score the mappings of a previous run
  linker link score --config linker.yaml mappings/mapping_threshold.csv

  # Record the scores in the results log
  linker link score --config linker.yaml --append mappings/*.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeScore(cmd.Context(), cmd.OutOrStdout(), configPath, args, appendLog, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "linker.yaml", "Path to the YAML run configuration")
	cmd.Flags().BoolVar(&appendLog, "append", false, "Append each score to the results log")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	return cmd
}

// NewReportCmd creates the report command that renders the results log
func NewReportCmd() *cobra.Command {
	var resultsPath string
	var format string
	var output string
	var sortBy string
	var limit int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the results log",
		Long: `Render the results log as a text table, JSON, CSV or an Excel workbook.

Rows can be sorted by any numeric column, highest first.`,
		Example: `  # Best runs first
  linker link report --results results.csv --sort f_measure --limit 10

  # Export to a workbook
  linker link report --results results.csv --format xlsx --output results.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "xlsx" && output == "" {
				return fmt.Errorf("--output is required for xlsx format")
			}
			return executeReport(cmd.OutOrStdout(), resultsPath, format, output, sortBy, limit)
		},
	}

	cmd.Flags().StringVar(&resultsPath, "results", "results.csv", "Path to the results log")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv, xlsx)")
	cmd.Flags().StringVar(&output, "output", "", "Output file for xlsx format")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort rows by this column, highest first")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many rows (0 for all)")

	return cmd
}

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var datasetPath string
	var idColumn string
	var delimiter string
	var encoding string
	var limit int
	var interactive bool
	var showRecords bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect cleaned records of a CSV, Parquet or JSONL file",
		Long: `Inspect records the way the linker sees them after cleaning.

Prints each record's cleaned fields followed by per-column fill rates, which is
useful for choosing blocking and comparison fields.`,
		Example: `  # Inspect first 5 records interactively
  linker link inspect --dataset ./abt.csv --id-column id --limit 5 --interactive

  # Only show column fill rates for the whole file
  linker link inspect --dataset ./buy.csv --id-column id --records=false --limit 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if datasetPath == "" {
				return fmt.Errorf("--dataset is required")
			}
			return executeInspect(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), inspectOptions{
				path:        datasetPath,
				idColumn:    idColumn,
				delimiter:   delimiter,
				encoding:    encoding,
				limit:       limit,
				interactive: interactive,
				showRecords: showRecords,
			})
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to CSV, parquet or jsonl record file (required)")
	cmd.Flags().StringVar(&idColumn, "id-column", "id", "Column holding the record id")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", `CSV delimiter (single character or "tab")`)
	cmd.Flags().StringVar(&encoding, "encoding", "utf-8", "CSV text encoding (utf-8, latin-1, windows-1252)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of records to inspect (0 for all)")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Pause after each record (press Enter to continue)")
	cmd.Flags().BoolVar(&showRecords, "records", true, "Show each record")

	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}
