package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/engine"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/output"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/source"
)

// ErrThreshold is returned when --fail-on is met, for a non-zero exit status.
var ErrThreshold = errors.New("detections at or above the --fail-on severity")

var (
	analyzeOut    string
	analyzeShow   int
	analyzeFailOn string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze one log file or standard input",
	Long: `Analyze a single input and print a report. Plain and gzip-compressed files
are accepted; with no file, or "-", standard input is read.

Examples:
  logsentry analyze /var/log/nginx/access.log
  zcat auth.log.1.gz | logsentry analyze --output json
  logsentry analyze access.log -o csv --out detections.csv
  logsentry analyze access.log --fail-on high`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "write the report to this file instead of stdout")
	analyzeCmd.Flags().IntVar(&analyzeShow, "show", 20, "detections listed in the text report (-1 = all)")
	analyzeCmd.Flags().StringVar(&analyzeFailOn, "fail-on", "", "exit non-zero when any detection is at or above this severity")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := source.Stdin
	if len(args) == 1 {
		path = args[0]
	}
	failOn, err := parseFailOn(analyzeFailOn)
	if err != nil {
		return err
	}

	e, catalog, err := newEngine(nil)
	if err != nil {
		return err
	}

	in, err := source.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	name := path
	if path == source.Stdin {
		name = "stdin"
	}
	res, runErr := e.AnalyzeReader(cmd.Context(), name, in)
	if runErr != nil && !errors.Is(runErr, engine.ErrStream) {
		return runErr
	}

	w, closeOut, err := outputWriter(cmd, analyzeOut)
	if err != nil {
		return err
	}
	if err := writeResult(w, res, catalog); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	return checkFailOn(failOn, res.Detections)
}

func writeResult(w io.Writer, res *model.AnalysisResult, catalog *rules.Catalog) error {
	switch settings.Output {
	case "json":
		return output.WriteJSON(w, res)
	case "csv":
		return output.WriteCSV(w, res.Detections, catalog)
	default:
		return output.WriteReport(w, res, output.ReportOptions{MaxDetections: analyzeShow})
	}
}

// parseFailOn returns nil when the flag is unset.
func parseFailOn(s string) (*model.Severity, error) {
	if s == "" {
		return nil, nil
	}
	sev, err := model.ParseSeverity(s)
	if err != nil {
		return nil, &engine.ConfigError{Field: "fail-on", Err: err}
	}
	return &sev, nil
}

func checkFailOn(failOn *model.Severity, dets []model.Detection) error {
	if failOn == nil {
		return nil
	}
	for _, d := range dets {
		if d.Severity >= *failOn {
			return fmt.Errorf("%w: %s on line %d", ErrThreshold, d.RuleID, d.LineNumber)
		}
	}
	return nil
}
