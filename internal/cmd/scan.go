package cmd

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/engine"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/output"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/source"
)

var (
	scanOut    string
	scanJobs   int
	scanFailOn string
)

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Analyze many files, directories or glob patterns",
	Long: `Analyze every file matched by the given paths and print a combined report.
Directories are walked recursively and glob patterns may use **. Each file is
analyzed on its own, so correlation windows never span two files.

Examples:
  logsentry scan /var/log/nginx
  logsentry scan "/var/log/**/*.log.gz" --jobs 8
  logsentry scan logs/ --output json --out report.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanOut, "out", "", "write the report to this file instead of stdout")
	scanCmd.Flags().IntVar(&scanJobs, "jobs", runtime.NumCPU(), "files analyzed concurrently")
	scanCmd.Flags().StringVar(&scanFailOn, "fail-on", "", "exit non-zero when any detection is at or above this severity")
	rootCmd.AddCommand(scanCmd)
}

// scanOutput is the JSON document written by scan.
type scanOutput struct {
	Report  *model.Report           `json:"report"`
	Results []*model.AnalysisResult `json:"results"`
}

func runScan(cmd *cobra.Command, args []string) error {
	failOn, err := parseFailOn(scanFailOn)
	if err != nil {
		return err
	}
	files, err := source.Expand(args)
	if err != nil {
		return err
	}
	e, catalog, err := newEngine(nil)
	if err != nil {
		return err
	}
	logger.Info("scanning", "files", len(files), "jobs", scanJobs)

	results := make([]*model.AnalysisResult, len(files))
	failures := make([]error, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	if scanJobs > 0 {
		g.SetLimit(scanJobs)
	}
	for i, path := range files {
		g.Go(func() error {
			res, err := analyzeFile(ctx, e, path)
			results[i] = res
			// A broken file is reported without failing the others.
			failures[i] = err
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	var done []*model.AnalysisResult
	var dets []model.Detection
	for i, res := range results {
		if failures[i] != nil {
			logger.Warn("file not fully analyzed", "path", files[i], "error", failures[i])
		}
		if res == nil {
			continue
		}
		done = append(done, res)
		dets = append(dets, res.Detections...)
	}
	report := e.Merge(done...)

	w, closeOut, err := outputWriter(cmd, scanOut)
	if err != nil {
		return err
	}
	switch settings.Output {
	case "json":
		err = output.WriteJSON(w, scanOutput{Report: report, Results: done})
	case "csv":
		err = output.WriteCSV(w, dets, catalog)
	default:
		err = output.WriteScanReport(w, report)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := cmd.Context().Err(); err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}
	return checkFailOn(failOn, dets)
}

// analyzeFile runs e over one file. A read error still yields the partial result.
func analyzeFile(ctx context.Context, e *engine.Engine, path string) (*model.AnalysisResult, error) {
	in, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return e.AnalyzeReader(ctx, path, in)
}
