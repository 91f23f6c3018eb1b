package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/output"
)

var (
	watchFromStart bool
	watchNoSummary bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Watch log files and report detections as lines arrive",
	Long: `Watch one or more log files, directories or glob patterns and print every
detection as new lines are appended. Rotated files are picked up again. On exit
a summary of each watched source is printed to stderr.

Examples:
  logsentry watch /var/log/auth.log
  logsentry watch "/var/log/nginx/*.log" --min-severity high
  logsentry watch app.log --output json --nats-url nats://127.0.0.1:4222`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchFromStart, "from-start", false, "analyze existing content before following")
	watchCmd.Flags().BoolVar(&watchNoSummary, "no-summary", false, "skip the summary printed on exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	e, _, err := newEngine(nil)
	if err != nil {
		return err
	}
	p, err := newPipeline(e, args, watchFromStart, nil)
	if err != nil {
		return fmt.Errorf("start watching: %w", err)
	}
	defer p.close()

	paths := p.watcher.Paths()
	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "watching %d file(s):\n", len(paths))
	for _, path := range paths {
		fmt.Fprintf(stderr, "  %s\n", path)
	}

	var renderer output.Renderer
	switch strings.ToLower(settings.Output) {
	case "json":
		renderer = output.NewJSONRenderer(cmd.OutOrStdout())
	default:
		renderer = output.NewTextRenderer(cmd.OutOrStdout())
	}

	events := p.hub.Subscribe()
	wait := p.start(ctx)

	for ev := range events {
		if err := renderer.Render(ev.Source, ev.Detection); err != nil {
			logger.Error("render failed", "error", err)
		}
	}
	wait()

	if watchNoSummary {
		return nil
	}
	results := p.hub.Results(context.WithoutCancel(ctx))
	if len(results) == 0 {
		return nil
	}
	return output.WriteScanReport(stderr, e.Merge(results...))
}
