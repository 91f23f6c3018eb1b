package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/aggregator"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/config"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/metrics"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/server"
)

var (
	servePprof     bool
	serveFromStart bool
	serveMaxBody   int64
)

var serveCmd = &cobra.Command{
	Use:   "serve [paths...]",
	Short: "Serve the analysis API, optionally watching log files",
	Long: `Start the HTTP API. POST a log body to /api/analyze for an on-demand report;
GET /api/rules lists the active rules and /metrics exposes Prometheus metrics.
When paths are given they are watched, and /api/stats and the /ws feed report
live detections.

Examples:
  logsentry serve --addr :9090
  logsentry serve /var/log/nginx/access.log /var/log/auth.log
  curl --data-binary @access.log localhost:8080/api/analyze?min_severity=high`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().BoolVar(&servePprof, "pprof", false, "expose /debug/pprof")
	serveCmd.Flags().BoolVar(&serveFromStart, "from-start", false, "analyze existing content of watched files")
	serveCmd.Flags().Int64Var(&serveMaxBody, "max-body", server.DefaultMaxBody, "largest accepted /api/analyze body in bytes")
	bindFlag(serveCmd, config.KeyAddr, "addr")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)
	e, _, err := newEngine(m)
	if err != nil {
		return err
	}

	cfg := server.Config{
		Addr:    settings.Addr,
		Engine:  e,
		Logger:  logger,
		MaxBody: serveMaxBody,
		Pprof:   servePprof,
	}

	wait := func() {}
	if len(args) > 0 {
		p, err := newPipeline(e, args, serveFromStart, m)
		if err != nil {
			return fmt.Errorf("start watching: %w", err)
		}
		defer p.close()

		agg := aggregator.New(p.hub, func() int { return len(p.watcher.Paths()) })
		go agg.Start(ctx)
		wait = p.start(ctx)

		cfg.Hub = p.hub
		cfg.Aggregator = agg
		logger.Info("watching", "files", len(p.watcher.Paths()))
	}

	err = server.New(cfg).Run(ctx)
	cancel()
	wait()
	return err
}
