// Package cmd holds the logsentry command-line interface.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/config"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/engine"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
)

var (
	cfgFile  string
	envFiles []string

	v        = viper.New()
	settings *config.Config
	logger   *slog.Logger
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "logsentry",
	Short: "Log security analyzer",
	Long: `LogSentry scans log files for security-relevant activity: injection and
traversal attempts, brute force, scanners, malware and exfiltration signatures.
It normalizes many log formats, scores the overall risk and tracks suspicious
source addresses, from a one-off file scan to a live dashboard.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(v)

	f := rootCmd.PersistentFlags()
	f.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.logsentry.yaml)")
	f.StringSliceVar(&envFiles, "env-file", nil, ".env files to load (default: ./.env when present)")
	f.StringP("output", "o", "text", "output format: text, json, csv")
	f.String("log-level", "warn", "log level: debug, info, warn, error")
	f.StringSlice("categories", nil, "only evaluate rules in these categories (comma-separated)")
	f.String("min-severity", "low", "only evaluate rules at or above this severity")
	f.Int("max-lines", 0, "stop after this many lines per input (0 = unlimited)")
	f.Int("ip-threshold", 0, "detections before a source address is suspicious (default 5)")
	f.Int("workers", 0, "parallel workers per input (default: number of CPUs)")
	f.StringSlice("rules", nil, "YAML rule files overlaid on the built-in rules")
	f.String("geo-table", "", "CSV of cidr,country,city,asn,org for address enrichment")
	f.String("nats-url", "", "publish live detections to this NATS server (watch, serve)")
	f.String("nats-subject", "", "NATS subject for alerts (default logsentry.detections)")
	f.String("nats-min-severity", "high", "lowest severity published to NATS")
	f.Float64("nats-rate", 10, "alerts per second published to NATS (0 = unlimited)")
	f.Int("nats-burst", 20, "burst of alerts allowed above the NATS rate")

	for key, flag := range map[string]string{
		config.KeyOutput:          "output",
		config.KeyLogLevel:        "log-level",
		config.KeyCategories:      "categories",
		config.KeyMinSeverity:     "min-severity",
		config.KeyMaxLines:        "max-lines",
		config.KeyIPThreshold:     "ip-threshold",
		config.KeyWorkers:         "workers",
		config.KeyRules:           "rules",
		config.KeyGeoTable:        "geo-table",
		config.KeyNATSURL:         "nats-url",
		config.KeyNATSSubject:     "nats-subject",
		config.KeyNATSMinSeverity: "nats-min-severity",
		config.KeyNATSRate:        "nats-rate",
		config.KeyNATSBurst:       "nats-burst",
	} {
		bindFlag(rootCmd, key, flag)
	}
}

// bindFlag binds a flag to a config key. Unset flags fall through to the config
// file, the environment and defaults.
func bindFlag(c *cobra.Command, key, flag string) {
	fl := c.PersistentFlags().Lookup(flag)
	if fl == nil {
		fl = c.Flags().Lookup(flag)
	}
	cobra.CheckErr(v.BindPFlag(key, fl))
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(envFiles...); err != nil {
		return err
	}
	if err := config.Init(v, cfgFile); err != nil {
		return err
	}
	s, err := config.Load(v)
	if err != nil {
		return err
	}
	settings = s
	logger = config.NewLogger(cmd.ErrOrStderr(), s.LogLevel)
	slog.SetDefault(logger)
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("loaded config file", "path", used)
	}
	return nil
}

// newEngine builds the catalog and engine from the loaded settings.
func newEngine(rec engine.Recorder) (*engine.Engine, *rules.Catalog, error) {
	catalog, err := settings.Catalog()
	if err != nil {
		return nil, nil, err
	}
	opts, err := settings.EngineOptions(logger, rec)
	if err != nil {
		return nil, nil, err
	}
	e, err := engine.New(catalog, opts)
	if err != nil {
		return nil, nil, err
	}
	return e, catalog, nil
}

// outputWriter returns path opened for writing, or stdout when path is empty.
func outputWriter(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
