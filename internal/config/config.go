// Package config resolves settings from flags, config files, the environment and
// .env files into engine options.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/engine"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/ipstats"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/notify"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/summary"
)

// EnvPrefix prefixes every environment variable, e.g. LOGSENTRY_MIN_SEVERITY.
const EnvPrefix = "LOGSENTRY"

// Keys understood in config files and as LOGSENTRY_* variables.
const (
	KeyCategories      = "categories"
	KeyMinSeverity     = "min_severity"
	KeyMaxLines        = "max_lines"
	KeyIPThreshold     = "ip_threshold"
	KeyWorkers         = "workers"
	KeyChunkSize       = "chunk_size"
	KeyMaxScanBytes    = "max_scan_bytes"
	KeyTopN            = "top_n"
	KeyTimelineBucket  = "timeline_bucket"
	KeyReferenceYear   = "reference_year"
	KeyRules           = "rules"
	KeyGeoTable        = "geo_table"
	KeyGeoCache        = "geo_cache"
	KeyLogLevel        = "log_level"
	KeyOutput          = "output"
	KeyAddr            = "addr"
	KeyNATSURL         = "nats.url"
	KeyNATSSubject     = "nats.subject"
	KeyNATSRate        = "nats.rate"
	KeyNATSBurst       = "nats.burst"
	KeyNATSMinSeverity = "nats.min_severity"
)

// Config is the resolved, validated configuration.
type Config struct {
	Categories     []string
	MinSeverity    model.Severity
	MaxLines       int
	IPThreshold    int
	Workers        int
	ChunkSize      int
	MaxScanBytes   int
	TopN           int
	TimelineBucket time.Duration
	ReferenceYear  int

	RuleFiles    []string
	GeoTable     string
	GeoCacheSize int

	LogLevel slog.Level
	Output   string
	Addr     string

	NATS NATS
}

// NATS configures the optional alert publisher. An empty URL disables it.
type NATS struct {
	URL         string
	Subject     string
	Rate        float64
	Burst       int
	MinSeverity model.Severity
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyMinSeverity, "low")
	v.SetDefault(KeyIPThreshold, ipstats.DefaultThreshold)
	v.SetDefault(KeyWorkers, runtime.NumCPU())
	v.SetDefault(KeyChunkSize, engine.DefaultChunkSize)
	v.SetDefault(KeyTopN, summary.DefaultTopN)
	v.SetDefault(KeyTimelineBucket, summary.DefaultBucket)
	v.SetDefault(KeyGeoCache, 4096)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyOutput, "text")
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyNATSSubject, notify.DefaultSubject)
	v.SetDefault(KeyNATSRate, 10.0)
	v.SetDefault(KeyNATSBurst, 20)
	v.SetDefault(KeyNATSMinSeverity, "high")
}

// Init points v at its config file and the environment. With cfgFile empty it
// looks for .logsentry.yaml in the home and working directories; a missing
// file there is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".logsentry")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// LoadEnv loads variables from .env files without overriding the environment.
// With no files given it reads ./.env when present.
func LoadEnv(files ...string) error {
	optional := len(files) == 0
	if optional {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		Categories:     splitList(v.GetStringSlice(KeyCategories)),
		MaxLines:       v.GetInt(KeyMaxLines),
		IPThreshold:    v.GetInt(KeyIPThreshold),
		Workers:        v.GetInt(KeyWorkers),
		ChunkSize:      v.GetInt(KeyChunkSize),
		MaxScanBytes:   v.GetInt(KeyMaxScanBytes),
		TopN:           v.GetInt(KeyTopN),
		TimelineBucket: v.GetDuration(KeyTimelineBucket),
		ReferenceYear:  v.GetInt(KeyReferenceYear),
		RuleFiles:      splitList(v.GetStringSlice(KeyRules)),
		GeoTable:       v.GetString(KeyGeoTable),
		GeoCacheSize:   v.GetInt(KeyGeoCache),
		Output:         strings.ToLower(v.GetString(KeyOutput)),
		Addr:           v.GetString(KeyAddr),
		NATS: NATS{
			URL:     v.GetString(KeyNATSURL),
			Subject: v.GetString(KeyNATSSubject),
			Rate:    v.GetFloat64(KeyNATSRate),
			Burst:   v.GetInt(KeyNATSBurst),
		},
	}

	var err error
	if c.MinSeverity, err = severity(v, KeyMinSeverity); err != nil {
		return nil, err
	}
	if c.NATS.MinSeverity, err = severity(v, KeyNATSMinSeverity); err != nil {
		return nil, err
	}
	if c.LogLevel, err = ParseLevel(v.GetString(KeyLogLevel)); err != nil {
		return nil, &engine.ConfigError{Field: KeyLogLevel, Err: err}
	}
	switch c.Output {
	case "", "text", "json", "csv":
	default:
		return nil, &engine.ConfigError{Field: KeyOutput, Err: fmt.Errorf("unknown format %q (want text, json or csv)", c.Output)}
	}
	if c.GeoCacheSize < 0 {
		return nil, &engine.ConfigError{Field: KeyGeoCache, Err: errors.New("must not be negative")}
	}
	return c, nil
}

func severity(v *viper.Viper, key string) (model.Severity, error) {
	raw := v.GetString(key)
	if raw == "" {
		return model.SeverityLow, nil
	}
	s, err := model.ParseSeverity(raw)
	if err != nil {
		return 0, &engine.ConfigError{Field: key, Err: err}
	}
	return s, nil
}

// splitList flattens comma-separated entries, since environment variables arrive
// as a single string.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Catalog builds the rule catalog: built-in rules overlaid with RuleFiles.
func (c *Config) Catalog() (*rules.Catalog, error) {
	return rules.LoadCatalog(c.RuleFiles...)
}

// Geo returns the cached geo lookup for GeoTable, or nil when none is set.
func (c *Config) Geo() (ipstats.GeoLookup, error) {
	if c.GeoTable == "" {
		return nil, nil
	}
	table, err := ipstats.LoadTableFile(c.GeoTable)
	if err != nil {
		return nil, err
	}
	if c.GeoCacheSize == 0 {
		return table, nil
	}
	return ipstats.NewCachedLookup(table, c.GeoCacheSize)
}

// EngineOptions maps c onto engine options. logger and rec may be nil.
func (c *Config) EngineOptions(logger *slog.Logger, rec engine.Recorder) (engine.Options, error) {
	geo, err := c.Geo()
	if err != nil {
		return engine.Options{}, err
	}
	opts := engine.Options{
		EnabledCategories:    c.Categories,
		MinSeverity:          c.MinSeverity,
		MaxLines:             c.MaxLines,
		IPSuspicionThreshold: c.IPThreshold,
		GeoLookup:            geo,
		Workers:              c.Workers,
		ChunkSize:            c.ChunkSize,
		MaxScanBytes:         c.MaxScanBytes,
		TopN:                 c.TopN,
		TimelineBucket:       c.TimelineBucket,
		ReferenceYear:        c.ReferenceYear,
		Logger:               logger,
		Metrics:              rec,
	}
	return opts, nil
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, err
	}
	return l, nil
}

// NewLogger returns a text logger writing to w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
