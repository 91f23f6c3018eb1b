package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/ipstats"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/matcher"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/summary"
)

// DefaultChunkSize is the number of lines handed to a worker at a time.
const DefaultChunkSize = 10000

// Options configures an Engine. The zero value analyzes everything sequentially
// with default thresholds.
type Options struct {
	EnabledCategories    []string       // empty means every category
	MinSeverity          model.Severity // rules below this level are not evaluated
	MaxLines             int            // 0 means unbounded
	IPSuspicionThreshold int            // 0 means ipstats.DefaultThreshold
	GeoLookup            ipstats.GeoLookup

	Workers        int // values below 2 process inline
	ChunkSize      int
	MaxScanBytes   int // per-line bound for rule evaluation; negative disables it
	TopN           int
	TimelineBucket time.Duration
	ReferenceYear  int // year for timestamps that carry none; 0 means the current year

	Logger  *slog.Logger
	Metrics Recorder
}

// Recorder receives run telemetry. Implementations must be safe for concurrent use.
type Recorder interface {
	LinesProcessed(n int)
	Detection(d model.Detection)
	IPFlagged(ip string)
	RunCompleted(elapsed time.Duration, truncated bool)
}

type nopRecorder struct{}

func (nopRecorder) LinesProcessed(int)               {}
func (nopRecorder) Detection(model.Detection)        {}
func (nopRecorder) IPFlagged(string)                 {}
func (nopRecorder) RunCompleted(time.Duration, bool) {}

func (o Options) validate(c *rules.Catalog) error {
	for _, cat := range o.EnabledCategories {
		if !c.HasCategory(cat) {
			return &ConfigError{Field: "enabled_categories", Err: fmt.Errorf("unknown category %q", cat)}
		}
	}
	if !o.MinSeverity.Valid() {
		return &ConfigError{Field: "min_severity", Err: fmt.Errorf("unknown severity %d", int(o.MinSeverity))}
	}
	checks := []struct {
		field string
		bad   bool
	}{
		{"max_lines", o.MaxLines < 0},
		{"ip_suspicion_threshold", o.IPSuspicionThreshold < 0},
		{"workers", o.Workers < 0},
		{"chunk_size", o.ChunkSize < 0},
		{"top_n", o.TopN < 0},
		{"timeline_bucket", o.TimelineBucket < 0},
		{"reference_year", o.ReferenceYear < 0},
	}
	for _, c := range checks {
		if c.bad {
			return &ConfigError{Field: c.field, Err: errors.New("must not be negative")}
		}
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.IPSuspicionThreshold == 0 {
		o.IPSuspicionThreshold = ipstats.DefaultThreshold
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.MaxScanBytes == 0 {
		o.MaxScanBytes = matcher.DefaultMaxScanBytes
	}
	if o.TopN == 0 {
		o.TopN = summary.DefaultTopN
	}
	if o.TimelineBucket == 0 {
		o.TimelineBucket = summary.DefaultBucket
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Metrics == nil {
		o.Metrics = nopRecorder{}
	}
	return o
}
