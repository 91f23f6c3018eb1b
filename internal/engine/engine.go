// Package engine runs the detection pipeline: parse, match, track, score and
// summarize, over a stream of lines.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/ipstats"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/matcher"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/parser"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/scoring"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/summary"
)

// Source yields input lines. *bufio.Scanner satisfies it.
type Source interface {
	Scan() bool
	Text() string
	Err() error
}

// clipper is implemented by sources that cut overlong lines.
type clipper interface {
	Clipped() bool
}

// Engine is immutable after New and may run any number of analyses concurrently.
type Engine struct {
	opts     Options
	catalog  *rules.Catalog
	view     *rules.View
	matcher  *matcher.Matcher
	registry *parser.Registry
	log      *slog.Logger
	metrics  Recorder
}

// New validates opts against catalog and returns a ready engine. It fails with a
// *ConfigError before any line is read when an option is invalid.
func New(catalog *rules.Catalog, opts Options) (*Engine, error) {
	if err := opts.validate(catalog); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	view := catalog.View(rules.Filter{Categories: opts.EnabledCategories, MinSeverity: opts.MinSeverity})

	var regOpts []parser.Option
	if opts.ReferenceYear > 0 {
		regOpts = append(regOpts, parser.WithReferenceYear(opts.ReferenceYear))
	}

	e := &Engine{
		opts:     opts,
		catalog:  catalog,
		view:     view,
		matcher:  matcher.New(view, matcher.WithMaxScanBytes(opts.MaxScanBytes)),
		registry: parser.NewRegistry(regOpts...),
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
	e.log.Debug("engine ready",
		"rules", view.Len(),
		"catalog_rules", catalog.Len(),
		"min_severity", opts.MinSeverity.String(),
		"workers", opts.Workers)
	return e, nil
}

// Catalog returns the full rule catalog.
func (e *Engine) Catalog() *rules.Catalog { return e.catalog }

// ActiveRules returns the rules this engine evaluates.
func (e *Engine) ActiveRules() []*rules.Rule { return e.view.Rules() }

// Options returns the effective options, defaults applied.
func (e *Engine) Options() Options { return e.opts }

// Analyze consumes src and returns the result. When src fails or ctx is canceled
// the partial result is returned together with a *StreamError.
func (e *Engine) Analyze(ctx context.Context, src Source) (*model.AnalysisResult, error) {
	r := e.newRun()
	if n, ok := src.(interface{ Name() string }); ok {
		r.source = n.Name()
	}

	var err error
	if e.opts.Workers > 1 {
		err = e.analyzeParallel(ctx, src, r)
	} else {
		err = e.read(ctx, src, func(c chunk) bool {
			r.fold(e.process(c))
			return true
		})
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	var streamErr *StreamError
	if err != nil {
		streamErr = &StreamError{Line: r.lines, Err: err}
		r.truncated = true
		e.log.Warn("input ended early", "source", r.source, "line", r.lines, "error", err)
	}

	res := e.result(context.WithoutCancel(ctx), r, uuid.NewString())
	e.completed(res)
	if streamErr != nil {
		res.StreamError = streamErr.Error()
		return res, streamErr
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

type chunk struct {
	index    int
	start    int // line number of lines[0]
	lines    []string
	clipped  int // lines cut to MaxLineBytes
	registry *parser.Registry
}

// read cuts src into chunks and hands them to emit in order. It stops at MaxLines,
// when emit returns false, or when ctx is done.
func (e *Engine) read(ctx context.Context, src Source, emit func(chunk) bool) error {
	var (
		size     = e.opts.ChunkSize
		registry = e.registry
		buf      = make([]string, 0, size)
		index    int
		line     int
		clipped  int
	)
	clip, _ := src.(clipper)
	if e.opts.MaxLines > 0 && e.opts.MaxLines < size {
		buf = make([]string, 0, e.opts.MaxLines)
	}

	flush := func() bool {
		if len(buf) == 0 {
			return true
		}
		c := chunk{index: index, start: line - len(buf) + 1, lines: buf, clipped: clipped, registry: registry}
		index++
		clipped = 0
		buf = make([]string, 0, cap(buf))
		return emit(c)
	}

	for {
		if e.opts.MaxLines > 0 && line >= e.opts.MaxLines {
			break
		}
		if line%256 == 0 && ctx.Err() != nil {
			flush()
			return ctx.Err()
		}
		if !src.Scan() {
			break
		}
		text := src.Text()
		line++
		if clip != nil && clip.Clipped() {
			clipped++
			e.log.Debug("line cut to maximum length", "line", line, "max_bytes", MaxLineBytes)
		}
		if line == 1 {
			if reg, ok := registry.WithCSVHeader(text); ok {
				registry = reg
				e.log.Debug("adopted delimited header", "header", text)
			}
		}
		buf = append(buf, text)
		if len(buf) == size && !flush() {
			return ctx.Err()
		}
	}
	if !flush() {
		return ctx.Err()
	}
	return src.Err()
}

// ---------------------------------------------------------------------------
// Chunk processing (no shared state)
// ---------------------------------------------------------------------------

type chunkResult struct {
	index      int
	lines      int
	clipped    int
	structured int
	formats    map[string]int
	detections []model.Detection
	candidates []matcher.Candidate
	tracker    *ipstats.Tracker
}

func (e *Engine) process(c chunk) chunkResult {
	res := chunkResult{
		index:   c.index,
		lines:   len(c.lines),
		clipped: c.clipped,
		formats: make(map[string]int),
		tracker: ipstats.NewTracker(e.opts.IPSuspicionThreshold),
	}
	for i, raw := range c.lines {
		rec := c.registry.Parse(c.start+i, raw)
		res.formats[rec.Format]++
		if rec.Structured() {
			res.structured++
		}

		ip := ipstats.SourceOf(rec)
		res.tracker.Observe(ip, rec.Timestamp)

		dets, cands := e.matcher.Match(rec, ip)
		for _, d := range dets {
			res.tracker.Record(ip, d.Severity)
		}
		res.detections = append(res.detections, dets...)
		res.candidates = append(res.candidates, cands...)
	}
	e.metrics.LinesProcessed(res.lines)
	return res
}

// ---------------------------------------------------------------------------
// Run state (owned by the merging goroutine)
// ---------------------------------------------------------------------------

type run struct {
	e          *Engine
	source     string
	started    time.Time
	lines      int
	clipped    int
	structured int
	formats    map[string]int
	detections []model.Detection
	tracker    *ipstats.Tracker
	correlator *matcher.Correlator
	score      scoring.Accumulator
	limit      bool
	truncated  bool
}

func (e *Engine) newRun() *run {
	return &run{
		e:          e,
		started:    time.Now(),
		formats:    make(map[string]int),
		tracker:    ipstats.NewTracker(e.opts.IPSuspicionThreshold),
		correlator: matcher.NewCorrelator(),
	}
}

// fold merges a chunk result. Chunks must be folded in index order so that
// correlation counts see candidates in line order.
func (r *run) fold(c chunkResult) {
	r.lines += c.lines
	r.clipped += c.clipped
	r.structured += c.structured
	for k, v := range c.formats {
		r.formats[k] += v
	}

	for _, ip := range r.tracker.Merge(c.tracker) {
		r.flagged(ip)
	}

	var correlated []model.Detection
	for _, cand := range c.candidates {
		d, ok := r.correlator.Observe(cand)
		if !ok {
			continue
		}
		correlated = append(correlated, d)
		if r.tracker.Record(d.SourceIP, d.Severity) {
			r.flagged(d.SourceIP)
		}
	}

	dets := c.detections
	if len(correlated) > 0 {
		dets = append(append(make([]model.Detection, 0, len(dets)+len(correlated)), dets...), correlated...)
		r.sortDetections(dets)
	}
	for _, d := range dets {
		r.score.Add(d.Severity)
		r.e.metrics.Detection(d)
	}
	r.detections = append(r.detections, dets...)
}

func (r *run) flagged(ip string) {
	r.e.metrics.IPFlagged(ip)
	r.e.log.Info("source flagged as suspicious", "ip", ip, "source", r.source)
}

// sortDetections orders by line, then catalog position.
func (r *run) sortDetections(dets []model.Detection) {
	c := r.e.catalog
	sort.SliceStable(dets, func(i, j int) bool {
		if dets[i].LineNumber != dets[j].LineNumber {
			return dets[i].LineNumber < dets[j].LineNumber
		}
		return c.Index(dets[i].RuleID) < c.Index(dets[j].RuleID)
	})
}

// result builds the result of r so far. It only touches r, so live snapshots
// pass a copy and may call it repeatedly.
func (e *Engine) result(ctx context.Context, r *run, runID string) *model.AnalysisResult {
	r.sortDetections(r.detections)
	if e.opts.MaxLines > 0 && r.lines >= e.opts.MaxLines {
		r.limit = true
	}

	r.score.AddRecords(r.lines)
	score := r.score.Score()
	stats := r.tracker.Stats(ctx, e.opts.GeoLookup)
	if r.detections == nil {
		r.detections = []model.Detection{}
	}

	res := &model.AnalysisResult{
		RunID:        runID,
		Source:       r.source,
		Detections:   r.detections,
		IPStats:      stats,
		RiskScore:    score,
		RiskLevel:    scoring.Level(score),
		TotalLines:   r.lines,
		LimitReached: r.limit,
		Truncated:    r.truncated,
		Started:      r.started,
		Duration:     time.Since(r.started),
	}
	res.Summary = summary.Build(summary.Input{
		Detections:      res.Detections,
		IPStats:         stats,
		TotalLines:      r.lines,
		StructuredLines: r.structured,
		ClippedLines:    r.clipped,
		Formats:         r.formats,
		TopN:            e.opts.TopN,
		Bucket:          e.opts.TimelineBucket,
	})
	return res
}

// completed records the end of a run that read its whole input.
func (e *Engine) completed(res *model.AnalysisResult) {
	e.metrics.RunCompleted(res.Duration, res.Truncated)
	e.log.Info("analysis complete",
		"run_id", res.RunID,
		"source", res.Source,
		"lines", res.TotalLines,
		"detections", len(res.Detections),
		"risk_score", res.RiskScore,
		"duration", res.Duration)
}
