// Package aggregator keeps live counters over the hub's detection events.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/hub"
)

const (
	window     = 5 * time.Second
	recentSize = 50
)

// Stats holds a point-in-time snapshot of live detection metrics.
type Stats struct {
	Uptime          string           `json:"uptime"`
	TotalDetections int64            `json:"total_detections"`
	DPS             float64          `json:"detections_per_second"`
	BySeverity      map[string]int64 `json:"by_severity"`
	ByRule          map[string]int64 `json:"by_rule"`
	BySource        map[string]int64 `json:"by_source"`
	Recent          []hub.Event      `json:"recent"`
	LinesProcessed  int64            `json:"lines_processed"`
	DroppedEvents   int64            `json:"dropped_events"`
	FilesWatched    int              `json:"files_watched"`
}

// Aggregator consumes a hub subscription and computes time-windowed metrics.
type Aggregator struct {
	mu         sync.RWMutex
	startTime  time.Time
	total      int64
	bySeverity map[string]int64
	byRule     map[string]int64
	bySource   map[string]int64
	window     []time.Time // arrival times within the last five seconds
	recent     []hub.Event // newest last
	events     <-chan hub.Event
	h          *hub.Hub
	fileCount  func() int
}

// New creates an Aggregator over a subscription of h. fileCountFn reports how
// many files are being watched and may be nil.
func New(h *hub.Hub, fileCountFn func() int) *Aggregator {
	if fileCountFn == nil {
		fileCountFn = func() int { return 0 }
	}
	return &Aggregator{
		startTime:  time.Now(),
		bySeverity: make(map[string]int64),
		byRule:     make(map[string]int64),
		bySource:   make(map[string]int64),
		events:     h.Subscribe(),
		h:          h,
		fileCount:  fileCountFn,
	}
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	var recent int
	for _, t := range a.window {
		if t.After(cutoff) {
			recent++
		}
	}

	return Stats{
		Uptime:          time.Since(a.startTime).Truncate(time.Second).String(),
		TotalDetections: a.total,
		DPS:             float64(recent) / window.Seconds(),
		BySeverity:      copyCounts(a.bySeverity),
		ByRule:          copyCounts(a.byRule),
		BySource:        copyCounts(a.bySource),
		Recent:          append([]hub.Event{}, a.recent...),
		LinesProcessed:  a.h.Lines(),
		DroppedEvents:   a.h.Dropped(),
		FilesWatched:    a.fileCount(),
	}
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Start consumes events until ctx is done or the subscription closes.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.events:
			if !ok {
				return
			}
			a.record(ev)
		case <-ticker.C:
			a.prune()
		}
	}
}

func (a *Aggregator) record(ev hub.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.bySeverity[ev.Detection.Severity.String()]++
	a.byRule[ev.Detection.RuleID]++
	a.bySource[ev.Source]++
	a.window = append(a.window, time.Now())

	a.recent = append(a.recent, ev)
	if len(a.recent) > recentSize {
		a.recent = append(a.recent[:0], a.recent[len(a.recent)-recentSize:]...)
	}
}

// prune drops arrival times older than the window.
func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-window)
	i := 0
	for _, t := range a.window {
		if t.After(cutoff) {
			a.window[i] = t
			i++
		}
	}
	a.window = a.window[:i]
}
