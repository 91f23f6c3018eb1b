// Package hub runs live lines through the engine and fans detections out to
// subscribers.
package hub

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/engine"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/tailer"
)

const subscriberBuffer = 1024

// Event is one detection on a live source.
type Event struct {
	Source    string          `json:"source"`
	Detection model.Detection `json:"detection"`
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) Option { return func(h *Hub) { h.log = l } }

// WithDropHook is called with 1 for every event dropped for a slow subscriber.
func WithDropHook(fn func(n int)) Option { return func(h *Hub) { h.onDrop = fn } }

// Hub keeps one engine stream per source and broadcasts every detection to all
// subscribers.
type Hub struct {
	engine *engine.Engine
	input  <-chan tailer.Line
	log    *slog.Logger
	onDrop func(n int)

	streamsMu sync.Mutex
	streams   map[string]*engine.Stream

	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool

	lines   atomic.Int64
	dropped atomic.Int64
}

// New creates a Hub that analyzes lines from input with e.
func New(e *engine.Engine, input <-chan tailer.Line, opts ...Option) *Hub {
	h := &Hub{
		engine:      e,
		input:       input,
		log:         slog.Default(),
		onDrop:      func(int) {},
		streams:     make(map[string]*engine.Stream),
		subscribers: make(map[chan Event]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Subscribe returns a buffered channel receiving every later event. The channel
// is closed by Unsubscribe or when the hub stops.
func (h *Hub) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe detaches and closes ch.
func (h *Hub) Unsubscribe(ch <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subscribers {
		if c == ch {
			delete(h.subscribers, c)
			close(c)
			return
		}
	}
}

// Dropped returns the number of events dropped for slow subscribers.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Lines returns the number of lines analyzed.
func (h *Hub) Lines() int64 { return h.lines.Load() }

// Start analyzes input until ctx is done or input is closed.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case l, ok := <-h.input:
			if !ok {
				return
			}
			h.Feed(l)
		}
	}
}

// Feed analyzes one line and broadcasts its detections, which it also returns.
func (h *Hub) Feed(l tailer.Line) []model.Detection {
	dets := h.stream(l.Source).Feed(l.Text)
	h.lines.Add(1)
	for _, d := range dets {
		h.broadcast(Event{Source: l.Source, Detection: d})
	}
	return dets
}

func (h *Hub) stream(source string) *engine.Stream {
	h.streamsMu.Lock()
	defer h.streamsMu.Unlock()
	s, ok := h.streams[source]
	if !ok {
		s = h.engine.NewStream(source)
		h.streams[source] = s
		h.log.Debug("new live source", "source", source)
	}
	return s
}

// Results snapshots the run of every source seen so far, ordered by source.
func (h *Hub) Results(ctx context.Context) []*model.AnalysisResult {
	h.streamsMu.Lock()
	names := make([]string, 0, len(h.streams))
	for name := range h.streams {
		names = append(names, name)
	}
	streams := make([]*engine.Stream, 0, len(names))
	sort.Strings(names)
	for _, name := range names {
		streams = append(streams, h.streams[name])
	}
	h.streamsMu.Unlock()

	out := make([]*model.AnalysisResult, len(streams))
	for i, s := range streams {
		out[i] = s.Result(ctx)
	}
	return out
}

// broadcast sends ev to every subscriber, dropping it for any whose buffer is full.
func (h *Hub) broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			n := h.dropped.Add(1)
			h.onDrop(1)
			h.log.Debug("dropped event for slow subscriber", "rule_id", ev.Detection.RuleID, "total_dropped", n)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = make(map[chan Event]struct{})
	h.closed = true
}
