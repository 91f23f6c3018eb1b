package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/parser"
)

// Stream analyzes lines as they arrive, for inputs with no end such as a tailed
// file. Feed and Result may be called from different goroutines.
type Stream struct {
	mu       sync.Mutex
	e        *Engine
	run      *run
	runID    string
	registry *parser.Registry
}

// NewStream starts an incremental run. name is reported as the result source.
func (e *Engine) NewStream(name string) *Stream {
	r := e.newRun()
	r.source = name
	return &Stream{e: e, run: r, runID: uuid.NewString(), registry: e.registry}
}

// Feed analyzes one line and returns the detections it produced, including a
// correlation detection when this line completes one. Lines beyond MaxLines are
// ignored.
func (s *Stream) Feed(line string) []model.Detection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit := s.e.opts.MaxLines; limit > 0 && s.run.lines >= limit {
		return nil
	}
	if s.run.lines == 0 {
		if reg, ok := s.registry.WithCSVHeader(line); ok {
			s.registry = reg
		}
	}

	before := len(s.run.detections)
	s.run.fold(s.e.process(chunk{
		index:    s.run.lines,
		start:    s.run.lines + 1,
		lines:    []string{line},
		registry: s.registry,
	}))
	if len(s.run.detections) == before {
		return nil
	}
	out := make([]model.Detection, len(s.run.detections)-before)
	copy(out, s.run.detections[before:])
	return out
}

// Lines returns the number of lines fed so far.
func (s *Stream) Lines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run.lines
}

// Result returns a snapshot of the run so far. The stream stays usable, every
// snapshot carries the same RunID and none is recorded as a completed run.
func (s *Stream) Result(ctx context.Context) *model.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := *s.run
	snap.detections = append([]model.Detection(nil), s.run.detections...)
	snap.formats = make(map[string]int, len(s.run.formats))
	for k, v := range s.run.formats {
		snap.formats[k] = v
	}
	return s.e.result(ctx, &snap, s.runID)
}
