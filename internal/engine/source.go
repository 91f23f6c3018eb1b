package engine

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

// MaxLineBytes is the longest line a ReaderSource keeps. Longer lines are cut to
// this length and the rest is skipped.
const MaxLineBytes = 4 << 20

// ReaderSource reads newline-delimited lines from an io.Reader. A trailing "\r"
// is dropped, as with bufio.ScanLines.
type ReaderSource struct {
	r       *bufio.Reader
	name    string
	line    []byte
	clipped bool
	err     error
}

// NewReaderSource wraps r. name is reported as the result source.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{r: bufio.NewReaderSize(r, 64*1024), name: name}
}

// NewStringSource reads lines from text.
func NewStringSource(name, text string) *ReaderSource {
	return NewReaderSource(name, strings.NewReader(text))
}

// Name returns the source name.
func (s *ReaderSource) Name() string { return s.name }

// Scan advances to the next line.
func (s *ReaderSource) Scan() bool {
	if s.err != nil {
		return false
	}
	s.line = s.line[:0]
	s.clipped = false
	started := false
	for {
		frag, more, err := s.r.ReadLine()
		if err != nil {
			s.err = err
			return started
		}
		started = true
		if room := MaxLineBytes - len(s.line); len(frag) > room {
			frag = frag[:room]
			s.clipped = true
		}
		s.line = append(s.line, frag...)
		if !more {
			return true
		}
	}
}

// Text returns the current line.
func (s *ReaderSource) Text() string { return string(s.line) }

// Clipped reports whether the current line was longer than MaxLineBytes.
func (s *ReaderSource) Clipped() bool { return s.clipped }

// Err returns the first read error other than io.EOF.
func (s *ReaderSource) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// AnalyzeReader is shorthand for Analyze over NewReaderSource(name, r).
func (e *Engine) AnalyzeReader(ctx context.Context, name string, r io.Reader) (*model.AnalysisResult, error) {
	return e.Analyze(ctx, NewReaderSource(name, r))
}
