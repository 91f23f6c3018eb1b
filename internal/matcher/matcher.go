// Package matcher evaluates catalog rules against normalized records.
package matcher

import (
	"regexp"
	"unicode/utf8"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
)

// DefaultMaxScanBytes bounds how much of a line the rules see.
const DefaultMaxScanBytes = 16 << 10

// Candidate is a correlation rule hit. It becomes a detection only when the
// Correlator has seen Threshold candidates for the same rule and key.
type Candidate struct {
	Rule      *rules.Rule
	Key       string
	Detection model.Detection
}

// Matcher is safe for concurrent use; it holds only compiled, read-only rules.
type Matcher struct {
	rules   []*rules.Rule
	maxScan int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithMaxScanBytes bounds the scanned prefix of each line. Zero or less disables the bound.
func WithMaxScanBytes(n int) Option {
	return func(m *Matcher) { m.maxScan = n }
}

// New returns a matcher over the rules of view.
func New(view *rules.View, opts ...Option) *Matcher {
	m := &Matcher{rules: view.Rules(), maxScan: DefaultMaxScanBytes}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rules returns the number of active rules.
func (m *Matcher) Rules() int { return len(m.rules) }

// Match evaluates every active rule against the raw text of rec. ip is the source
// address attributed to the record ("" when unknown). Detections come back in
// catalog order; correlation rules yield candidates instead.
func (m *Matcher) Match(rec model.LogRecord, ip string) ([]model.Detection, []Candidate) {
	text := truncate(rec.Raw, m.maxScan)
	if text == "" {
		return nil, nil
	}

	var (
		dets  []model.Detection
		cands []Candidate
	)
	for _, r := range m.rules {
		hit, ok := evaluate(r.Patterns, text)
		if !ok {
			continue
		}
		d := model.Detection{
			RuleID:      r.ID,
			RuleName:    r.Name,
			LineNumber:  rec.LineNumber,
			MatchedText: hit.text,
			Severity:    r.Severity,
			Confidence:  rules.Confidence(r.BaseConfidence, rules.Specificity{SubPatterns: hit.patterns, MatchLen: len(hit.text)}),
			Category:    r.Category,
			Timestamp:   rec.Timestamp,
			SourceIP:    ip,
		}
		if !r.Correlated() {
			dets = append(dets, d)
			continue
		}
		if key := correlationKey(r, ip, text); key != "" {
			cands = append(cands, Candidate{Rule: r, Key: key, Detection: d})
		}
	}
	return dets, cands
}

type hit struct {
	text     string
	patterns int // distinct sub-patterns that matched
}

// evaluate reports the leftmost match over all sub-patterns and how many of them
// matched.
func evaluate(patterns []*regexp.Regexp, text string) (hit, bool) {
	var (
		h     hit
		start = -1
	)
	for _, re := range patterns {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		h.patterns++
		if start < 0 || loc[0] < start {
			start = loc[0]
			h.text = text[loc[0]:loc[1]]
		}
	}
	return h, h.patterns > 0
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
