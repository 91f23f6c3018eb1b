package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity is the ordinal threat level of a rule or detection.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Severities lists every level from lowest to highest.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

var severityNames = [...]string{"low", "medium", "high", "critical"}

// severityWeights feed the risk score.
var severityWeights = [...]int{1, 3, 7, 15}

func (s Severity) String() string {
	if !s.Valid() {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Valid reports whether s is one of the four known levels.
func (s Severity) Valid() bool {
	return s >= SeverityLow && s <= SeverityCritical
}

// Weight returns the risk weight of the level (low=1, medium=3, high=7, critical=15).
func (s Severity) Weight() int {
	if !s.Valid() {
		return 0
	}
	return severityWeights[s]
}

// ParseSeverity converts a level name (case-insensitive) to a Severity.
func ParseSeverity(name string) (Severity, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range severityNames {
		if s == n {
			return Severity(i), nil
		}
	}
	return SeverityLow, fmt.Errorf("unknown severity %q (want low, medium, high or critical)", name)
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// SeverityHistogram counts occurrences per level.
type SeverityHistogram [4]int

// Add increments the bucket for s. Invalid levels are ignored.
func (h *SeverityHistogram) Add(s Severity) {
	if s.Valid() {
		h[s]++
	}
}

// Merge adds every bucket of o into h.
func (h *SeverityHistogram) Merge(o SeverityHistogram) {
	for i := range h {
		h[i] += o[i]
	}
}

// Total returns the sum of all buckets.
func (h SeverityHistogram) Total() int {
	n := 0
	for _, v := range h {
		n += v
	}
	return n
}

// Map returns the non-empty buckets keyed by level name.
func (h SeverityHistogram) Map() map[string]int {
	m := make(map[string]int, len(h))
	for i, v := range h {
		if v > 0 {
			m[severityNames[i]] = v
		}
	}
	return m
}

func (h SeverityHistogram) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Map())
}

func (h *SeverityHistogram) UnmarshalJSON(b []byte) error {
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*h = SeverityHistogram{}
	for name, n := range m {
		s, err := ParseSeverity(name)
		if err != nil {
			return err
		}
		h[s] = n
	}
	return nil
}

// Detection is a single rule-to-line match.
type Detection struct {
	RuleID      string    `json:"rule_id"`
	RuleName    string    `json:"rule_name"`
	LineNumber  int       `json:"line_number"`
	MatchedText string    `json:"matched_text"`
	Severity    Severity  `json:"severity"`
	Confidence  int       `json:"confidence"` // 0-100
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
	SourceIP    string    `json:"source_ip,omitempty"`
}
