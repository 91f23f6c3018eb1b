// Package rules holds the immutable catalog of detection rules.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

// ErrRuleCompile is matched by every catalog construction failure.
var ErrRuleCompile = errors.New("rule compile error")

// CompileError reports the rule and pattern that could not be compiled.
type CompileError struct {
	RuleID  string
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("rule %q: pattern %q: %v", e.RuleID, e.Pattern, e.Err)
	}
	return fmt.Sprintf("rule %q: %v", e.RuleID, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRuleCompile) match any CompileError.
func (e *CompileError) Is(target error) bool { return target == ErrRuleCompile }

// GroupBy selects the key a correlation rule counts under.
type GroupBy string

const (
	GroupByIP   GroupBy = "ip"
	GroupByUser GroupBy = "user" // falls back to the user name when the source IP is absent
)

// Definition is the uncompiled, serializable form of a rule.
type Definition struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description"`
	Patterns      []string `yaml:"patterns" json:"patterns"`
	Severity      string   `yaml:"severity" json:"severity"`
	Confidence    int      `yaml:"confidence" json:"confidence"`
	Category      string   `yaml:"category" json:"category"`
	Tags          []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Threshold     int      `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	GroupBy       GroupBy  `yaml:"group_by,omitempty" json:"group_by,omitempty"`
	CaseSensitive bool     `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
}

// Rule is a compiled detection rule. Rules are shared read-only between goroutines.
type Rule struct {
	ID             string
	Name           string
	Description    string
	Patterns       []*regexp.Regexp
	Severity       model.Severity
	BaseConfidence int
	Category       string
	Tags           []string
	Threshold      int
	GroupBy        GroupBy
}

// Correlated reports whether the rule fires on a count of matches rather than on
// a single line.
func (r *Rule) Correlated() bool { return r.Threshold > 0 }

// HasTag reports whether the rule carries tag.
func (r *Rule) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Compile validates d and compiles its patterns.
func Compile(d Definition) (*Rule, error) {
	fail := func(format string, args ...any) error {
		return &CompileError{RuleID: d.ID, Err: fmt.Errorf(format, args...)}
	}

	id := strings.TrimSpace(d.ID)
	if id == "" {
		return nil, fail("rule id is required")
	}
	if strings.TrimSpace(d.Category) == "" {
		return nil, fail("category is required")
	}
	if len(d.Patterns) == 0 {
		return nil, fail("at least one pattern is required")
	}
	sev, err := model.ParseSeverity(d.Severity)
	if err != nil {
		return nil, &CompileError{RuleID: id, Err: err}
	}
	if d.Confidence < 0 || d.Confidence > 100 {
		return nil, fail("confidence %d out of range [0,100]", d.Confidence)
	}
	if d.Threshold < 0 {
		return nil, fail("threshold must not be negative")
	}
	group := d.GroupBy
	switch group {
	case "":
		group = GroupByIP
	case GroupByIP, GroupByUser:
	default:
		return nil, fail("unknown group_by %q", d.GroupBy)
	}

	r := &Rule{
		ID:             id,
		Name:           d.Name,
		Description:    d.Description,
		Severity:       sev,
		BaseConfidence: d.Confidence,
		Category:       strings.TrimSpace(d.Category),
		Tags:           append([]string(nil), d.Tags...),
		Threshold:      d.Threshold,
		GroupBy:        group,
	}
	if r.Name == "" {
		r.Name = id
	}
	for _, p := range d.Patterns {
		if p == "" {
			return nil, fail("empty pattern")
		}
		expr := p
		if !d.CaseSensitive {
			expr = "(?i)" + p
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, &CompileError{RuleID: id, Pattern: p, Err: err}
		}
		r.Patterns = append(r.Patterns, re)
	}
	return r, nil
}
