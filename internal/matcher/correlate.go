package matcher

import (
	"regexp"
	"strings"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
)

var userRe = regexp.MustCompile(`(?i)(?:\buser(?:name)?[=:]\s*"?|\bfor (?:invalid user |user )?)([\w.@-]+)`)

// correlationKey returns the grouping key for a correlation hit, or "" when the
// line carries nothing to group by.
func correlationKey(r *rules.Rule, ip, text string) string {
	if ip != "" {
		return "ip:" + ip
	}
	if r.GroupBy != rules.GroupByUser {
		return ""
	}
	if m := userRe.FindStringSubmatch(text); m != nil {
		return "user:" + strings.ToLower(m[1])
	}
	return ""
}

type counterKey struct {
	rule string
	key  string
}

// Correlator counts candidates per rule and key. Candidates must be fed in line
// order; it is not safe for concurrent use.
type Correlator struct {
	counts map[counterKey]int
}

// NewCorrelator returns an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{counts: make(map[counterKey]int)}
}

// Observe records c and returns its detection when this candidate is the one that
// brings the count to the rule's threshold. Each (rule, key) pair fires once.
func (c *Correlator) Observe(cand Candidate) (model.Detection, bool) {
	k := counterKey{rule: cand.Rule.ID, key: cand.Key}
	c.counts[k]++
	if c.counts[k] != cand.Rule.Threshold {
		return model.Detection{}, false
	}
	return cand.Detection, true
}

// Count returns how many candidates were seen for rule and key.
func (c *Correlator) Count(rule, key string) int {
	return c.counts[counterKey{rule: rule, key: key}]
}
