package rules

// Specificity describes how strongly a line matched a rule.
type Specificity struct {
	SubPatterns int // distinct sub-patterns of the rule that matched
	MatchLen    int // length in bytes of the reported match
}

const (
	subPatternBoost = 5
	shortMatchLen   = 3
	shortMatchCost  = 10
)

// Confidence derives a detection's confidence from the rule's base value.
// Every extra matching sub-pattern adds 5, a match shorter than 3 bytes costs 10,
// and the result is clamped to [0,100].
func Confidence(base int, s Specificity) int {
	c := base
	if s.SubPatterns > 1 {
		c += (s.SubPatterns - 1) * subPatternBoost
	}
	if s.MatchLen < shortMatchLen {
		c -= shortMatchCost
	}
	return clamp(c, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
