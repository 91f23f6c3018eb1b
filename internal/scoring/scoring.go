// Package scoring reduces detections to a single risk score.
package scoring

import (
	"math"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

// Risk levels.
const (
	LevelLow      = "low"
	LevelMedium   = "medium"
	LevelHigh     = "high"
	LevelCritical = "critical"
)

// Accumulator is the associative state behind a score: summed severity weight and
// the number of records analyzed.
type Accumulator struct {
	Weight  int
	Records int
}

// Add counts one detection of severity s.
func (a *Accumulator) Add(s model.Severity) { a.Weight += s.Weight() }

// AddRecords counts n analyzed records.
func (a *Accumulator) AddRecords(n int) { a.Records += n }

// Merge adds o into a.
func (a *Accumulator) Merge(o Accumulator) {
	a.Weight += o.Weight
	a.Records += o.Records
}

// Score returns the risk score in [0,100]. Density (weight per record) and volume
// (log of total weight) both saturate, so very large inputs do not grow the score
// without bound.
func (a Accumulator) Score() int {
	if a.Weight <= 0 || a.Records <= 0 {
		return 0
	}
	w := float64(a.Weight)
	density := 1 - math.Exp(-w/float64(a.Records))
	volume := math.Min(1, math.Log10(1+w)/3)
	s := int(math.Round(100 * (0.6*density + 0.4*volume)))
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}

// Score is a convenience for scoring a detection slice over records lines.
func Score(dets []model.Detection, records int) int {
	var a Accumulator
	for _, d := range dets {
		a.Add(d.Severity)
	}
	a.AddRecords(records)
	return a.Score()
}

// Level maps a score to its label.
func Level(score int) string {
	switch {
	case score >= 80:
		return LevelCritical
	case score >= 60:
		return LevelHigh
	case score >= 30:
		return LevelMedium
	}
	return LevelLow
}
