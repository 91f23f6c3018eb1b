package engine

import (
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/ipstats"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

// Inspect parses one line and evaluates the active rules against it, as line 1
// of an empty run. Correlation rules need a run of lines and never fire here.
func (e *Engine) Inspect(line string) (model.LogRecord, []model.Detection) {
	rec := e.registry.Parse(1, line)
	dets, _ := e.matcher.Match(rec, ipstats.SourceOf(rec))
	if dets == nil {
		dets = []model.Detection{}
	}
	return rec, dets
}
