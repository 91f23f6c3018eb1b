package engine

import (
	"context"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/ipstats"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/scoring"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/summary"
)

// Merge combines results of separately analyzed sources into one report. Line
// numbers stay relative to their own source.
func (e *Engine) Merge(results ...*model.AnalysisResult) *model.Report {
	rep := &model.Report{Files: make([]model.FileResult, 0, len(results))}

	tracker := ipstats.NewTracker(e.opts.IPSuspicionThreshold)
	formats := make(map[string]int)
	var (
		acc        scoring.Accumulator
		detections []model.Detection
		structured int
		clipped    int
	)
	for _, res := range results {
		if res == nil {
			continue
		}
		rep.Files = append(rep.Files, model.FileResult{
			Source:     res.Source,
			TotalLines: res.TotalLines,
			Detections: len(res.Detections),
			RiskScore:  res.RiskScore,
			RiskLevel:  res.RiskLevel,
			Truncated:  res.Truncated,
		})
		rep.TotalLines += res.TotalLines
		rep.Duration += res.Duration
		detections = append(detections, res.Detections...)
		for _, d := range res.Detections {
			acc.Add(d.Severity)
		}
		acc.AddRecords(res.TotalLines)
		structured += res.Summary.StructuredLines
		clipped += res.Summary.ClippedLines
		for k, v := range res.Summary.Formats {
			formats[k] += v
		}
		tracker.Merge(ipstats.FromStats(e.opts.IPSuspicionThreshold, res.IPStats))
	}

	rep.TotalDetections = len(detections)
	rep.RiskScore = acc.Score()
	rep.RiskLevel = scoring.Level(rep.RiskScore)
	rep.IPStats = tracker.Stats(context.Background(), nil)
	rep.Summary = summary.Build(summary.Input{
		Detections:      detections,
		IPStats:         rep.IPStats,
		TotalLines:      rep.TotalLines,
		StructuredLines: structured,
		ClippedLines:    clipped,
		Formats:         formats,
		TopN:            e.opts.TopN,
		Bucket:          e.opts.TimelineBucket,
	})
	return rep
}
