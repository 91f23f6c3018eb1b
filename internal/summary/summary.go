// Package summary projects detections and IP stats into report aggregates.
package summary

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

const (
	DefaultTopN   = 10
	DefaultBucket = time.Hour

	// ManyPublicIPs is the count of public addresses above which a run lists
	// external exposure as a risk factor.
	ManyPublicIPs = 50
)

// Input is everything a summary is derived from.
type Input struct {
	Detections      []model.Detection
	IPStats         map[string]model.IPStat
	TotalLines      int
	StructuredLines int
	ClippedLines    int
	Formats         map[string]int
	TopN            int           // rows in the top tables; DefaultTopN when zero
	Bucket          time.Duration // timeline bucket width; DefaultBucket when zero
}

// Build computes the summary. It adds nothing that is not already in the input.
func Build(in Input) model.Summary {
	topN := in.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	bucket := in.Bucket
	if bucket <= 0 {
		bucket = DefaultBucket
	}

	s := model.Summary{
		TotalLines:      in.TotalLines,
		StructuredLines: in.StructuredLines,
		UnparsedLines:   in.TotalLines - in.StructuredLines,
		ClippedLines:    in.ClippedLines,
		Formats:         make(map[string]int, len(in.Formats)),
		TotalDetections: len(in.Detections),
		UniqueIPs:       len(in.IPStats),
		ByCategory:      make(map[string]int),
	}
	for k, v := range in.Formats {
		s.Formats[k] = v
	}

	var (
		sev     model.SeverityHistogram
		confSum int
	)
	byRule := make(map[string]*model.RuleCount)
	buckets := make(map[time.Time]*model.TimelineBucket)
	for _, d := range in.Detections {
		sev.Add(d.Severity)
		s.ByCategory[d.Category]++
		confSum += d.Confidence

		rc, ok := byRule[d.RuleID]
		if !ok {
			rc = &model.RuleCount{RuleID: d.RuleID, Severity: d.Severity}
			byRule[d.RuleID] = rc
		}
		rc.Count++

		if d.Timestamp.IsZero() {
			s.UntimedDetections++
			continue
		}
		start := d.Timestamp.UTC().Truncate(bucket)
		b, ok := buckets[start]
		if !ok {
			b = &model.TimelineBucket{Start: start}
			buckets[start] = b
		}
		b.Detections++
		b.Severity.Add(d.Severity)
	}

	s.BySeverity = sev.Map()
	s.UniqueRules = len(byRule)
	if n := len(in.Detections); n > 0 {
		s.AverageConfidence = math.Round(float64(confSum)/float64(n)*100) / 100
	}
	s.TopRules = topRules(byRule, topN)
	s.Timeline = timeline(buckets)

	for _, st := range in.IPStats {
		if st.Suspicious {
			s.SuspiciousIPs++
		}
		if st.Private {
			s.PrivateIPs++
		} else {
			s.PublicIPs++
		}
	}
	s.TopIPs = topIPs(in.IPStats, topN)
	s.RiskFactors = riskFactors(s)
	return s
}

// riskFactors names the conditions behind a run's risk besides its detections.
// A run without detections has none.
func riskFactors(s model.Summary) []string {
	if s.TotalDetections == 0 {
		return nil
	}
	var out []string
	if s.SuspiciousIPs > 0 {
		out = append(out, fmt.Sprintf("%d suspicious IP(s) detected", s.SuspiciousIPs))
	}
	if s.PublicIPs > ManyPublicIPs {
		out = append(out, "High number of external IPs")
	}
	if n := s.BySeverity[model.SeverityCritical.String()]; n > 0 {
		out = append(out, fmt.Sprintf("%d critical detection(s)", n))
	}
	return out
}

func topRules(byRule map[string]*model.RuleCount, n int) []model.RuleCount {
	out := make([]model.RuleCount, 0, len(byRule))
	for _, rc := range byRule {
		out = append(out, *rc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].RuleID < out[j].RuleID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func topIPs(stats map[string]model.IPStat, n int) []model.IPCount {
	out := make([]model.IPCount, 0, len(stats))
	for _, st := range stats {
		if st.Detections == 0 {
			continue
		}
		out = append(out, model.IPCount{IP: st.IP, Detections: st.Detections, Suspicious: st.Suspicious})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Detections != out[j].Detections {
			return out[i].Detections > out[j].Detections
		}
		return out[i].IP < out[j].IP
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func timeline(buckets map[time.Time]*model.TimelineBucket) []model.TimelineBucket {
	if len(buckets) == 0 {
		return nil
	}
	out := make([]model.TimelineBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
