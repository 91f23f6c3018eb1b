// Package ipstats tracks per-source behavior over one analysis run.
package ipstats

import (
	"context"
	"sort"
	"time"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/parser"
)

// DefaultThreshold is the detection count at which a source becomes suspicious.
const DefaultThreshold = 5

// Tracker accumulates one IPStat per source address. A Tracker is owned by a
// single goroutine; parallel workers keep private trackers and Merge them.
type Tracker struct {
	threshold int
	stats     map[string]*model.IPStat
}

// NewTracker returns an empty tracker. A threshold below 1 uses DefaultThreshold.
func NewTracker(threshold int) *Tracker {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Tracker{threshold: threshold, stats: make(map[string]*model.IPStat)}
}

// SourceOf returns the address a record is attributed to: the parsed source IP,
// else the first IPv4 in the raw text.
func SourceOf(rec model.LogRecord) string {
	if rec.SourceIP != "" {
		return rec.SourceIP
	}
	return parser.ExtractIPv4(rec.Raw)
}

func (t *Tracker) entry(ip string) *model.IPStat {
	s, ok := t.stats[ip]
	if !ok {
		s = &model.IPStat{IP: ip, Private: parser.IsPrivate(ip)}
		t.stats[ip] = s
	}
	return s
}

// Observe counts one record from ip. ts may be zero.
func (t *Tracker) Observe(ip string, ts time.Time) {
	if ip == "" {
		return
	}
	s := t.entry(ip)
	s.Records++
	seen(s, ts, ts)
}

func seen(s *model.IPStat, first, last time.Time) {
	if !first.IsZero() && (s.FirstSeen.IsZero() || first.Before(s.FirstSeen)) {
		s.FirstSeen = first
	}
	if !last.IsZero() && last.After(s.LastSeen) {
		s.LastSeen = last
	}
}

// Record counts one detection attributed to ip. It reports true exactly once per
// address: on the detection that makes the source suspicious.
func (t *Tracker) Record(ip string, sev model.Severity) bool {
	if ip == "" {
		return false
	}
	s := t.entry(ip)
	s.Detections++
	s.Severity.Add(sev)
	if s.Suspicious {
		return false
	}
	s.Suspicious = t.suspicious(s)
	return s.Suspicious
}

func (t *Tracker) suspicious(s *model.IPStat) bool {
	return s.Detections >= t.threshold || s.Severity[model.SeverityCritical] > 0
}

// Merge folds o into t and returns the addresses that became suspicious through
// the merge, sorted. Counts and histograms are summed, first/last seen widened.
func (t *Tracker) Merge(o *Tracker) []string {
	var flagged []string
	for ip, src := range o.stats {
		s := t.entry(ip)
		s.Records += src.Records
		s.Detections += src.Detections
		s.Severity.Merge(src.Severity)
		seen(s, src.FirstSeen, src.LastSeen)
		if s.Geo == nil && src.Geo != nil {
			g := *src.Geo
			s.Geo = &g
		}
		if s.Suspicious {
			continue
		}
		if src.Suspicious || t.suspicious(s) {
			s.Suspicious = true
			flagged = append(flagged, ip)
		}
	}
	sort.Strings(flagged)
	return flagged
}

// Len returns the number of distinct addresses.
func (t *Tracker) Len() int { return len(t.stats) }

// Get returns a copy of the stat for ip.
func (t *Tracker) Get(ip string) (model.IPStat, bool) {
	s, ok := t.stats[ip]
	if !ok {
		return model.IPStat{}, false
	}
	return *s, true
}

// Stats returns a copy of every stat. Public addresses are enriched through geo
// when it is non-nil; a failed lookup leaves Geo empty.
func (t *Tracker) Stats(ctx context.Context, geo GeoLookup) map[string]model.IPStat {
	out := make(map[string]model.IPStat, len(t.stats))
	ips := make([]string, 0, len(t.stats))
	for ip, s := range t.stats {
		out[ip] = *s
		ips = append(ips, ip)
	}
	if geo == nil {
		return out
	}

	sort.Strings(ips)
	for _, ip := range ips {
		if ctx.Err() != nil {
			break
		}
		s := out[ip]
		if s.Private {
			continue
		}
		info, err := geo.Lookup(ctx, ip)
		if err != nil || info == nil {
			continue
		}
		g := *info
		s.Geo = &g
		out[ip] = s
	}
	return out
}

// FromStats rebuilds a tracker from finished stats, e.g. to merge the results of
// separate runs.
func FromStats(threshold int, stats map[string]model.IPStat) *Tracker {
	t := NewTracker(threshold)
	for ip, s := range stats {
		cp := s
		t.stats[ip] = &cp
	}
	return t
}
