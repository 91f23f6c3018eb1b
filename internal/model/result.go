package model

import "time"

// GeoInfo is optional enrichment for a public source address.
type GeoInfo struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
	ASN     string `json:"asn,omitempty"`
	Org     string `json:"org,omitempty"`
}

// IPStat is the per-source behavior summary of one run.
type IPStat struct {
	IP         string            `json:"ip"`
	Records    int               `json:"records"`
	Detections int               `json:"detection_count"`
	Severity   SeverityHistogram `json:"severity_histogram"`
	Suspicious bool              `json:"is_suspicious"`
	Private    bool              `json:"is_private"`
	FirstSeen  time.Time         `json:"first_seen,omitzero"`
	LastSeen   time.Time         `json:"last_seen,omitzero"`
	Geo        *GeoInfo          `json:"geo,omitempty"`
}

// RuleCount is one row of a top-rules table.
type RuleCount struct {
	RuleID   string   `json:"rule_id"`
	Count    int      `json:"count"`
	Severity Severity `json:"severity"`
}

// IPCount is one row of a top-sources table.
type IPCount struct {
	IP         string `json:"ip"`
	Detections int    `json:"detections"`
	Suspicious bool   `json:"is_suspicious"`
}

// TimelineBucket counts detections that fall in [Start, Start+bucket width).
type TimelineBucket struct {
	Start      time.Time         `json:"start"`
	Detections int               `json:"detections"`
	Severity   SeverityHistogram `json:"by_severity"`
}

// Summary is the reporting projection of a run.
type Summary struct {
	TotalLines        int              `json:"total_lines"`
	StructuredLines   int              `json:"structured_lines"`
	UnparsedLines     int              `json:"unparsed_lines"`
	ClippedLines      int              `json:"clipped_lines,omitempty"` // cut to the maximum line length
	Formats           map[string]int   `json:"formats"`
	TotalDetections   int              `json:"total_detections"`
	UniqueRules       int              `json:"unique_rules"`
	UniqueIPs         int              `json:"unique_ips"`
	SuspiciousIPs     int              `json:"suspicious_ips"`
	PrivateIPs        int              `json:"private_ips"`
	PublicIPs         int              `json:"public_ips"`
	BySeverity        map[string]int   `json:"by_severity"`
	ByCategory        map[string]int   `json:"by_category"`
	AverageConfidence float64          `json:"average_confidence"`
	TopRules          []RuleCount      `json:"top_rules"`
	TopIPs            []IPCount        `json:"top_ips"`
	Timeline          []TimelineBucket `json:"timeline,omitempty"`
	UntimedDetections int              `json:"untimed_detections"`
	RiskFactors       []string         `json:"risk_factors,omitempty"` // informational; not part of the score
}

// AnalysisResult is the terminal, read-only output of one engine run.
type AnalysisResult struct {
	RunID        string            `json:"run_id"`
	Source       string            `json:"source"`
	Detections   []Detection       `json:"detections"`
	IPStats      map[string]IPStat `json:"ip_stats"`
	RiskScore    int               `json:"risk_score"`
	RiskLevel    string            `json:"risk_level"`
	Summary      Summary           `json:"summary"`
	TotalLines   int               `json:"total_lines"`
	LimitReached bool              `json:"limit_reached,omitempty"`
	Truncated    bool              `json:"truncated,omitempty"`
	StreamError  string            `json:"stream_error,omitempty"`
	Started      time.Time         `json:"started"`
	Duration     time.Duration     `json:"duration_ns"`
}

// FileResult is the per-source line of a multi-source report.
type FileResult struct {
	Source     string `json:"source"`
	TotalLines int    `json:"total_lines"`
	Detections int    `json:"detections"`
	RiskScore  int    `json:"risk_score"`
	RiskLevel  string `json:"risk_level"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// Report combines the results of several sources analyzed separately.
type Report struct {
	Files           []FileResult      `json:"files"`
	TotalLines      int               `json:"total_lines"`
	TotalDetections int               `json:"total_detections"`
	IPStats         map[string]IPStat `json:"ip_stats"`
	RiskScore       int               `json:"risk_score"`
	RiskLevel       string            `json:"risk_level"`
	Summary         Summary           `json:"summary"`
	Duration        time.Duration     `json:"duration_ns"`
}
