package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/scoring"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	styleHeading = lipgloss.NewStyle().Bold(true).Underline(true)
	styleLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(18)
	styleBox     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// ReportOptions controls the text report.
type ReportOptions struct {
	MaxDetections int // detections listed; 0 lists none, negative lists all
}

// LevelStyle colors a risk level label.
func LevelStyle(level string) lipgloss.Style {
	switch level {
	case scoring.LevelCritical:
		return styleCritical
	case scoring.LevelHigh:
		return styleHigh
	case scoring.LevelMedium:
		return styleMedium
	default:
		return styleLow
	}
}

// WriteReport writes a human-readable report of one run.
func WriteReport(w io.Writer, res *model.AnalysisResult, opts ReportOptions) error {
	var b strings.Builder

	header := []string{
		styleTitle.Render("LogSentry analysis"),
		kv("Source", res.Source),
		kv("Lines", fmt.Sprintf("%d (%d structured, %d unparsed)", res.TotalLines, res.Summary.StructuredLines, res.Summary.UnparsedLines)),
		kv("Detections", fmt.Sprintf("%d from %d rules", len(res.Detections), res.Summary.UniqueRules)),
		kv("Risk", fmt.Sprintf("%d/100 %s", res.RiskScore, LevelStyle(res.RiskLevel).Render(strings.ToUpper(res.RiskLevel)))),
		kv("Duration", res.Duration.Round(time.Millisecond).String()),
	}
	if res.LimitReached {
		header = append(header, kv("Note", "line limit reached"))
	}
	if res.Truncated {
		header = append(header, kv("Warning", styleHigh.Render("input ended early: "+res.StreamError)))
	}
	b.WriteString(styleBox.Render(strings.Join(header, "\n")))
	b.WriteString("\n")

	writeSummary(&b, res.Summary, res.IPStats)

	if n := opts.MaxDetections; n != 0 && len(res.Detections) > 0 {
		dets := res.Detections
		if n > 0 && len(dets) > n {
			dets = dets[:n]
		}
		b.WriteString("\n" + styleHeading.Render("Detections") + "\n")
		for _, d := range dets {
			fmt.Fprintf(&b, "  %5d %s %-28s %s\n", d.LineNumber, SeverityTag(d.Severity), d.RuleName, styleFaint.Render(Clip(d.MatchedText, 60)))
		}
		if len(dets) < len(res.Detections) {
			fmt.Fprintf(&b, "  ... %d more\n", len(res.Detections)-len(dets))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteScanReport writes the per-file table and combined summary of a scan.
func WriteScanReport(w io.Writer, rep *model.Report) error {
	var b strings.Builder

	header := []string{
		styleTitle.Render("LogSentry scan"),
		kv("Files", fmt.Sprintf("%d", len(rep.Files))),
		kv("Lines", fmt.Sprintf("%d", rep.TotalLines)),
		kv("Detections", fmt.Sprintf("%d", rep.TotalDetections)),
		kv("Risk", fmt.Sprintf("%d/100 %s", rep.RiskScore, LevelStyle(rep.RiskLevel).Render(strings.ToUpper(rep.RiskLevel)))),
		kv("Duration", rep.Duration.Round(time.Millisecond).String()),
	}
	b.WriteString(styleBox.Render(strings.Join(header, "\n")))
	b.WriteString("\n\n" + styleHeading.Render("Files") + "\n")
	for _, f := range rep.Files {
		note := ""
		if f.Truncated {
			note = styleHigh.Render(" (truncated)")
		}
		fmt.Fprintf(&b, "  %-40s %8d lines %6d detections  %3d %s%s\n",
			Clip(f.Source, 40), f.TotalLines, f.Detections, f.RiskScore,
			LevelStyle(f.RiskLevel).Render(f.RiskLevel), note)
	}

	writeSummary(&b, rep.Summary, rep.IPStats)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeSummary(b *strings.Builder, s model.Summary, stats map[string]model.IPStat) {
	if s.TotalDetections > 0 {
		b.WriteString("\n" + styleHeading.Render("By severity") + "\n")
		for i := len(model.Severities) - 1; i >= 0; i-- {
			sev := model.Severities[i]
			if n := s.BySeverity[sev.String()]; n > 0 {
				fmt.Fprintf(b, "  %s %d\n", SeverityTag(sev), n)
			}
		}

		b.WriteString("\n" + styleHeading.Render("By category") + "\n")
		cats := make([]string, 0, len(s.ByCategory))
		for c := range s.ByCategory {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool {
			if s.ByCategory[cats[i]] != s.ByCategory[cats[j]] {
				return s.ByCategory[cats[i]] > s.ByCategory[cats[j]]
			}
			return cats[i] < cats[j]
		})
		for _, c := range cats {
			fmt.Fprintf(b, "  %-20s %d\n", c, s.ByCategory[c])
		}
	}

	if len(s.TopRules) > 0 {
		b.WriteString("\n" + styleHeading.Render("Top rules") + "\n")
		for _, r := range s.TopRules {
			fmt.Fprintf(b, "  %s %-28s %d\n", SeverityTag(r.Severity), r.RuleID, r.Count)
		}
	}

	if len(s.TopIPs) > 0 {
		b.WriteString("\n" + styleHeading.Render("Top sources") + "\n")
		for _, ip := range s.TopIPs {
			flag := ""
			if ip.Suspicious {
				flag = styleHigh.Render(" suspicious")
			}
			where := ""
			if st, ok := stats[ip.IP]; ok && st.Geo != nil && st.Geo.Country != "" {
				where = styleFaint.Render(" " + st.Geo.Country)
			}
			fmt.Fprintf(b, "  %-39s %6d%s%s\n", ip.IP, ip.Detections, flag, where)
		}
	}
	fmt.Fprintf(b, "\n%s %d unique, %d suspicious, %d private, %d public\n",
		styleLabel.Render("Addresses"), s.UniqueIPs, s.SuspiciousIPs, s.PrivateIPs, s.PublicIPs)
	if s.ClippedLines > 0 {
		fmt.Fprintf(b, "%s %d cut to the maximum line length\n", styleLabel.Render("Long lines"), s.ClippedLines)
	}

	if len(s.RiskFactors) > 0 {
		b.WriteString("\n" + styleHeading.Render("Risk factors") + "\n")
		for _, f := range s.RiskFactors {
			fmt.Fprintf(b, "  - %s\n", f)
		}
	}
}

// WriteRules lists rules as a table.
func WriteRules(w io.Writer, list []*rules.Rule) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %-9s %-16s %4s  %s\n", "ID", "SEVERITY", "CATEGORY", "CONF", "DESCRIPTION")
	for _, r := range list {
		desc := r.Description
		if r.Correlated() {
			desc = fmt.Sprintf("%s (%d per %s)", desc, r.Threshold, r.GroupBy)
		}
		fmt.Fprintf(&b, "%-24s %s %-16s %4d  %s\n", r.ID, SeverityTag(r.Severity), r.Category, r.BaseConfidence, desc)
	}
	fmt.Fprintf(&b, "\n%d rules\n", len(list))
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMatches lists the detections of a single tested line. Descriptions come
// from catalog, which may be nil.
func WriteMatches(w io.Writer, dets []model.Detection, catalog *rules.Catalog) error {
	if len(dets) == 0 {
		_, err := io.WriteString(w, "No threats detected\n")
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %-9s %-16s %4s  %s\n", "RULE", "SEVERITY", "CATEGORY", "CONF", "DESCRIPTION")
	for _, d := range dets {
		desc := ""
		if catalog != nil {
			if r, ok := catalog.Get(d.RuleID); ok {
				desc = r.Description
			}
		}
		fmt.Fprintf(&b, "%-24s %s %-16s %4d  %s\n", d.RuleID, SeverityTag(d.Severity), d.Category, d.Confidence, desc)
	}
	fmt.Fprintf(&b, "\n%d match(es)\n", len(dets))
	_, err := io.WriteString(w, b.String())
	return err
}

func kv(label, value string) string {
	return styleLabel.Render(label) + value
}
