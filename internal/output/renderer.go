// Package output renders detections and analysis reports for terminals and
// machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

// Renderer writes live detections to an output stream.
type Renderer interface {
	Render(source string, d model.Detection) error
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleLow      = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleMedium   = lipgloss.NewStyle().Foreground(lipgloss.Color("220")) // yellow
	styleHigh     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleCritical = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("196")).
			Bold(true) // white on red
	styleSource = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true) // cyan
	styleFaint  = lipgloss.NewStyle().Faint(true)
)

// TextRenderer prints one colorized line per detection.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(source string, d model.Detection) error {
	ts := "--:--:--"
	if !d.Timestamp.IsZero() {
		ts = d.Timestamp.Format("15:04:05")
	}
	ip := ""
	if d.SourceIP != "" {
		ip = " " + d.SourceIP
	}
	line := fmt.Sprintf("%s %s %s %s%s %s",
		ts,
		SeverityTag(d.Severity),
		styleSource.Render(fmt.Sprintf("%s:%d", source, d.LineNumber)),
		d.RuleName,
		ip,
		styleFaint.Render(Clip(d.MatchedText, 80)))
	_, err := fmt.Fprintln(r.w, line)
	return err
}

// SeverityTag renders the padded, colored name of s.
func SeverityTag(s model.Severity) string {
	padded := fmt.Sprintf("%-8s", s.String())
	switch s {
	case model.SeverityMedium:
		return styleMedium.Render(padded)
	case model.SeverityHigh:
		return styleHigh.Render(padded)
	case model.SeverityCritical:
		return styleCritical.Render(padded)
	default:
		return styleLow.Render(padded)
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each detection as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

type jsonEvent struct {
	Source string `json:"source"`
	model.Detection
}

func (r *JSONRenderer) Render(source string, d model.Detection) error {
	return r.enc.Encode(jsonEvent{Source: source, Detection: d})
}

// Clip shortens s to at most n runes, marking the cut with "...".
func Clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
