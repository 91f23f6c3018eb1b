package parser

import (
	"strings"
	"time"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

// Outcome is what a handler extracted from a line it accepted.
type Outcome struct {
	Fields    model.Fields
	Timestamp time.Time
	SourceIP  string
}

// Handler is one log format. Parse reports false when the line does not meet the
// format's structural precondition; the registry then tries the next handler.
type Handler struct {
	Name  string
	Parse func(line string) (Outcome, bool)
}

// Registry turns raw lines into records by trying handlers in priority order.
// A Registry is immutable once built and safe for concurrent use.
type Registry struct {
	year     int
	csv      *csvLayout
	handlers []Handler
}

// Option configures a Registry.
type Option func(*Registry)

// WithReferenceYear sets the year assumed for timestamps that carry none (syslog).
func WithReferenceYear(year int) Option {
	return func(r *Registry) { r.year = year }
}

// NewRegistry returns a registry with the built-in handlers:
// JSON → CSV → CLF → firewall → syslog → Windows event → plain → generic.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{year: time.Now().UTC().Year()}
	for _, opt := range opts {
		opt(r)
	}
	r.build()
	return r
}

func (r *Registry) build() {
	year := r.year
	r.handlers = []Handler{
		{Name: "json", Parse: parseJSON},
		{Name: "csv", Parse: r.csv.parse},
		{Name: "clf", Parse: parseCLF},
		{Name: "firewall", Parse: func(line string) (Outcome, bool) { return parseFirewall(line, year) }},
		{Name: "syslog", Parse: func(line string) (Outcome, bool) { return parseSyslog(line, year) }},
		{Name: "windows_event", Parse: parseWindowsEvent},
		{Name: "plain", Parse: parsePlain},
	}
}

// WithCSVHeader returns a copy of the registry that parses delimited lines using the
// columns of header, and true, when header looks like a CSV header row. Otherwise it
// returns r unchanged and false.
func (r *Registry) WithCSVHeader(header string) (*Registry, bool) {
	layout, ok := detectCSVHeader(header)
	if !ok {
		return r, false
	}
	cp := &Registry{year: r.year, csv: layout}
	cp.build()
	return cp, true
}

// Formats lists handler names in priority order, ending with the fallback.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.handlers)+1)
	for _, h := range r.handlers {
		names = append(names, h.Name)
	}
	return append(names, model.FormatGeneric)
}

// Parse converts one line into a record. It never fails: when no handler accepts the
// line the record carries only its raw text.
func (r *Registry) Parse(lineNumber int, raw string) model.LogRecord {
	rec := model.LogRecord{LineNumber: lineNumber, Raw: raw, Format: model.FormatGeneric}

	line := clean(raw)
	if line == "" {
		return rec
	}

	for _, h := range r.handlers {
		out, ok := h.Parse(line)
		if !ok {
			continue
		}
		rec.Format = h.Name
		rec.Fields = out.Fields
		rec.Timestamp = out.Timestamp
		rec.SourceIP = out.SourceIP
		return rec
	}
	return rec
}

// clean drops surrounding whitespace and NUL bytes before format detection.
// The record keeps the untouched raw text.
func clean(line string) string {
	line = strings.TrimSpace(line)
	if strings.IndexByte(line, 0) >= 0 {
		line = strings.ReplaceAll(line, "\x00", "")
	}
	return line
}
