package parser

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

// ---------------------------------------------------------------------------
// JSON (one object per line)
// ---------------------------------------------------------------------------

var (
	timestampKeys = []string{"timestamp", "time", "@timestamp", "datetime", "date", "ts"}
	ipKeys        = []string{"src_ip", "source_ip", "client_ip", "clientip", "remote_addr", "remote_ip", "ip"}
)

func parseJSON(line string) (Outcome, bool) {
	if line[0] != '{' || line[len(line)-1] != '}' {
		return Outcome{}, false
	}
	fields, ok := decodeObject(line)
	if !ok {
		return Outcome{}, false
	}

	out := Outcome{Fields: fields}
	if v, ok := firstField(fields, timestampKeys...); ok {
		out.Timestamp, _ = parseTimestamp(v, 0)
	}
	if v, ok := firstField(fields, ipKeys...); ok {
		out.SourceIP, _ = normalizeIP(v)
	}
	return out, true
}

// decodeObject reads a single top-level JSON object, keeping key order.
// Nested values are kept as compact JSON text.
func decodeObject(s string) (model.Fields, bool) {
	var fields model.FieldsBuilder

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return model.Fields{}, false
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return model.Fields{}, false
		}
		key, ok := tok.(string)
		if !ok {
			return model.Fields{}, false
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return model.Fields{}, false
		}
		fields.Set(key, jsonValueString(raw))
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return model.Fields{}, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return model.Fields{}, false // trailing data
	}
	return fields.Fields(), true
}

func jsonValueString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, string(raw) == "null":
		return ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// ---------------------------------------------------------------------------
// CLF (Apache/Nginx common and combined log format)
// ---------------------------------------------------------------------------

// host ident authuser [date] "request" status bytes ["referer" "user-agent"]
var clfRe = regexp.MustCompile(`^(\S+) (\S+) (\S+) \[([^\]]+)\] "((?:[^"\\]|\\.)*)" (\d{3}) (\S+)(?: "((?:[^"\\]|\\.)*)" "((?:[^"\\]|\\.)*)")?`)

func parseCLF(line string) (Outcome, bool) {
	m := clfRe.FindStringSubmatch(line)
	if m == nil {
		return Outcome{}, false
	}

	var f model.FieldsBuilder
	f.Set("host", m[1])
	f.Set("ident", m[2])
	f.Set("user", m[3])
	f.Set("request", m[5])
	if parts := strings.Fields(m[5]); len(parts) >= 2 {
		f.Set("method", parts[0])
		f.Set("path", parts[1])
		if len(parts) >= 3 {
			f.Set("protocol", parts[2])
		}
	}
	f.Set("status", m[6])
	f.Set("bytes", m[7])
	if m[8] != "" || m[9] != "" {
		f.Set("referer", m[8])
		f.Set("user_agent", m[9])
	}

	out := Outcome{Fields: f.Fields()}
	out.Timestamp, _ = parseTimestamp(m[4], 0)
	out.SourceIP, _ = normalizeIP(m[1])
	return out, true
}

// ---------------------------------------------------------------------------
// Firewall (iptables / netfilter kernel messages)
// ---------------------------------------------------------------------------

var (
	kvRe           = regexp.MustCompile(`\b([A-Z]{2,})=(\S*)`)
	syslogPrefixRe = regexp.MustCompile(`^(?:<\d{1,3}>)?([A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+(\S+)`)
)

func parseFirewall(line string, year int) (Outcome, bool) {
	if !strings.Contains(line, "kernel:") || !strings.Contains(line, "SRC=") {
		return Outcome{}, false
	}

	var f model.FieldsBuilder
	var out Outcome
	if m := syslogPrefixRe.FindStringSubmatch(line); m != nil {
		out.Timestamp, _ = parseTimestamp(m[1], year)
		f.Set("hostname", m[2])
	}
	for _, kv := range kvRe.FindAllStringSubmatch(line, -1) {
		f.Set(strings.ToLower(kv[1]), kv[2])
	}
	out.Fields = f.Fields()
	if src, ok := out.Fields.Get("src"); ok {
		out.SourceIP, _ = normalizeIP(src)
	}
	return out, true
}

// ---------------------------------------------------------------------------
// Syslog (RFC 3164, optional <PRI>)
// ---------------------------------------------------------------------------

var syslogRe = regexp.MustCompile(`^(?:<(\d{1,3})>)?([A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+(\S+)\s+([^:\[\s]+)(?:\[(\d+)\])?:\s*(.*)$`)

func parseSyslog(line string, year int) (Outcome, bool) {
	m := syslogRe.FindStringSubmatch(line)
	if m == nil {
		return Outcome{}, false
	}

	var f model.FieldsBuilder
	if m[1] != "" {
		f.Set("priority", m[1])
		if pri, err := strconv.Atoi(m[1]); err == nil {
			f.Set("facility", strconv.Itoa(pri>>3))
			f.Set("severity", strconv.Itoa(pri&7))
		}
	}
	f.Set("hostname", m[3])
	f.Set("process", m[4])
	if m[5] != "" {
		f.Set("pid", m[5])
	}
	f.Set("message", m[6])

	out := Outcome{Fields: f.Fields()}
	out.Timestamp, _ = parseTimestamp(m[2], year)
	out.SourceIP = ExtractIPv4(m[6])
	return out, true
}

// ---------------------------------------------------------------------------
// Windows event log export: date level event_id task_category message
// ---------------------------------------------------------------------------

var windowsRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2})\s+(\w+)\s+(\d+)\s+(\d+)\s+(.*)$`)

func parseWindowsEvent(line string) (Outcome, bool) {
	m := windowsRe.FindStringSubmatch(line)
	if m == nil {
		return Outcome{}, false
	}

	var f model.FieldsBuilder
	f.Set("level", normalizeLevel(m[2]))
	f.Set("event_id", m[3])
	f.Set("task_category", m[4])
	f.Set("message", m[5])

	out := Outcome{Fields: f.Fields()}
	out.Timestamp, _ = parseTimestamp(m[1], 0)
	out.SourceIP = ExtractIPv4(m[5])
	return out, true
}

// ---------------------------------------------------------------------------
// Plain text with a leading ISO timestamp and optional level keyword
// ---------------------------------------------------------------------------

var plainRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?)\s+(?:\[?(TRACE|DEBUG|INFO|NOTICE|WARN|WARNING|ERROR|ERR|CRIT|CRITICAL|FATAL|ALERT|EMERG)\]?:?\s+)?(.*)$`)

func parsePlain(line string) (Outcome, bool) {
	m := plainRe.FindStringSubmatch(line)
	if m == nil {
		return Outcome{}, false
	}

	var f model.FieldsBuilder
	if m[2] != "" {
		f.Set("level", normalizeLevel(m[2]))
	} else {
		f.Set("level", keywordLevel(m[3]))
	}
	f.Set("message", m[3])

	out := Outcome{Fields: f.Fields()}
	out.Timestamp, _ = parseTimestamp(m[1], 0)
	out.SourceIP = ExtractIPv4(m[3])
	return out, true
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// keywordLevel detects severity from keywords in the line.
func keywordLevel(line string) string {
	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "FATAL"):
		return "FATAL"
	case strings.Contains(upper, "ERROR"):
		return "ERROR"
	case strings.Contains(upper, "WARN"):
		return "WARN"
	case strings.Contains(upper, "DEBUG"):
		return "DEBUG"
	}
	return "INFO"
}

// normalizeLevel normalizes common level strings to a standard set.
func normalizeLevel(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FATAL", "CRITICAL", "CRIT", "ALERT", "EMERG":
		return "FATAL"
	case "ERROR", "ERR":
		return "ERROR"
	case "WARN", "WARNING":
		return "WARN"
	case "DEBUG", "TRACE":
		return "DEBUG"
	default:
		return "INFO"
	}
}

// firstField returns the first non-empty value among keys (case-insensitive).
func firstField(f model.Fields, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := f.Get(k); ok && v != "" {
			return v, true
		}
	}
	lower := make(map[string]string, f.Len())
	f.Each(func(k, v string) {
		lk := strings.ToLower(k)
		if _, seen := lower[lk]; !seen {
			lower[lk] = v
		}
	})
	for _, k := range keys {
		if v, ok := lower[k]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}
