package parser

import (
	"encoding/csv"
	"regexp"
	"strings"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

// csvLayout is the column layout adopted from a header row.
type csvLayout struct {
	header  string
	delim   rune
	columns []string
}

var (
	headerTokenRe = regexp.MustCompile(`^[A-Za-z_@][A-Za-z0-9_ .@-]{0,63}$`)

	// A header must name at least one column we know how to use.
	knownColumns = map[string]bool{
		"timestamp": true, "time": true, "@timestamp": true, "datetime": true, "date": true, "ts": true,
		"ip": true, "src_ip": true, "source_ip": true, "client_ip": true, "clientip": true, "remote_addr": true, "remote_ip": true,
		"message": true, "msg": true, "user": true, "username": true, "event": true, "action": true,
		"status": true, "level": true, "method": true, "path": true, "url": true,
	}
)

func detectCSVHeader(line string) (*csvLayout, bool) {
	line = clean(line)
	if line == "" || line[0] == '{' {
		return nil, false
	}

	delim, best := rune(0), 0
	for _, d := range []rune{',', '\t', ';', '|'} {
		if n := strings.Count(line, string(d)); n > best {
			delim, best = d, n
		}
	}
	if best == 0 {
		return nil, false
	}

	cols, ok := splitDelimited(line, delim)
	if !ok || len(cols) < 2 {
		return nil, false
	}

	seen := make(map[string]bool, len(cols))
	known := false
	for i, c := range cols {
		c = strings.TrimSpace(c)
		if !headerTokenRe.MatchString(c) {
			return nil, false
		}
		lc := strings.ToLower(c)
		if seen[lc] {
			return nil, false
		}
		seen[lc] = true
		known = known || knownColumns[lc]
		cols[i] = c
	}
	if !known {
		return nil, false
	}
	return &csvLayout{header: line, delim: delim, columns: cols}, true
}

func (l *csvLayout) parse(line string) (Outcome, bool) {
	if l == nil || line == l.header {
		return Outcome{}, false
	}
	vals, ok := splitDelimited(line, l.delim)
	if !ok || len(vals) != len(l.columns) {
		return Outcome{}, false
	}

	var f model.FieldsBuilder
	for i, col := range l.columns {
		f.Set(col, strings.TrimSpace(vals[i]))
	}

	out := Outcome{Fields: f.Fields()}
	if v, ok := firstField(out.Fields, timestampKeys...); ok {
		out.Timestamp, _ = parseTimestamp(v, 0)
	}
	if v, ok := firstField(out.Fields, ipKeys...); ok {
		out.SourceIP, _ = normalizeIP(v)
	}
	return out, true
}

func splitDelimited(line string, delim rune) ([]string, bool) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rec, err := r.Read()
	if err != nil {
		return nil, false
	}
	return rec, true
}
