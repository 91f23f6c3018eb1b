package parser

import (
	"testing"
	"time"
)

func TestJSONHandler(t *testing.T) {
	r := NewRegistry()

	rec := r.Parse(1, `{"level":"error","message":"disk full","timestamp":"2026-02-17T12:00:00Z","src_ip":"203.0.113.9","ctx":{"a":1}}`)

	if rec.Format != "json" {
		t.Fatalf("expected format json, got %s", rec.Format)
	}
	if rec.SourceIP != "203.0.113.9" {
		t.Errorf("expected source ip 203.0.113.9, got %q", rec.SourceIP)
	}
	if rec.Timestamp.Year() != 2026 {
		t.Errorf("expected year 2026, got %d", rec.Timestamp.Year())
	}
	keys := rec.Fields.Keys()
	want := []string{"level", "message", "timestamp", "src_ip", "ctx"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d: expected %q, got %q", i, want[i], keys[i])
		}
	}
	if v, _ := rec.Fields.Get("ctx"); v != `{"a":1}` {
		t.Errorf("expected nested object kept as JSON, got %q", v)
	}
}

func TestJSONHandlerAltFields(t *testing.T) {
	r := NewRegistry()

	rec := r.Parse(1, `{"msg":"high latency","ts":1771329600,"remote_addr":"10.0.0.7:51234"}`)

	if rec.SourceIP != "10.0.0.7" {
		t.Errorf("expected port stripped from remote_addr, got %q", rec.SourceIP)
	}
	if !rec.Timestamp.Equal(time.Unix(1771329600, 0)) {
		t.Errorf("expected epoch timestamp, got %v", rec.Timestamp)
	}
}

func TestJSONHandlerBadTimestampKeepsRecord(t *testing.T) {
	r := NewRegistry()

	rec := r.Parse(3, `{"time":"yesterday-ish","ip":"not-an-ip","message":"x"}`)

	if rec.Format != "json" {
		t.Fatalf("expected json format to survive bad values, got %s", rec.Format)
	}
	if rec.HasTimestamp() {
		t.Errorf("expected no timestamp, got %v", rec.Timestamp)
	}
	if rec.SourceIP != "" {
		t.Errorf("expected no source ip, got %q", rec.SourceIP)
	}
}

func TestJSONHandlerInvalidJSON(t *testing.T) {
	r := NewRegistry()

	rec := r.Parse(1, `{not json at all}`)

	if rec.Format != "generic" {
		t.Errorf("expected generic fallback, got %s", rec.Format)
	}
	if rec.Raw != `{not json at all}` {
		t.Errorf("expected raw text kept, got %q", rec.Raw)
	}
}

func TestCLFHandler(t *testing.T) {
	r := NewRegistry()

	line := `127.0.0.1 - frank [17/Feb/2026:12:00:00 +0000] "GET /api/health HTTP/1.1" 500 1234`
	rec := r.Parse(1, line)

	if rec.Format != "clf" {
		t.Fatalf("expected clf, got %s", rec.Format)
	}
	checks := map[string]string{
		"host": "127.0.0.1", "user": "frank", "status": "500",
		"method": "GET", "path": "/api/health", "protocol": "HTTP/1.1",
	}
	for k, want := range checks {
		if got, _ := rec.Fields.Get(k); got != want {
			t.Errorf("field %s: expected %q, got %q", k, want, got)
		}
	}
	if rec.SourceIP != "127.0.0.1" {
		t.Errorf("expected source ip, got %q", rec.SourceIP)
	}
	if rec.Timestamp.Day() != 17 {
		t.Errorf("expected day 17, got %d", rec.Timestamp.Day())
	}
}

func TestCLFHandlerCombined(t *testing.T) {
	r := NewRegistry()

	line := `192.168.1.1 - - [10/Oct/2023:13:55:36 +0000] "GET / HTTP/1.1" 200 5678 "-" "sqlmap/1.7"`
	rec := r.Parse(1, line)

	if ua, _ := rec.Fields.Get("user_agent"); ua != "sqlmap/1.7" {
		t.Errorf("expected user agent, got %q", ua)
	}
}

func TestSyslogHandler(t *testing.T) {
	r := NewRegistry(WithReferenceYear(2023))

	rec := r.Parse(1, "<38>Oct 10 13:55:38 server sshd[4242]: Failed password for root from 203.0.113.42 port 22")

	if rec.Format != "syslog" {
		t.Fatalf("expected syslog, got %s", rec.Format)
	}
	if rec.SourceIP != "203.0.113.42" {
		t.Errorf("expected ip from message, got %q", rec.SourceIP)
	}
	if rec.Timestamp.Year() != 2023 || rec.Timestamp.Month() != time.October {
		t.Errorf("expected Oct 2023, got %v", rec.Timestamp)
	}
	if v, _ := rec.Fields.Get("facility"); v != "4" {
		t.Errorf("expected facility 4, got %q", v)
	}
	if v, _ := rec.Fields.Get("pid"); v != "4242" {
		t.Errorf("expected pid 4242, got %q", v)
	}
}

func TestFirewallBeforeSyslog(t *testing.T) {
	r := NewRegistry(WithReferenceYear(2023))

	rec := r.Parse(1, "Oct 10 13:55:38 gw kernel: [UFW BLOCK] IN=eth0 OUT= SRC=198.51.100.4 DST=10.0.0.2 PROTO=TCP SPT=4444 DPT=22")

	if rec.Format != "firewall" {
		t.Fatalf("expected firewall, got %s", rec.Format)
	}
	if rec.SourceIP != "198.51.100.4" {
		t.Errorf("expected SRC as source ip, got %q", rec.SourceIP)
	}
	if v, _ := rec.Fields.Get("dpt"); v != "22" {
		t.Errorf("expected dpt 22, got %q", v)
	}
}

func TestWindowsEventHandler(t *testing.T) {
	r := NewRegistry()

	rec := r.Parse(1, "2023-10-10 13:55:38 Warning 4625 12544 An account failed to log on from 198.51.100.20")

	if rec.Format != "windows_event" {
		t.Fatalf("expected windows_event, got %s", rec.Format)
	}
	if v, _ := rec.Fields.Get("event_id"); v != "4625" {
		t.Errorf("expected event id 4625, got %q", v)
	}
	if v, _ := rec.Fields.Get("level"); v != "WARN" {
		t.Errorf("expected WARN, got %q", v)
	}
}

func TestPlainHandler(t *testing.T) {
	r := NewRegistry()

	rec := r.Parse(1, "2026-02-17 12:00:00 ERROR failed to process item from 10.1.2.3")

	if rec.Format != "plain" {
		t.Fatalf("expected plain, got %s", rec.Format)
	}
	if v, _ := rec.Fields.Get("level"); v != "ERROR" {
		t.Errorf("expected ERROR, got %q", v)
	}
	if rec.SourceIP != "10.1.2.3" {
		t.Errorf("expected ip, got %q", rec.SourceIP)
	}
}

func TestGenericFallback(t *testing.T) {
	r := NewRegistry()

	rec := r.Parse(7, "Authentication failed for user admin from 203.0.113.42")

	if rec.Format != "generic" || rec.Structured() {
		t.Fatalf("expected unstructured generic record, got %s", rec.Format)
	}
	if rec.LineNumber != 7 {
		t.Errorf("expected line 7, got %d", rec.LineNumber)
	}
	if rec.HasTimestamp() || rec.SourceIP != "" || rec.Fields.Len() != 0 {
		t.Errorf("expected empty optional fields, got %+v", rec)
	}
}

func TestEmptyLine(t *testing.T) {
	r := NewRegistry()

	rec := r.Parse(2, "   ")
	if rec.Format != "generic" || rec.Raw != "   " {
		t.Errorf("expected raw-only record for blank line, got %+v", rec)
	}
}

func TestCSVHeaderAdoption(t *testing.T) {
	base := NewRegistry()

	r, ok := base.WithCSVHeader("timestamp,src_ip,user,action")
	if !ok {
		t.Fatal("expected header to be adopted")
	}

	rec := r.Parse(2, "2026-02-17T12:00:00Z,198.51.100.7,alice,login_failed")
	if rec.Format != "csv" {
		t.Fatalf("expected csv, got %s", rec.Format)
	}
	if v, _ := rec.Fields.Get("user"); v != "alice" {
		t.Errorf("expected user alice, got %q", v)
	}
	if rec.SourceIP != "198.51.100.7" {
		t.Errorf("expected ip, got %q", rec.SourceIP)
	}

	// Wrong column count falls through.
	rec = r.Parse(3, "only,two")
	if rec.Format == "csv" {
		t.Errorf("expected mismatched row to skip csv handler")
	}

	// The base registry is unchanged.
	if rec := base.Parse(2, "2026-02-17T12:00:00Z,198.51.100.7,alice,login_failed"); rec.Format == "csv" {
		t.Errorf("expected base registry to have no csv layout")
	}
}

func TestCSVHeaderRejected(t *testing.T) {
	base := NewRegistry()
	for _, line := range []string{
		`hello, world`,
		`127.0.0.1 - - [17/Feb/2026:12:00:00 +0000] "GET / HTTP/1.1" 200 1`,
		`{"timestamp":"x","ip":"y"}`,
		`no delimiters here`,
	} {
		if _, ok := base.WithCSVHeader(line); ok {
			t.Errorf("expected %q not to be taken as a header", line)
		}
	}
}

func TestTabDelimitedHeader(t *testing.T) {
	r, ok := NewRegistry().WithCSVHeader("time\tip\tmessage")
	if !ok {
		t.Fatal("expected tab header")
	}
	rec := r.Parse(2, "2026-02-17 12:00:00\t10.0.0.1\tfailed login")
	if rec.Format != "csv" || rec.SourceIP != "10.0.0.1" {
		t.Errorf("expected tab-delimited row parsed, got %+v", rec)
	}
}

func TestFormatsOrder(t *testing.T) {
	got := NewRegistry().Formats()
	want := []string{"json", "csv", "clf", "firewall", "syslog", "windows_event", "plain", "generic"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestIsPrivate(t *testing.T) {
	cases := map[string]bool{
		"10.0.0.1": true, "192.168.1.1": true, "127.0.0.1": true,
		"203.0.113.42": false, "8.8.8.8": false, "garbage": false,
	}
	for ip, want := range cases {
		if got := IsPrivate(ip); got != want {
			t.Errorf("IsPrivate(%s): expected %v, got %v", ip, want, got)
		}
	}
}

func TestExtractIPv4(t *testing.T) {
	if got := ExtractIPv4("version 1.2.3 from 999.1.1.1 then 10.0.0.5"); got != "10.0.0.5" {
		t.Errorf("expected first valid address, got %q", got)
	}
	if got := ExtractIPv4("nothing here"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
