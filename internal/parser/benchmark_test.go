package parser

import (
	"fmt"
	"testing"
)

// BenchmarkJSONHandler measures JSON log parsing throughput.
func BenchmarkJSONHandler(b *testing.B) {
	r := NewRegistry()
	line := `{"level":"error","message":"disk full","timestamp":"2026-02-17T12:00:00Z","service":"api","request_id":"abc-123"}`

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r.Parse(i, line)
	}
}

// BenchmarkCLFHandler measures CLF log parsing throughput.
func BenchmarkCLFHandler(b *testing.B) {
	r := NewRegistry()
	line := `127.0.0.1 - frank [17/Feb/2026:12:00:00 +0000] "GET /api/health HTTP/1.1" 500 1234`

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r.Parse(i, line)
	}
}

// BenchmarkRegistryThroughput measures sustained lines/sec over a mixed batch.
func BenchmarkRegistryThroughput(b *testing.B) {
	r := NewRegistry()

	lines := make([]string, 1000)
	for i := range lines {
		switch i % 4 {
		case 0:
			lines[i] = fmt.Sprintf(`{"level":"info","message":"request %d completed","latency_ms":42}`, i)
		case 1:
			lines[i] = fmt.Sprintf(`127.0.0.1 - - [17/Feb/2026:12:00:00 +0000] "GET /page/%d HTTP/1.1" 200 5678`, i)
		case 2:
			lines[i] = fmt.Sprintf("Feb 17 12:00:00 host sshd[%d]: Failed password for root from 10.0.0.1", i)
		case 3:
			lines[i] = fmt.Sprintf("free text line number %d", i)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r.Parse(i, lines[i%1000])
	}
}
