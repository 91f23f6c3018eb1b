package matcher

import (
	"testing"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
)

// BenchmarkMatchBenign measures the cost of a line that matches nothing.
func BenchmarkMatchBenign(b *testing.B) {
	m := defaultMatcher(b, rules.Filter{})
	rec := model.LogRecord{LineNumber: 1, Raw: `10.0.0.1 - - [10/Oct/2023:13:55:36 +0000] "GET /index.html HTTP/1.1" 200 2326`}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.Match(rec, "10.0.0.1")
	}
}

// BenchmarkMatchAttack measures a line that triggers several rules.
func BenchmarkMatchAttack(b *testing.B) {
	m := defaultMatcher(b, rules.Filter{})
	rec := model.LogRecord{LineNumber: 1, Raw: `10.0.0.1 - - [10/Oct/2023:13:55:36 +0000] "GET /admin/../../../etc/passwd HTTP/1.1" 404 234`}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.Match(rec, "10.0.0.1")
	}
}
