package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

func TestRecorder(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.LinesProcessed(10)
	m.LinesProcessed(5)
	m.Detection(model.Detection{RuleID: "sql_injection", Severity: model.SeverityHigh})
	m.Detection(model.Detection{RuleID: "sql_injection", Severity: model.SeverityHigh})
	m.Detection(model.Detection{RuleID: "reverse_shell", Severity: model.SeverityCritical})
	m.IPFlagged("203.0.113.9")
	m.RunCompleted(20*time.Millisecond, false)
	m.RunCompleted(time.Second, true)
	m.Dropped(3)
	m.Alert(AlertSent)

	if got := testutil.ToFloat64(m.LinesTotal); got != 15 {
		t.Errorf("lines: expected 15, got %v", got)
	}
	if got := testutil.ToFloat64(m.DetectionsTotal.WithLabelValues("sql_injection", "high")); got != 2 {
		t.Errorf("sql_injection: expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.DetectionsTotal.WithLabelValues("reverse_shell", "critical")); got != 1 {
		t.Errorf("reverse_shell: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.FlaggedIPsTotal); got != 1 {
		t.Errorf("flagged: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("truncated")); got != 1 {
		t.Errorf("truncated runs: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.EventsDropped); got != 3 {
		t.Errorf("dropped: expected 3, got %v", got)
	}
	if got := testutil.CollectAndCount(m.RunDuration); got != 1 {
		t.Errorf("duration histogram: expected 1 series, got %d", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Registering twice on the same registry would panic.
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())
	a.LinesProcessed(1)
	if got := testutil.ToFloat64(b.LinesTotal); got != 0 {
		t.Errorf("expected independent collectors, got %v", got)
	}
}
