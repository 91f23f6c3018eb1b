package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

type recorder struct {
	alerts []Alert
}

func (r *recorder) Publish(_ context.Context, a Alert) error {
	r.alerts = append(r.alerts, a)
	return nil
}

func detection(sev model.Severity) model.Detection {
	return model.Detection{RuleID: "sql_injection", LineNumber: 7, Severity: sev, Confidence: 85}
}

func TestNewAlert(t *testing.T) {
	a := NewAlert("access.log", detection(model.SeverityHigh))
	b := NewAlert("access.log", detection(model.SeverityHigh))

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "access.log", a.Source)
	assert.False(t, a.PublishedAt.IsZero())
}

func TestMinSeverity(t *testing.T) {
	rec := &recorder{}
	p := MinSeverity(rec, model.SeverityHigh)

	for _, s := range model.Severities {
		err := p.Publish(context.Background(), NewAlert("x", detection(s)))
		if s < model.SeverityHigh {
			assert.ErrorIs(t, err, ErrBelowSeverity, s.String())
		} else {
			assert.NoError(t, err, s.String())
		}
	}
	require.Len(t, rec.alerts, 2)
	assert.Equal(t, model.SeverityHigh, rec.alerts[0].Detection.Severity)
	assert.Equal(t, model.SeverityCritical, rec.alerts[1].Detection.Severity)
}

func TestLimited(t *testing.T) {
	rec := &recorder{}
	l := NewLimited(rec, 0.001, 3)

	var limited int
	for i := 0; i < 10; i++ {
		err := l.Publish(context.Background(), NewAlert("x", detection(model.SeverityCritical)))
		if errors.Is(err, ErrRateLimited) {
			limited++
			continue
		}
		require.NoError(t, err)
	}
	assert.Len(t, rec.alerts, 3)
	assert.Equal(t, 7, limited)
	assert.EqualValues(t, 7, l.Suppressed())
}

func TestLimitedDisabled(t *testing.T) {
	rec := &recorder{}
	l := NewLimited(rec, 0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Publish(context.Background(), NewAlert("x", detection(model.SeverityLow))))
	}
	assert.Len(t, rec.alerts, 100)
	assert.Zero(t, l.Suppressed())
}

func TestNATSPublisherNotConnected(t *testing.T) {
	p := NewNATSPublisher(nil, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := p.Publish(context.Background(), NewAlert("x", detection(model.SeverityHigh)))
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, DefaultSubject, p.subject)
	assert.NoError(t, p.Close())
}

func TestEncode(t *testing.T) {
	a := NewAlert("auth.log", detection(model.SeverityCritical))

	msg, err := encode("alerts.test", a)
	require.NoError(t, err)

	assert.Equal(t, "alerts.test", msg.Subject)
	assert.Equal(t, a.ID, msg.Header.Get("x-alert-id"))
	assert.Equal(t, "sql_injection", msg.Header.Get("x-rule-id"))
	assert.Equal(t, "critical", msg.Header.Get("x-severity"))
	assert.Equal(t, "auth.log", msg.Header.Get("x-source"))
	assert.Equal(t, "7", msg.Header.Get("x-line"))

	var got Alert
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, model.SeverityCritical, got.Detection.Severity)
	assert.Equal(t, 7, got.Detection.LineNumber)
}
