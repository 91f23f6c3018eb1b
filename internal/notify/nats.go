package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject alerts are published on.
const DefaultSubject = "logsentry.detections"

// NATSPublisher publishes alerts as JSON messages with routing headers.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials url and returns a publisher on subject.
func Connect(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("logsentry"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return NewNATSPublisher(conn, subject, logger), nil
}

// NewNATSPublisher wraps an existing connection. An empty subject uses
// DefaultSubject.
func NewNATSPublisher(conn *nats.Conn, subject string, logger *slog.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}
}

// Publish sends a. The context is not consulted; publishing is buffered by the
// client.
func (p *NATSPublisher) Publish(_ context.Context, a Alert) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return ErrNotConnected
	}
	msg, err := encode(p.subject, a)
	if err != nil {
		return err
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish alert %s: %w", a.ID, err)
	}
	p.logger.Debug("published alert",
		"alert_id", a.ID,
		"rule_id", a.Detection.RuleID,
		"severity", a.Detection.Severity.String(),
		"subject", p.subject)
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

func encode(subject string, a Alert) (*nats.Msg, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal alert: %w", err)
	}
	h := nats.Header{}
	h.Set("x-alert-id", a.ID)
	h.Set("x-rule-id", a.Detection.RuleID)
	h.Set("x-severity", a.Detection.Severity.String())
	h.Set("x-source", a.Source)
	h.Set("x-line", strconv.Itoa(a.Detection.LineNumber))
	return &nats.Msg{Subject: subject, Data: data, Header: h}, nil
}
