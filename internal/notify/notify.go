// Package notify forwards live detections to external alerting systems.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

var (
	ErrNotConnected  = errors.New("notify: not connected")
	ErrRateLimited   = errors.New("notify: rate limited")
	ErrBelowSeverity = errors.New("notify: below severity floor")
)

// Alert is the message published for one detection.
type Alert struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Detection   model.Detection `json:"detection"`
	PublishedAt time.Time       `json:"published_at"`
}

// NewAlert wraps d with a fresh id.
func NewAlert(source string, d model.Detection) Alert {
	return Alert{
		ID:          uuid.NewString(),
		Source:      source,
		Detection:   d,
		PublishedAt: time.Now().UTC(),
	}
}

// Publisher delivers alerts.
type Publisher interface {
	Publish(ctx context.Context, a Alert) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, a Alert) error

func (f PublisherFunc) Publish(ctx context.Context, a Alert) error { return f(ctx, a) }

// MinSeverity rejects alerts below floor with ErrBelowSeverity before they reach p.
func MinSeverity(p Publisher, floor model.Severity) Publisher {
	return PublisherFunc(func(ctx context.Context, a Alert) error {
		if a.Detection.Severity < floor {
			return ErrBelowSeverity
		}
		return p.Publish(ctx, a)
	})
}
