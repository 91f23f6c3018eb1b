package notify

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Limited caps the rate at which alerts reach the wrapped publisher. Alerts over
// the limit are dropped with ErrRateLimited rather than queued.
type Limited struct {
	next       Publisher
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// NewLimited allows perSecond alerts with bursts up to burst. A perSecond of
// zero or less disables limiting.
func NewLimited(next Publisher, perSecond float64, burst int) *Limited {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (l *Limited) Publish(ctx context.Context, a Alert) error {
	if !l.limiter.Allow() {
		l.suppressed.Add(1)
		return ErrRateLimited
	}
	return l.next.Publish(ctx, a)
}

// Suppressed returns how many alerts were dropped.
func (l *Limited) Suppressed() int64 { return l.suppressed.Load() }
