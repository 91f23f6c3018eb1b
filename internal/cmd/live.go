package cmd

import (
	"context"
	"errors"
	"sync"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/engine"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/hub"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/metrics"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/notify"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/tailer"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/watcher"
)

// pipeline is the live chain shared by watch and serve:
// watcher -> tailer -> hub, plus the optional alert publisher.
type pipeline struct {
	watcher *watcher.Watcher
	tailer  *tailer.Tailer
	hub     *hub.Hub
	metrics *metrics.Metrics

	nats    *notify.NATSPublisher
	limiter *notify.Limited
	alerts  notify.Publisher
	pending <-chan hub.Event
}

func newPipeline(e *engine.Engine, patterns []string, fromStart bool, m *metrics.Metrics) (*pipeline, error) {
	w, err := watcher.New(patterns, logger)
	if err != nil {
		return nil, err
	}
	t := tailer.New(w, tailer.Options{FromStart: fromStart, Logger: logger})

	opts := []hub.Option{hub.WithLogger(logger)}
	if m != nil {
		opts = append(opts, hub.WithDropHook(m.Dropped))
	}
	p := &pipeline{
		watcher: w,
		tailer:  t,
		hub:     hub.New(e, t.Lines(), opts...),
		metrics: m,
	}

	if settings.NATS.URL != "" {
		pub, err := notify.Connect(settings.NATS.URL, settings.NATS.Subject, logger)
		if err != nil {
			return nil, err
		}
		p.nats = pub
		p.limiter = notify.NewLimited(pub, settings.NATS.Rate, settings.NATS.Burst)
		p.alerts = notify.MinSeverity(p.limiter, settings.NATS.MinSeverity)
		// Subscribe before Start so no early detection is missed.
		p.pending = p.hub.Subscribe()
	}
	return p, nil
}

// start runs every stage in the background. wait returns once they have all
// stopped, which happens after ctx is done.
func (p *pipeline) start(ctx context.Context) (wait func()) {
	var wg sync.WaitGroup
	run := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	run(p.watcher.Start)
	run(p.tailer.Start)
	run(p.hub.Start)
	if p.alerts != nil {
		run(p.publish)
	}
	return wg.Wait
}

// publish forwards hub events to NATS until the hub closes the subscription.
func (p *pipeline) publish(ctx context.Context) {
	for ev := range p.pending {
		err := p.alerts.Publish(ctx, notify.NewAlert(ev.Source, ev.Detection))
		status := alertStatus(err)
		if status == metrics.AlertFailed {
			logger.Warn("alert publish failed", "rule_id", ev.Detection.RuleID, "error", err)
		}
		if p.metrics != nil {
			p.metrics.Alert(status)
		}
	}
}

func alertStatus(err error) string {
	switch {
	case err == nil:
		return metrics.AlertSent
	case errors.Is(err, notify.ErrBelowSeverity):
		return metrics.AlertFiltered
	case errors.Is(err, notify.ErrRateLimited):
		return metrics.AlertSuppressed
	default:
		return metrics.AlertFailed
	}
}

func (p *pipeline) close() {
	if p.nats == nil {
		return
	}
	if n := p.limiter.Suppressed(); n > 0 {
		logger.Info("alerts suppressed by rate limit", "count", n)
	}
	if err := p.nats.Close(); err != nil {
		logger.Warn("nats drain failed", "error", err)
	}
}
