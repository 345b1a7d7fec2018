package sync

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/internal/observability"
	"github.com/spec-kit/dialog-console/internal/upstream"
)

// ListSource fetches the dialog list.
type ListSource interface {
	ListDialogs(ctx context.Context) (*upstream.DialogList, error)
}

// Target receives reconciled snapshots and gates polling on page visibility.
// Implemented by the session controller.
type Target interface {
	Visible() bool
	ApplySnapshot(ctx context.Context, tickets []domain.Ticket, fingerprint string)
}

// Synchronizer polls the list endpoint on a fixed interval and applies a new
// snapshot only when the content fingerprint changes. A tick is a no-op while
// the previous request is still outstanding, so at most one list request is
// ever in flight.
type Synchronizer struct {
	source   ListSource
	target   Target
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics

	inFlight atomic.Bool
	lastFP   string
}

// NewSynchronizer constructs the list poller.
func NewSynchronizer(source ListSource, target Target, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Synchronizer {
	if interval <= 0 {
		interval = 8 * time.Second
	}
	return &Synchronizer{
		source:   source,
		target:   target,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run polls until the context is cancelled. An immediate first poll fills the
// queue without waiting a full interval.
func (s *Synchronizer) Run(ctx context.Context) {
	s.Poll(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll performs one synchronization pass. Failures are logged and swallowed;
// the next scheduled poll proceeds normally.
func (s *Synchronizer) Poll(ctx context.Context) {
	if !s.target.Visible() {
		s.metrics.Inc(observability.CounterPollSkipped)
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.metrics.Inc(observability.CounterPollSkipped)
		return
	}
	defer s.inFlight.Store(false)

	list, err := s.source.ListDialogs(ctx)
	if err != nil {
		s.metrics.Inc(observability.CounterPollFailed)
		s.logger.Warn("list poll failed", zap.Error(err))
		return
	}

	tickets := make([]domain.Ticket, 0, len(list.Dialogs))
	for _, d := range list.Dialogs {
		tickets = append(tickets, d.Ticket())
	}

	fp := Fingerprint(tickets)
	if fp == s.lastFP {
		s.metrics.Inc(observability.CounterPollUnchanged)
		return
	}

	s.target.ApplySnapshot(ctx, tickets, fp)
	s.lastFP = fp
	s.metrics.Inc(observability.CounterPollApplied)
	s.logger.Debug("list snapshot applied",
		zap.String("fingerprint", fp),
		zap.Int("tickets", len(tickets)))
}
