package sync

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dialog-console/internal/upstream"
)

// DetailSource fetches the legacy per-ticket detail.
type DetailSource interface {
	TicketDetail(ctx context.Context, ticketID string) (*upstream.TicketDetail, error)
}

// DetailTarget exposes which dialog is open and receives refreshed details.
type DetailTarget interface {
	Visible() bool
	ActiveTicket() string
	IsActive(id string) bool
}

// DetailApply consumes a refreshed detail for the still-open dialog.
type DetailApply func(ctx context.Context, detail *upstream.TicketDetail)

// DetailPoller refreshes the open dialog's conversation on a fixed interval.
// Like the list poller it never overlaps its own previous request, and a
// response that arrives after the operator switched dialogs is discarded.
type DetailPoller struct {
	source   DetailSource
	target   DetailTarget
	apply    DetailApply
	interval time.Duration
	logger   *zap.Logger

	inFlight atomic.Bool
}

// NewDetailPoller constructs the open-dialog poller.
func NewDetailPoller(source DetailSource, target DetailTarget, apply DetailApply, interval time.Duration, logger *zap.Logger) *DetailPoller {
	if interval <= 0 {
		interval = 8 * time.Second
	}
	return &DetailPoller{
		source:   source,
		target:   target,
		apply:    apply,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until the context is cancelled.
func (p *DetailPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs one refresh pass for the open dialog, if any.
func (p *DetailPoller) Poll(ctx context.Context) {
	if !p.target.Visible() {
		return
	}
	ticketID := p.target.ActiveTicket()
	if ticketID == "" {
		return
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer p.inFlight.Store(false)

	detail, err := p.source.TicketDetail(ctx, ticketID)
	if err != nil {
		p.logger.Warn("detail poll failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	// The operator may have switched dialogs while the request was out.
	if !p.target.IsActive(ticketID) {
		return
	}
	if p.apply != nil {
		p.apply(ctx, detail)
	}
}
