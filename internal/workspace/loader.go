package workspace

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/internal/events"
	"github.com/spec-kit/dialog-console/internal/observability"
	"github.com/spec-kit/dialog-console/internal/telemetry"
	"github.com/spec-kit/dialog-console/internal/upstream"
	"github.com/spec-kit/dialog-console/pkg/errorutil"
)

// Fallback reasons as they appear in telemetry.
const (
	ReasonVersionMismatch = "version_mismatch"
	ReasonInvalidPayload  = "invalid_payload"
	ReasonNetwork         = "network"
)

// ErrStale marks a response that completed after the operator switched
// dialogs; its result must be discarded, not rendered.
var ErrStale = errors.New("dialog no longer active")

// Source fetches the contract and the legacy detail.
type Source interface {
	WorkspaceContract(ctx context.Context, ticketID, channelID string) (*domain.WorkspaceContract, error)
	TicketDetail(ctx context.Context, ticketID string) (*upstream.TicketDetail, error)
}

// Session is the slice of the controller the loader needs.
type Session interface {
	SetActiveTicket(id string)
	IsActive(id string) bool
	SetPermissions(p domain.Permissions)
}

// View is the rendered outcome of opening a dialog: either the enhanced
// workspace or the legacy detail, never a hard error for contract failures.
type View struct {
	TicketID       string
	Enhanced       bool
	Readonly       bool
	Contract       *domain.WorkspaceContract
	Legacy         *upstream.TicketDetail
	FallbackReason string
	Elapsed        time.Duration
}

// Loader drives the open-dialog state machine:
// idle -> fetching -> validated -> rendered, or -> fallback -> legacy.
type Loader struct {
	source     Source
	session    Session
	telemetry  telemetry.Sink
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	objective  time.Duration
	now        func() time.Time
}

// Dependencies bundles collaborators for the loader.
type Dependencies struct {
	Source           Source
	Session          Session
	Telemetry        telemetry.Sink
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	LatencyObjective time.Duration
}

// NewLoader constructs the loader.
func NewLoader(deps Dependencies) *Loader {
	objective := deps.LatencyObjective
	if objective <= 0 {
		objective = 2 * time.Second
	}
	tel := deps.Telemetry
	if tel == nil {
		tel = telemetry.NopSink{}
	}
	return &Loader{
		source:     deps.Source,
		session:    deps.Session,
		telemetry:  tel,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		objective:  objective,
		now:        time.Now,
	}
}

// SetClock overrides the latency clock, for tests.
func (l *Loader) SetClock(now func() time.Time) {
	l.now = now
}

// Open fetches and validates the workspace contract for a dialog. On any
// contract or transport failure it degrades transparently to the legacy
// detail flow; the operator never sees a hard error for that failure class.
func (l *Loader) Open(ctx context.Context, ticketID, channelID string) (*View, error) {
	l.session.SetActiveTicket(ticketID)
	start := l.now()

	contract, err := l.fetchContract(ctx, ticketID, channelID)
	elapsed := l.now().Sub(start)

	if err != nil {
		return l.fallback(ctx, ticketID, fallbackReason(err), elapsed)
	}

	if !l.session.IsActive(ticketID) {
		return nil, ErrStale
	}

	l.telemetry.Emit(telemetry.Event{
		EventType:  telemetry.EventWorkspaceOpenMS,
		EventGroup: telemetry.GroupWorkspace,
		TicketID:   ticketID,
		DurationMS: elapsed.Milliseconds(),
	})
	if elapsed > l.objective {
		l.logger.Warn("workspace open exceeded latency objective",
			zap.String("ticket_id", ticketID),
			zap.Duration("elapsed", elapsed),
			zap.Duration("objective", l.objective))
	}

	readonly := contract.Permissions.Readonly()
	l.session.SetPermissions(*contract.Permissions)
	l.metrics.Inc(observability.CounterWorkspaceOpened)
	l.publish(ctx, events.Event{Type: events.EventWorkspaceRendered, TicketID: ticketID})

	return &View{
		TicketID: ticketID,
		Enhanced: true,
		Readonly: readonly,
		Contract: contract,
		Elapsed:  elapsed,
	}, nil
}

// fetchContract is the two-variant fetch: a contract, or an error naming why
// it cannot be rendered. It never returns both.
func (l *Loader) fetchContract(ctx context.Context, ticketID, channelID string) (*domain.WorkspaceContract, error) {
	contract, err := l.source.WorkspaceContract(ctx, ticketID, channelID)
	if err != nil {
		return nil, err
	}
	if contract.ContractVersion != domain.WorkspaceContractVersion {
		return nil, errorutil.NewVersionMismatch(contract.ContractVersion, domain.WorkspaceContractVersion)
	}
	if contract.Conversation == nil || contract.Conversation.TicketID == "" {
		return nil, errorutil.NewInvalidPayload("conversation.ticketId")
	}
	if contract.Conversation.StatusLabel() == "" {
		return nil, errorutil.NewInvalidPayload("conversation.status")
	}
	if contract.Permissions == nil {
		return nil, errorutil.NewInvalidPayload("permissions")
	}
	if contract.Sla == nil || contract.Sla.State == "" {
		return nil, errorutil.NewInvalidPayload("sla.state")
	}
	return contract, nil
}

func (l *Loader) fallback(ctx context.Context, ticketID, reason string, elapsed time.Duration) (*View, error) {
	l.telemetry.Emit(telemetry.Event{
		EventType:  telemetry.EventWorkspaceError,
		EventGroup: telemetry.GroupWorkspace,
		TicketID:   ticketID,
		ErrorCode:  reason,
		DurationMS: elapsed.Milliseconds(),
	})
	l.telemetry.Emit(telemetry.Event{
		EventType:  telemetry.EventWorkspaceFallback,
		EventGroup: telemetry.GroupWorkspace,
		TicketID:   ticketID,
		Reason:     reason,
	})
	l.metrics.Inc(observability.CounterWorkspaceFallback)
	l.publish(ctx, events.Event{
		Type:     events.EventWorkspaceFallback,
		TicketID: ticketID,
		Payload: events.WorkspaceFallbackPayload{
			Reason:    reason,
			ElapsedMS: elapsed.Milliseconds(),
		},
	})
	l.logger.Info("workspace degraded to legacy view",
		zap.String("ticket_id", ticketID),
		zap.String("reason", reason))

	legacy, err := l.source.TicketDetail(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !l.session.IsActive(ticketID) {
		return nil, ErrStale
	}
	return &View{
		TicketID:       ticketID,
		Legacy:         legacy,
		FallbackReason: reason,
		Elapsed:        elapsed,
	}, nil
}

func (l *Loader) publish(ctx context.Context, event events.Event) {
	if l.dispatcher == nil {
		return
	}
	_ = l.dispatcher.Publish(ctx, event)
}

// fallbackReason maps a fetch error onto the telemetry reason vocabulary:
// http_{status} for HTTP failures, version_mismatch for an unsupported
// contract tag, invalid_payload for undecodable or malformed bodies, network
// for everything else.
func fallbackReason(err error) string {
	de := errorutil.ToDomainError(err)
	switch de.Code {
	case errorutil.CodeTransport:
		if reason, ok := de.Details["reason"].(string); ok && reason != "" {
			return reason
		}
		return ReasonNetwork
	case errorutil.CodeVersionMismatch:
		return ReasonVersionMismatch
	case errorutil.CodeInvalidPayload:
		return ReasonInvalidPayload
	default:
		return ReasonNetwork
	}
}
