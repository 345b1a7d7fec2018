package bulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/internal/events"
	"github.com/spec-kit/dialog-console/internal/ledger"
	"github.com/spec-kit/dialog-console/internal/observability"
	"github.com/spec-kit/dialog-console/internal/session"
	"github.com/spec-kit/dialog-console/pkg/errorutil"
)

// ActionKind enumerates the operator actions a batch can run.
type ActionKind string

const (
	ActionTake   ActionKind = "take"
	ActionSnooze ActionKind = "snooze"
	ActionClose  ActionKind = "close"
)

// ActionState is the per-ticket request state the rendering layer queries to
// disable controls, replacing ad hoc per-button disabling.
type ActionState string

const (
	StateIdle    ActionState = "idle"
	StatePending ActionState = "pending"
	StateDone    ActionState = "done"
)

// Actions is the upstream surface the coordinator drives, one ticket at a
// time. Implemented by upstream.Client.
type Actions interface {
	Take(ctx context.Context, ticketID string) error
	Snooze(ctx context.Context, ticketID string, minutes int) error
	Close(ctx context.Context, ticketID string, categories []string) error
	Reopen(ctx context.Context, ticketID string) error
}

// BatchResult summarizes one bulk run.
type BatchResult struct {
	Action    ActionKind
	Succeeded int
	Skipped   int
	Errors    []string
}

// Failed returns the number of per-ticket failures.
func (r BatchResult) Failed() int {
	return len(r.Errors)
}

// Coordinator executes an operator action across the current selection,
// strictly sequentially, tolerating per-ticket failures. Exactly one
// aggregate notification is emitted per batch.
type Coordinator struct {
	ctrl       *session.Controller
	actions    Actions
	ledger     *ledger.Ledger
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time

	snoozeMinutes int
	operatorLabel string

	mu      sync.Mutex
	states  map[string]ActionState
	running bool
}

// Dependencies bundles collaborators for the coordinator.
type Dependencies struct {
	Controller    *session.Controller
	Actions       Actions
	Ledger        *ledger.Ledger
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	SnoozeMinutes int
	OperatorLabel string
}

// NewCoordinator constructs the coordinator.
func NewCoordinator(deps Dependencies) *Coordinator {
	minutes := deps.SnoozeMinutes
	if minutes <= 0 {
		minutes = 1440
	}
	return &Coordinator{
		ctrl:          deps.Controller,
		actions:       deps.Actions,
		ledger:        deps.Ledger,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		now:           time.Now,
		snoozeMinutes: minutes,
		operatorLabel: deps.OperatorLabel,
		states:        map[string]ActionState{},
	}
}

// SetClock overrides the snooze-expiry clock, for tests.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// State returns the per-ticket action state for rendering.
func (c *Coordinator) State(ticketID string) ActionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[ticketID]
	if !ok {
		return StateIdle
	}
	return state
}

// Running reports whether a batch is in progress; the toolbar disables its
// controls while true.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Execute runs the action over the current selection. Permission flags are
// re-checked before any network call; a denied batch emits one notice and
// performs nothing. Per-ticket failures do not abort the loop; they are
// aggregated into the result and reported once as a partial-batch error.
func (c *Coordinator) Execute(ctx context.Context, kind ActionKind) (BatchResult, error) {
	result := BatchResult{Action: kind}

	perms := c.ctrl.Permissions()
	if !perms.AllowsBulk() || !actionPermitted(perms, kind) {
		c.notify(ctx, events.NotifyWarning, fmt.Sprintf("%s is not permitted for your role", kind))
		return result, errorutil.NewPermissionDenied(string(kind))
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return result, errorutil.NewValidationError("a bulk action is already running", nil)
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	ids := c.ctrl.Selection()
	for _, id := range ids {
		outcome := c.applyOne(ctx, kind, id)
		switch {
		case outcome == nil:
			result.Succeeded++
			c.metrics.Inc(observability.CounterBulkSucceeded)
			// Successful tickets leave the selection; failed ones stay
			// selected so the operator can retry them.
			c.ctrl.Deselect(ctx, id)
		case errorutil.Code(outcome) == errorutil.CodeNotFound:
			result.Skipped++
			c.metrics.Inc(observability.CounterBulkSkipped)
			c.ctrl.Deselect(ctx, id)
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, outcome))
			c.metrics.Inc(observability.CounterBulkFailed)
			c.logger.Warn("bulk action failed for ticket",
				zap.String("action", string(kind)),
				zap.String("ticket_id", id),
				zap.Error(outcome))
		}
	}

	c.publishBatch(ctx, result)
	if result.Failed() > 0 {
		return result, errorutil.NewPartialBatch(result.Failed(), result.Errors)
	}
	return result, nil
}

// Single runs one action for one ticket, reusing the batch per-ticket path
// and its optimistic patching. Re-entry while pending is refused.
func (c *Coordinator) Single(ctx context.Context, kind ActionKind, ticketID string) error {
	perms := c.ctrl.Permissions()
	if !actionPermitted(perms, kind) {
		return errorutil.NewPermissionDenied(string(kind))
	}
	if c.State(ticketID) == StatePending {
		return errorutil.NewValidationError("action already in flight for this dialog", nil)
	}
	return c.applyOne(ctx, kind, ticketID)
}

// Reopen reverts a resolved dialog, clearing any local snooze.
func (c *Coordinator) Reopen(ctx context.Context, ticketID string) error {
	if err := c.actions.Reopen(ctx, ticketID); err != nil {
		return err
	}
	c.ledger.ClearSnooze(ctx, ticketID)
	c.ctrl.Patch(ctx, ticketID, func(t *domain.Ticket) {
		t.Status = domain.TicketStatusWaitingOperator
	})
	return nil
}

func (c *Coordinator) applyOne(ctx context.Context, kind ActionKind, id string) error {
	ticket, ok := c.ctrl.Ticket(id)
	if !ok || !actionApplicable(kind, &ticket) {
		// The row no longer exposes this control, e.g. already resolved.
		return errorutil.NewNotFound("applicable dialog", map[string]any{"ticket_id": id})
	}

	c.setState(id, StatePending)

	var err error
	switch kind {
	case ActionTake:
		err = c.actions.Take(ctx, id)
	case ActionSnooze:
		err = c.actions.Snooze(ctx, id, c.snoozeMinutes)
	case ActionClose:
		err = c.actions.Close(ctx, id, ticket.Categories)
	default:
		err = errorutil.NewValidationError("unknown action", map[string]any{"action": string(kind)})
	}
	if err != nil {
		c.setState(id, StateIdle)
		return err
	}

	c.patchAfter(ctx, kind, id)
	c.setState(id, StateDone)
	return nil
}

// patchAfter applies the optimistic local mutation for a succeeded action.
// The next poll silently reconciles, and may overwrite, the patch.
func (c *Coordinator) patchAfter(ctx context.Context, kind ActionKind, id string) {
	switch kind {
	case ActionTake:
		label := c.operatorLabel
		c.ctrl.Patch(ctx, id, func(t *domain.Ticket) {
			t.Responsible = &label
		})
	case ActionSnooze:
		until := c.now().Add(time.Duration(c.snoozeMinutes) * time.Minute)
		c.ledger.Snooze(ctx, id, until)
	case ActionClose:
		c.ledger.ClearSnooze(ctx, id)
		c.ctrl.Patch(ctx, id, func(t *domain.Ticket) {
			t.Status = domain.TicketStatusClosed
		})
	}
}

func (c *Coordinator) publishBatch(ctx context.Context, result BatchResult) {
	if c.dispatcher != nil {
		_ = c.dispatcher.Publish(ctx, events.Event{
			Type: events.EventBulkActionFinished,
			Payload: events.BulkActionFinishedPayload{
				Action:    string(result.Action),
				Succeeded: result.Succeeded,
				Skipped:   result.Skipped,
				Failed:    result.Failed(),
				Errors:    result.Errors,
			},
		})
	}
	if result.Failed() == 0 {
		c.notify(ctx, events.NotifySuccess,
			fmt.Sprintf("%s applied to %d dialog(s)", result.Action, result.Succeeded))
		return
	}
	c.notify(ctx, events.NotifyError,
		fmt.Sprintf("%s failed for %d of %d dialog(s)", result.Action,
			result.Failed(), result.Succeeded+result.Skipped+result.Failed()))
}

func (c *Coordinator) notify(ctx context.Context, kind events.NotificationKind, message string) {
	if c.dispatcher == nil {
		return
	}
	_ = c.dispatcher.Publish(ctx, events.Event{
		Type:    events.EventNotification,
		Payload: events.NotificationPayload{Kind: kind, Message: message},
	})
}

func (c *Coordinator) setState(id string, state ActionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state == StateIdle {
		delete(c.states, id)
		return
	}
	c.states[id] = state
}

func actionPermitted(perms domain.Permissions, kind ActionKind) bool {
	switch kind {
	case ActionTake:
		return perms.AllowsAssign()
	case ActionSnooze:
		return perms.AllowsSnooze()
	case ActionClose:
		return perms.AllowsClose()
	}
	return false
}

func actionApplicable(kind ActionKind, t *domain.Ticket) bool {
	if t.Status.Resolved() {
		return false
	}
	if kind == ActionTake && t.Assigned() {
		return false
	}
	return true
}
