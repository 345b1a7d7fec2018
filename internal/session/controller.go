package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/internal/events"
	"github.com/spec-kit/dialog-console/internal/ledger"
	"github.com/spec-kit/dialog-console/internal/view"
)

// Controller owns the console's mutable session state: the mirrored ticket
// collection, the selection set, the active query, and the open ticket. All
// other components read through it; writes go through its methods so the
// single-writer ownership rule holds.
type Controller struct {
	mu        sync.Mutex
	tickets   []domain.Ticket
	byID      map[string]int
	selection map[string]struct{}
	query     view.Query
	savedSort view.SortMode
	sortSaved bool
	activeID  string
	visible   bool
	perms     domain.Permissions

	pipeline   *view.Pipeline
	ledger     *ledger.Ledger
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// Dependencies bundles collaborators for the controller.
type Dependencies struct {
	Pipeline   *view.Pipeline
	Ledger     *ledger.Ledger
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	PageSize   int
}

// NewController constructs the session controller.
func NewController(deps Dependencies) *Controller {
	return &Controller{
		byID:      map[string]int{},
		selection: map[string]struct{}{},
		query: view.Query{
			View:     view.ViewAll,
			Sort:     view.SortDefault,
			PageSize: deps.PageSize,
		},
		visible:    true,
		perms:      domain.FullPermissions(),
		pipeline:   deps.Pipeline,
		ledger:     deps.Ledger,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// SetClock overrides the render clock, for tests.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// ApplySnapshot replaces the mirrored collection after a changed poll, prunes
// the selection to the surviving ids, drops snooze entries for tickets that
// resolved upstream, and announces the update. The passed slice is owned by
// the controller afterwards.
func (c *Controller) ApplySnapshot(ctx context.Context, tickets []domain.Ticket, fingerprint string) {
	c.mu.Lock()
	c.tickets = tickets
	c.byID = make(map[string]int, len(tickets))
	var resolved []string
	for i := range tickets {
		c.byID[tickets[i].ID] = i
		if tickets[i].Status.Resolved() {
			resolved = append(resolved, tickets[i].ID)
		}
	}
	pruned := 0
	for id := range c.selection {
		if _, ok := c.byID[id]; !ok {
			delete(c.selection, id)
			pruned++
		}
	}
	total := len(tickets)
	c.mu.Unlock()

	if c.ledger != nil {
		c.ledger.ClearSnoozes(ctx, resolved...)
	}

	c.publish(ctx, events.Event{
		Type: events.EventQueueUpdated,
		Payload: events.QueueUpdatedPayload{
			Fingerprint: fingerprint,
			Total:       total,
			Pruned:      pruned,
		},
	})
}

// Snapshot returns a copy of the mirrored collection. Render passes iterate
// the copy, never the live slice.
func (c *Controller) Snapshot() []domain.Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Ticket, len(c.tickets))
	copy(out, c.tickets)
	return out
}

// Ticket returns a copy of one mirrored ticket.
func (c *Controller) Ticket(id string) (domain.Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.byID[id]
	if !ok {
		return domain.Ticket{}, false
	}
	return c.tickets[idx], true
}

// Patch applies an optimistic local mutation to one ticket, e.g. flipping its
// status after a successful action call. The next poll may overwrite it.
func (c *Controller) Patch(ctx context.Context, id string, fn func(*domain.Ticket)) bool {
	c.mu.Lock()
	idx, ok := c.byID[id]
	if ok {
		fn(&c.tickets[idx])
	}
	c.mu.Unlock()
	if ok {
		c.publish(ctx, events.Event{Type: events.EventDialogPatched, TicketID: id})
	}
	return ok
}

// Render runs the pipeline over the current snapshot with the current query.
func (c *Controller) Render(ctx context.Context) view.Result {
	snapshot := c.Snapshot()
	c.mu.Lock()
	q := c.query
	now := c.now()
	c.mu.Unlock()
	snoozes := c.ledger.Snoozes(ctx)
	return c.pipeline.Apply(snapshot, q, snoozes, now)
}

// Summary computes toolbar counters over the current snapshot.
func (c *Controller) Summary(ctx context.Context) view.Summary {
	snapshot := c.Snapshot()
	c.mu.Lock()
	now := c.now()
	c.mu.Unlock()
	return c.pipeline.Summarize(snapshot, c.ledger.Snoozes(ctx), now)
}

// Query returns the active listing parameters.
func (c *Controller) Query() view.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// SetView switches the smart view. Entering sla_critical force-switches the
// sort mode to sla_priority, remembering the manual choice; leaving restores
// it.
func (c *Controller) SetView(v view.SmartView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !v.Known() {
		v = view.ViewAll
	}
	entering := v == view.ViewSlaCritical && c.query.View != view.ViewSlaCritical
	leaving := v != view.ViewSlaCritical && c.query.View == view.ViewSlaCritical
	c.query.View = v
	if entering {
		c.savedSort = c.query.Sort
		c.sortSaved = true
		c.query.Sort = view.SortSlaPriority
	} else if leaving && c.sortSaved {
		c.query.Sort = c.savedSort
		c.sortSaved = false
	}
}

// SetSort picks the sort mode manually.
func (c *Controller) SetSort(mode view.SortMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.Sort = mode
	if c.query.View == view.ViewSlaCritical {
		// A manual choice while pinned replaces the remembered one.
		c.savedSort = mode
	}
}

// SetSearch sets the free-text search string.
func (c *Controller) SetSearch(search string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.Search = search
}

// SetStatusFilter sets or clears the status filter.
func (c *Controller) SetStatusFilter(status *domain.TicketStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.Status = status
}

// SetReactionWindow sets or clears the SLA-reaction-window cutoff in minutes.
func (c *Controller) SetReactionWindow(minutes *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.ReactionWindow = minutes
}

// SetPageSize limits the visible set; zero means unbounded.
func (c *Controller) SetPageSize(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if size < 0 {
		size = 0
	}
	c.query.PageSize = size
}

// Select adds ticket ids to the selection; ids not present in the mirrored
// collection are ignored so the subset invariant holds.
func (c *Controller) Select(ctx context.Context, ids ...string) {
	c.mu.Lock()
	changed := false
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			continue
		}
		if _, ok := c.selection[id]; !ok {
			c.selection[id] = struct{}{}
			changed = true
		}
	}
	c.mu.Unlock()
	if changed {
		c.publish(ctx, events.Event{Type: events.EventSelectionChanged})
	}
}

// Deselect removes ticket ids from the selection.
func (c *Controller) Deselect(ctx context.Context, ids ...string) {
	c.mu.Lock()
	changed := false
	for _, id := range ids {
		if _, ok := c.selection[id]; ok {
			delete(c.selection, id)
			changed = true
		}
	}
	c.mu.Unlock()
	if changed {
		c.publish(ctx, events.Event{Type: events.EventSelectionChanged})
	}
}

// ClearSelection empties the selection set.
func (c *Controller) ClearSelection(ctx context.Context) {
	c.mu.Lock()
	changed := len(c.selection) > 0
	c.selection = map[string]struct{}{}
	c.mu.Unlock()
	if changed {
		c.publish(ctx, events.Event{Type: events.EventSelectionChanged})
	}
}

// Selection returns the selected ids in the order they appear in the
// mirrored collection, so batch iteration matches what the operator sees.
func (c *Controller) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.selection))
	for i := range c.tickets {
		if _, ok := c.selection[c.tickets[i].ID]; ok {
			out = append(out, c.tickets[i].ID)
		}
	}
	return out
}

// SetActiveTicket records which dialog is open in the detail view.
func (c *Controller) SetActiveTicket(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeID = id
}

// ActiveTicket returns the currently open dialog id, or "".
func (c *Controller) ActiveTicket() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// IsActive reports whether the given dialog is still the open one. Stale
// in-flight responses re-check this before applying any mutation.
func (c *Controller) IsActive(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID == id
}

// Suspend marks the page as hidden; pollers skip their ticks while hidden.
func (c *Controller) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = false
}

// Resume marks the page as visible again.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = true
}

// Visible reports page visibility.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// SetPermissions narrows the session permission flags from a loaded contract.
func (c *Controller) SetPermissions(p domain.Permissions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perms = p
}

// Permissions returns the current session permission flags.
func (c *Controller) Permissions() domain.Permissions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perms
}

// RunSlaTicker re-announces the queue on a fixed period so SLA badges track
// wall-clock time even without new server data. Independent of list polling.
func (c *Controller) RunSlaTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.Visible() {
				continue
			}
			c.publish(ctx, events.Event{Type: events.EventSlaTick})
		}
	}
}

func (c *Controller) publish(ctx context.Context, event events.Event) {
	if c.dispatcher == nil {
		return
	}
	_ = c.dispatcher.Publish(ctx, event)
}
