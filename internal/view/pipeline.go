package view

import (
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/internal/sla"
)

// SmartView is a named predicate over the ticket collection, used as a quick
// filter tab.
type SmartView string

const (
	ViewAll         SmartView = "all"
	ViewActive      SmartView = "active"
	ViewNew         SmartView = "new"
	ViewUnassigned  SmartView = "unassigned"
	ViewOverdue     SmartView = "overdue"
	ViewSlaCritical SmartView = "sla_critical"
)

// Known reports whether the view id is one the pipeline understands.
func (v SmartView) Known() bool {
	switch v {
	case ViewAll, ViewActive, ViewNew, ViewUnassigned, ViewOverdue, ViewSlaCritical:
		return true
	}
	return false
}

// SortMode selects row ordering.
type SortMode string

const (
	SortDefault     SortMode = "default"
	SortSlaPriority SortMode = "sla_priority"
)

// Query bundles every listing parameter into one pass.
type Query struct {
	Search         string
	Status         *domain.TicketStatus
	View           SmartView
	ReactionWindow *int
	Sort           SortMode
	PageSize       int // 0 means unbounded
}

// Row is one renderable queue entry with its derived SLA position.
type Row struct {
	Ticket   domain.Ticket
	Sla      sla.State
	Critical bool
	Snoozed  bool
}

// Result is the ordered, page-truncated outcome of a pipeline pass. Hidden
// ids stay in the underlying collection but are excluded from rendering.
type Result struct {
	Rows    []Row
	Visible []string
	Hidden  []string
}

// Summary counts rows per bucket for the toolbar badges.
type Summary struct {
	Total     int            `json:"total"`
	ByView    map[string]int `json:"by_view"`
	ByBucket  map[string]int `json:"by_bucket"`
	CriticalN int            `json:"critical"`
	SnoozedN  int            `json:"snoozed"`
}

// Pipeline composes search, status filter, smart view, reaction window, sort
// and pagination into the final visible ordering. Stateless: every call works
// on the snapshot it is handed.
type Pipeline struct {
	classifier sla.Classifier
}

// NewPipeline constructs a pipeline over the given classifier.
func NewPipeline(classifier sla.Classifier) *Pipeline {
	return &Pipeline{classifier: classifier}
}

// Apply runs the full pass at the given instant.
func (p *Pipeline) Apply(tickets []domain.Ticket, q Query, snoozes map[string]time.Time, now time.Time) Result {
	if !q.View.Known() {
		q.View = ViewAll
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))

	rows := make([]Row, 0, len(tickets))
	for i := range tickets {
		t := tickets[i]
		state := p.classifier.Classify(&t, now)
		_, snoozed := snoozes[t.ID]

		// Snoozed tickets are suppressed from every view except "all".
		if snoozed && q.View != ViewAll {
			continue
		}
		if q.Status != nil && t.Status != *q.Status {
			continue
		}
		critical := p.classifier.Critical(state)
		if !p.matchesView(q.View, &t, state, critical) {
			continue
		}
		if q.ReactionWindow != nil {
			if t.Status.Resolved() || state.Bucket == sla.BucketUnknown || state.MinutesLeft > *q.ReactionWindow {
				continue
			}
		}
		if search != "" && !matchesSearch(&t, search) {
			continue
		}
		rows = append(rows, Row{Ticket: t, Sla: state, Critical: critical, Snoozed: snoozed})
	}

	if q.Sort == SortSlaPriority {
		sortByPriority(rows)
	}

	visible := rows
	var hidden []string
	if q.PageSize > 0 && len(rows) > q.PageSize {
		visible = rows[:q.PageSize]
		for _, row := range rows[q.PageSize:] {
			hidden = append(hidden, row.Ticket.ID)
		}
	}

	ids := make([]string, len(visible))
	for i, row := range visible {
		ids[i] = row.Ticket.ID
	}
	return Result{Rows: visible, Visible: ids, Hidden: hidden}
}

// Summarize counts the collection per view and bucket, ignoring pagination.
func (p *Pipeline) Summarize(tickets []domain.Ticket, snoozes map[string]time.Time, now time.Time) Summary {
	s := Summary{
		Total:    len(tickets),
		ByView:   map[string]int{},
		ByBucket: map[string]int{},
	}
	for i := range tickets {
		t := tickets[i]
		state := p.classifier.Classify(&t, now)
		critical := p.classifier.Critical(state)
		s.ByBucket[string(state.Bucket)]++
		if critical {
			s.CriticalN++
		}
		if _, snoozed := snoozes[t.ID]; snoozed {
			s.SnoozedN++
		}
		for _, view := range []SmartView{ViewAll, ViewActive, ViewNew, ViewUnassigned, ViewOverdue, ViewSlaCritical} {
			if p.matchesView(view, &t, state, critical) {
				s.ByView[string(view)]++
			}
		}
	}
	return s
}

func (p *Pipeline) matchesView(view SmartView, t *domain.Ticket, state sla.State, critical bool) bool {
	switch view {
	case ViewActive:
		return !t.Status.Resolved()
	case ViewNew:
		return t.Status == domain.TicketStatusNew
	case ViewUnassigned:
		return !t.Status.Resolved() && !t.Assigned()
	case ViewOverdue:
		return state.Bucket == sla.BucketBreached
	case ViewSlaCritical:
		return !t.Status.Resolved() && critical
	default:
		return true
	}
}

func matchesSearch(t *domain.Ticket, search string) bool {
	fields := []string{t.ID, t.RequestNumber, t.ClientID, t.Problem, t.Location}
	if t.Responsible != nil {
		fields = append(fields, *t.Responsible)
	}
	fields = append(fields, t.Categories...)
	fields = append(fields, t.BusinessTags...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

// sortByPriority orders resolved tickets last; among unresolved, by bucket
// rank, then ascending minutes-left, then ascending creation time, then id.
// The tie-break chain is total, so the ordering is deterministic.
func sortByPriority(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		ar, br := a.Sla.Bucket.Rank(), b.Sla.Bucket.Rank()
		if ar != br {
			return ar < br
		}
		if a.Sla.MinutesLeft != b.Sla.MinutesLeft {
			return a.Sla.MinutesLeft < b.Sla.MinutesLeft
		}
		at, bt := creationKey(a.Ticket), creationKey(b.Ticket)
		if !at.Equal(bt) {
			return at.Before(bt)
		}
		return a.Ticket.ID < b.Ticket.ID
	})
}

func creationKey(t domain.Ticket) time.Time {
	if t.CreatedAt == nil {
		return time.Time{}
	}
	return *t.CreatedAt
}
