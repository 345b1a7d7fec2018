package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/internal/sla"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mkTicket(id string, status domain.TicketStatus, ageMinutes int) domain.Ticket {
	created := testNow.Add(-time.Duration(ageMinutes) * time.Minute)
	return domain.Ticket{ID: id, Status: status, CreatedAt: &created, Problem: "printer broken"}
}

func newTestPipeline() *Pipeline {
	return NewPipeline(sla.NewClassifier(1440, 240, 30))
}

func TestSlaPriorityOrdering(t *testing.T) {
	p := newTestPipeline()
	tickets := []domain.Ticket{
		mkTicket("closed-1", domain.TicketStatusClosed, 5000),
		mkTicket("normal-1", domain.TicketStatusNew, 100),
		mkTicket("breached-1", domain.TicketStatusWaitingOperator, 1500),
		mkTicket("atrisk-1", domain.TicketStatusNew, 1300),
	}

	res := p.Apply(tickets, Query{View: ViewAll, Sort: SortSlaPriority}, nil, testNow)
	assert.Equal(t, []string{"breached-1", "atrisk-1", "normal-1", "closed-1"}, res.Visible)
}

func TestSlaPriorityTieBreaks(t *testing.T) {
	p := newTestPipeline()

	// Same bucket, different minutes-left: closer deadline first.
	a := mkTicket("a", domain.TicketStatusNew, 1300) // 140 left
	b := mkTicket("b", domain.TicketStatusNew, 1350) // 90 left
	res := p.Apply([]domain.Ticket{a, b}, Query{View: ViewAll, Sort: SortSlaPriority}, nil, testNow)
	assert.Equal(t, []string{"b", "a"}, res.Visible)

	// Identical age: id is the final deterministic tie-break.
	c := mkTicket("c", domain.TicketStatusNew, 1300)
	d := mkTicket("d", domain.TicketStatusNew, 1300)
	res = p.Apply([]domain.Ticket{d, c}, Query{View: ViewAll, Sort: SortSlaPriority}, nil, testNow)
	assert.Equal(t, []string{"c", "d"}, res.Visible)
}

func TestDefaultSortKeepsInsertionOrder(t *testing.T) {
	p := newTestPipeline()
	tickets := []domain.Ticket{
		mkTicket("z", domain.TicketStatusNew, 1500),
		mkTicket("a", domain.TicketStatusNew, 10),
	}
	res := p.Apply(tickets, Query{View: ViewAll, Sort: SortDefault}, nil, testNow)
	assert.Equal(t, []string{"z", "a"}, res.Visible)
}

func TestSmartViews(t *testing.T) {
	p := newTestPipeline()
	op := "alice"
	assigned := mkTicket("assigned", domain.TicketStatusWaitingOperator, 100)
	assigned.Responsible = &op
	tickets := []domain.Ticket{
		mkTicket("new", domain.TicketStatusNew, 100),
		assigned,
		mkTicket("overdue", domain.TicketStatusWaitingClient, 1500),
		mkTicket("critical", domain.TicketStatusNew, 1420), // 20 min left
		mkTicket("closed", domain.TicketStatusClosed, 2000),
	}

	cases := []struct {
		view SmartView
		want []string
	}{
		{ViewAll, []string{"new", "assigned", "overdue", "critical", "closed"}},
		{ViewActive, []string{"new", "assigned", "overdue", "critical"}},
		{ViewNew, []string{"new", "critical"}},
		{ViewUnassigned, []string{"new", "overdue", "critical"}},
		{ViewOverdue, []string{"overdue"}},
		{ViewSlaCritical, []string{"overdue", "critical"}},
	}
	for _, tt := range cases {
		t.Run(string(tt.view), func(t *testing.T) {
			res := p.Apply(tickets, Query{View: tt.view}, nil, testNow)
			assert.Equal(t, tt.want, res.Visible)
		})
	}
}

func TestSnoozeSuppressedExceptAll(t *testing.T) {
	p := newTestPipeline()
	tickets := []domain.Ticket{
		mkTicket("t1", domain.TicketStatusNew, 100),
		mkTicket("t2", domain.TicketStatusNew, 100),
	}
	snoozes := map[string]time.Time{"t1": testNow.Add(time.Hour)}

	res := p.Apply(tickets, Query{View: ViewActive}, snoozes, testNow)
	assert.Equal(t, []string{"t2"}, res.Visible)

	res = p.Apply(tickets, Query{View: ViewAll}, snoozes, testNow)
	assert.Equal(t, []string{"t1", "t2"}, res.Visible)
	assert.True(t, res.Rows[0].Snoozed)
}

func TestStatusFilterAndSearch(t *testing.T) {
	p := newTestPipeline()
	waiting := mkTicket("t1", domain.TicketStatusWaitingOperator, 50)
	waiting.Location = "Building 7"
	fresh := mkTicket("t2", domain.TicketStatusNew, 50)
	fresh.RequestNumber = "REQ-1042"
	tickets := []domain.Ticket{waiting, fresh}

	status := domain.TicketStatusWaitingOperator
	res := p.Apply(tickets, Query{View: ViewAll, Status: &status}, nil, testNow)
	assert.Equal(t, []string{"t1"}, res.Visible)

	res = p.Apply(tickets, Query{View: ViewAll, Search: "req-1042"}, nil, testNow)
	assert.Equal(t, []string{"t2"}, res.Visible)

	res = p.Apply(tickets, Query{View: ViewAll, Search: "building"}, nil, testNow)
	assert.Equal(t, []string{"t1"}, res.Visible)

	res = p.Apply(tickets, Query{View: ViewAll, Search: "no such thing"}, nil, testNow)
	assert.Empty(t, res.Visible)
}

func TestReactionWindowCutoff(t *testing.T) {
	p := newTestPipeline()
	tickets := []domain.Ticket{
		mkTicket("far", domain.TicketStatusNew, 100),      // 1340 left
		mkTicket("near", domain.TicketStatusNew, 1400),    // 40 left
		mkTicket("past", domain.TicketStatusNew, 1500),    // breached
		mkTicket("done", domain.TicketStatusClosed, 1500), // resolved, excluded
	}
	window := 60
	res := p.Apply(tickets, Query{View: ViewAll, ReactionWindow: &window}, nil, testNow)
	assert.Equal(t, []string{"near", "past"}, res.Visible)
}

func TestPaginationHiddenRemainder(t *testing.T) {
	p := newTestPipeline()
	tickets := []domain.Ticket{
		mkTicket("t1", domain.TicketStatusNew, 10),
		mkTicket("t2", domain.TicketStatusNew, 20),
		mkTicket("t3", domain.TicketStatusNew, 30),
	}
	res := p.Apply(tickets, Query{View: ViewAll, PageSize: 2}, nil, testNow)
	require.Equal(t, []string{"t1", "t2"}, res.Visible)
	assert.Equal(t, []string{"t3"}, res.Hidden)

	// Unbounded.
	res = p.Apply(tickets, Query{View: ViewAll}, nil, testNow)
	assert.Len(t, res.Visible, 3)
	assert.Empty(t, res.Hidden)
}

func TestSummarize(t *testing.T) {
	p := newTestPipeline()
	tickets := []domain.Ticket{
		mkTicket("t1", domain.TicketStatusNew, 1500),
		mkTicket("t2", domain.TicketStatusClosed, 10),
	}
	s := p.Summarize(tickets, map[string]time.Time{"t1": testNow.Add(time.Hour)}, testNow)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.ByBucket["breached"])
	assert.Equal(t, 1, s.ByBucket["closed"])
	assert.Equal(t, 1, s.SnoozedN)
	assert.Equal(t, 1, s.ByView["overdue"])
	assert.Equal(t, 2, s.ByView["all"])
}
