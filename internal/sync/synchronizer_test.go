package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/internal/observability"
	"github.com/spec-kit/dialog-console/internal/upstream"
)

type fakeSource struct {
	responses []*upstream.DialogList
	errs      []error
	calls     int
}

func (f *fakeSource) ListDialogs(context.Context) (*upstream.DialogList, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

type fakeTarget struct {
	visible bool
	applied [][]domain.Ticket
	fps     []string
}

func (f *fakeTarget) Visible() bool { return f.visible }

func (f *fakeTarget) ApplySnapshot(_ context.Context, tickets []domain.Ticket, fp string) {
	f.applied = append(f.applied, tickets)
	f.fps = append(f.fps, fp)
}

func payload(ids ...string) *upstream.DialogList {
	list := &upstream.DialogList{}
	for _, id := range ids {
		list.Dialogs = append(list.Dialogs, upstream.DialogPayload{
			ID:        id,
			Status:    "new",
			CreatedAt: "2026-03-01T09:00:00Z",
		})
	}
	return list
}

func newSyncUnderTest(src *fakeSource, tgt *fakeTarget) (*Synchronizer, *observability.Metrics) {
	metrics := observability.NewMetrics()
	return NewSynchronizer(src, tgt, time.Second, metrics, zap.NewNop()), metrics
}

func TestIdenticalPayloadAppliedOnce(t *testing.T) {
	src := &fakeSource{responses: []*upstream.DialogList{payload("a", "b"), payload("a", "b")}}
	tgt := &fakeTarget{visible: true}
	s, metrics := newSyncUnderTest(src, tgt)
	ctx := context.Background()

	s.Poll(ctx)
	s.Poll(ctx)

	require.Len(t, tgt.applied, 1)
	counters := metrics.Snapshot()
	assert.EqualValues(t, 1, counters[observability.CounterPollApplied])
	assert.EqualValues(t, 1, counters[observability.CounterPollUnchanged])
}

func TestReorderedPayloadIsNotAChange(t *testing.T) {
	src := &fakeSource{responses: []*upstream.DialogList{payload("a", "b"), payload("b", "a")}}
	tgt := &fakeTarget{visible: true}
	s, _ := newSyncUnderTest(src, tgt)
	ctx := context.Background()

	s.Poll(ctx)
	s.Poll(ctx)
	assert.Len(t, tgt.applied, 1)
}

func TestChangedPayloadApplied(t *testing.T) {
	src := &fakeSource{responses: []*upstream.DialogList{payload("a"), payload("a", "b")}}
	tgt := &fakeTarget{visible: true}
	s, _ := newSyncUnderTest(src, tgt)
	ctx := context.Background()

	s.Poll(ctx)
	s.Poll(ctx)

	require.Len(t, tgt.applied, 2)
	assert.NotEqual(t, tgt.fps[0], tgt.fps[1])
	assert.Len(t, tgt.applied[1], 2)
}

func TestPollFailureSwallowedAndPollingContinues(t *testing.T) {
	src := &fakeSource{
		responses: []*upstream.DialogList{nil, payload("a")},
		errs:      []error{errors.New("boom"), nil},
	}
	tgt := &fakeTarget{visible: true}
	s, metrics := newSyncUnderTest(src, tgt)
	ctx := context.Background()

	s.Poll(ctx)
	require.Empty(t, tgt.applied)

	s.Poll(ctx)
	require.Len(t, tgt.applied, 1)
	assert.EqualValues(t, 1, metrics.Snapshot()[observability.CounterPollFailed])
}

func TestHiddenPageSkipsPoll(t *testing.T) {
	src := &fakeSource{responses: []*upstream.DialogList{payload("a")}}
	tgt := &fakeTarget{visible: false}
	s, metrics := newSyncUnderTest(src, tgt)

	s.Poll(context.Background())
	assert.Zero(t, src.calls)
	assert.EqualValues(t, 1, metrics.Snapshot()[observability.CounterPollSkipped])
}

func TestFingerprintStableFields(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	base := domain.Ticket{
		ID:            "a",
		Status:        domain.TicketStatusNew,
		CreatedAt:     &created,
		Categories:    []string{"net", "hw"},
		UnreadCount:   2,
		LastMessageAt: created,
	}

	// Category order never matters.
	reordered := base
	reordered.Categories = []string{"hw", "net"}
	assert.Equal(t, Fingerprint([]domain.Ticket{base}), Fingerprint([]domain.Ticket{reordered}))

	// A rendered field does.
	unread := base
	unread.UnreadCount = 3
	assert.NotEqual(t, Fingerprint([]domain.Ticket{base}), Fingerprint([]domain.Ticket{unread}))

	// A field outside the stable subset (problem text is not rendered in
	// the fingerprinted columns) does not.
	retitled := base
	retitled.Problem = "different words"
	assert.Equal(t, Fingerprint([]domain.Ticket{base}), Fingerprint([]domain.Ticket{retitled}))
}

type stubDetailTarget struct {
	visible bool
	active  string
}

func (s *stubDetailTarget) Visible() bool           { return s.visible }
func (s *stubDetailTarget) ActiveTicket() string    { return s.active }
func (s *stubDetailTarget) IsActive(id string) bool { return s.active == id }

type switchingSource struct {
	target *stubDetailTarget
	detail *upstream.TicketDetail
}

func (s *switchingSource) TicketDetail(_ context.Context, id string) (*upstream.TicketDetail, error) {
	// Simulate the operator switching dialogs while the request is out.
	s.target.active = "other"
	return s.detail, nil
}

func TestDetailPollerDiscardsStaleResponse(t *testing.T) {
	tgt := &stubDetailTarget{visible: true, active: "t1"}
	src := &switchingSource{target: tgt, detail: &upstream.TicketDetail{}}
	applied := 0
	p := NewDetailPoller(src, tgt, func(context.Context, *upstream.TicketDetail) {
		applied++
	}, time.Second, zap.NewNop())

	p.Poll(context.Background())
	assert.Zero(t, applied)
}

func TestDetailPollerAppliesForActiveTicket(t *testing.T) {
	tgt := &stubDetailTarget{visible: true, active: "t1"}
	src := &staticDetailSource{detail: &upstream.TicketDetail{}}
	applied := 0
	p := NewDetailPoller(src, tgt, func(context.Context, *upstream.TicketDetail) {
		applied++
	}, time.Second, zap.NewNop())

	p.Poll(context.Background())
	assert.Equal(t, 1, applied)

	// No open dialog means no request.
	tgt.active = ""
	p.Poll(context.Background())
	assert.Equal(t, 1, applied)
}

type staticDetailSource struct {
	detail *upstream.TicketDetail
}

func (s *staticDetailSource) TicketDetail(context.Context, string) (*upstream.TicketDetail, error) {
	return s.detail, nil
}

type blockingListSource struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingListSource) ListDialogs(context.Context) (*upstream.DialogList, error) {
	b.calls.Add(1)
	<-b.release
	return payload("a"), nil
}

func TestListPollNeverOverlapsItself(t *testing.T) {
	src := &blockingListSource{release: make(chan struct{})}
	tgt := &fakeTarget{visible: true}
	s := NewSynchronizer(src, tgt, time.Second, observability.NewMetrics(), zap.NewNop())

	done := make(chan struct{})
	go func() {
		s.Poll(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 },
		time.Second, time.Millisecond)

	// Ticks while the first request is outstanding must not issue another.
	s.Poll(context.Background())
	s.Poll(context.Background())
	assert.Equal(t, int32(1), src.calls.Load())

	close(src.release)
	<-done
	require.Len(t, tgt.applied, 1)

	// With the request settled, polling resumes normally.
	s.Poll(context.Background())
	assert.Equal(t, int32(2), src.calls.Load())
}

type blockingDetailSource struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingDetailSource) TicketDetail(context.Context, string) (*upstream.TicketDetail, error) {
	b.calls.Add(1)
	<-b.release
	return &upstream.TicketDetail{}, nil
}

func TestDetailPollNeverOverlapsItself(t *testing.T) {
	src := &blockingDetailSource{release: make(chan struct{})}
	tgt := &stubDetailTarget{visible: true, active: "t1"}
	applied := 0
	p := NewDetailPoller(src, tgt, func(context.Context, *upstream.TicketDetail) {
		applied++
	}, time.Second, zap.NewNop())

	done := make(chan struct{})
	go func() {
		p.Poll(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 },
		time.Second, time.Millisecond)

	p.Poll(context.Background())
	assert.Equal(t, int32(1), src.calls.Load())

	close(src.release)
	<-done
	assert.Equal(t, 1, applied)
}
