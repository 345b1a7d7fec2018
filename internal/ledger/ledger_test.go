package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/pkg/errorutil"
)

func newTestLedger(t *testing.T, now time.Time) (*Ledger, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	store.SetClock(func() time.Time { return now })
	l := New(store, "console", zap.NewNop())
	l.SetClock(func() time.Time { return now })
	return l, store
}

func TestSnoozePurgeOnLoad(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l, _ := newTestLedger(t, now)
	ctx := context.Background()

	l.Snooze(ctx, "t-live", now.Add(time.Hour))
	l.Snooze(ctx, "t-expired", now.Add(-time.Minute))

	entries := l.Snoozes(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, now.Add(time.Hour).UnixMilli(), entries["t-live"].UnixMilli())

	// The purge must have been written back, not just filtered.
	entries = l.Snoozes(ctx)
	_, ok := entries["t-expired"]
	assert.False(t, ok)
}

func TestSnoozeClear(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l, _ := newTestLedger(t, now)
	ctx := context.Background()

	l.Snooze(ctx, "t1", now.Add(time.Hour))
	l.ClearSnooze(ctx, "t1")
	assert.Empty(t, l.Snoozes(ctx))
}

func TestCorruptSnoozeYieldsEmpty(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l, store := newTestLedger(t, now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "console:snooze", "{not json", 0))
	assert.Empty(t, l.Snoozes(ctx))

	// Corrupt state is dropped so the next write starts clean.
	l.Snooze(ctx, "t1", now.Add(time.Hour))
	assert.Len(t, l.Snoozes(ctx), 1)
}

func TestDraftLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l, _ := newTestLedger(t, now)
	ctx := context.Background()

	assert.Equal(t, "", l.Draft(ctx, "t1"))

	l.SaveDraft(ctx, "t1", "working on it")
	assert.Equal(t, "working on it", l.Draft(ctx, "t1"))

	l.ClearDraft(ctx, "t1")
	assert.Equal(t, "", l.Draft(ctx, "t1"))

	// Saving an empty draft is a clear.
	l.SaveDraft(ctx, "t1", "text")
	l.SaveDraft(ctx, "t1", "")
	assert.Equal(t, "", l.Draft(ctx, "t1"))
}

func TestCohortSticky(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l, _ := newTestLedger(t, now)
	ctx := context.Background()

	first := l.Cohort(ctx)
	require.Contains(t, []string{domain.CohortTest, domain.CohortControl}, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, l.Cohort(ctx))
	}
}

func TestPageSizePreference(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l, store := newTestLedger(t, now)
	ctx := context.Background()

	assert.Equal(t, 50, l.PageSize(ctx, 50))

	l.SavePageSize(ctx, 25)
	assert.Equal(t, 25, l.PageSize(ctx, 50))

	require.NoError(t, store.Set(ctx, "console:pagesize", "bogus", 0))
	assert.Equal(t, 50, l.PageSize(ctx, 50))
}

func TestColumnLayout(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l, _ := newTestLedger(t, now)
	ctx := context.Background()

	assert.Equal(t, "", l.ColumnLayout(ctx))
	l.SaveColumnLayout(ctx, `["id","status","sla"]`)
	assert.Equal(t, `["id","status","sla"]`, l.ColumnLayout(ctx))
}

type downStore struct{}

func (downStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errorutil.NewPersistence(errors.New("connection refused"))
}

func (downStore) Set(context.Context, string, string, time.Duration) error {
	return errorutil.NewPersistence(errors.New("connection refused"))
}

func (downStore) Delete(context.Context, string) error {
	return errorutil.NewPersistence(errors.New("connection refused"))
}

func (downStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestUnavailableStoreDegradesSilently(t *testing.T) {
	l := New(downStore{}, "console", zap.NewNop())
	ctx := context.Background()

	assert.Empty(t, l.Snoozes(ctx))
	assert.Empty(t, l.Draft(ctx, "t-1"))
	assert.Equal(t, 50, l.PageSize(ctx, 50))
	assert.Empty(t, l.ColumnLayout(ctx))
	assert.Contains(t, []string{domain.CohortTest, domain.CohortControl}, l.Cohort(ctx))

	// Writes are best-effort and never surface the failure.
	assert.NotPanics(t, func() {
		l.Snooze(ctx, "t-1", time.Now().Add(time.Hour))
		l.SaveDraft(ctx, "t-1", "half-written reply")
		l.SavePageSize(ctx, 25)
	})
}

func TestClearSnoozesDropsSeveralAtOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l, _ := newTestLedger(t, now)
	ctx := context.Background()

	l.Snooze(ctx, "a", now.Add(time.Hour))
	l.Snooze(ctx, "b", now.Add(time.Hour))
	l.Snooze(ctx, "c", now.Add(time.Hour))

	l.ClearSnoozes(ctx, "a", "c", "ghost")

	snoozes := l.Snoozes(ctx)
	assert.NotContains(t, snoozes, "a")
	assert.NotContains(t, snoozes, "c")
	assert.Contains(t, snoozes, "b")
}
