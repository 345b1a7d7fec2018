package ledger

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/dialog-console/internal/domain"
)

// Ledger is the client-local persistence layer: snooze expirations, unsent
// reply drafts, the experiment-cohort assignment, and view preferences. Every
// read degrades to an empty/safe value on parse or store failure; writes are
// best-effort.
type Ledger struct {
	store     Store
	logger    *zap.Logger
	namespace string
	now       func() time.Time
}

const draftTTL = 7 * 24 * time.Hour

// New constructs a ledger over the given store.
func New(store Store, namespace string, logger *zap.Logger) *Ledger {
	if namespace == "" {
		namespace = "console"
	}
	return &Ledger{store: store, logger: logger, namespace: namespace, now: time.Now}
}

// SetClock overrides the expiry clock, for tests.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

func (l *Ledger) key(parts ...string) string {
	key := l.namespace
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Snoozes loads the snooze map, purging expired entries opportunistically.
// The map value is the expiry instant per ticket id.
func (l *Ledger) Snoozes(ctx context.Context) map[string]time.Time {
	raw, ok, err := l.store.Get(ctx, l.key("snooze"))
	if err != nil {
		l.logger.Warn("snooze ledger read failed", zap.Error(err))
		return map[string]time.Time{}
	}
	if !ok {
		return map[string]time.Time{}
	}

	var stored map[string]int64
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		l.logger.Warn("snooze ledger corrupt, resetting", zap.Error(err))
		_ = l.store.Delete(ctx, l.key("snooze"))
		return map[string]time.Time{}
	}

	now := l.now()
	active := make(map[string]time.Time, len(stored))
	purged := false
	for id, expiryMs := range stored {
		expiry := time.UnixMilli(expiryMs)
		if !expiry.After(now) {
			purged = true
			continue
		}
		active[id] = expiry
	}
	if purged {
		l.writeSnoozes(ctx, active)
	}
	return active
}

// Snooze records a suppression until the given instant.
func (l *Ledger) Snooze(ctx context.Context, ticketID string, until time.Time) {
	entries := l.Snoozes(ctx)
	entries[ticketID] = until
	l.writeSnoozes(ctx, entries)
}

// ClearSnooze drops a suppression, e.g. when the ticket resolves.
func (l *Ledger) ClearSnooze(ctx context.Context, ticketID string) {
	l.ClearSnoozes(ctx, ticketID)
}

// ClearSnoozes drops suppressions for several tickets at once, rewriting the
// stored map a single time.
func (l *Ledger) ClearSnoozes(ctx context.Context, ticketIDs ...string) {
	if len(ticketIDs) == 0 {
		return
	}
	entries := l.Snoozes(ctx)
	changed := false
	for _, id := range ticketIDs {
		if _, ok := entries[id]; ok {
			delete(entries, id)
			changed = true
		}
	}
	if changed {
		l.writeSnoozes(ctx, entries)
	}
}

func (l *Ledger) writeSnoozes(ctx context.Context, entries map[string]time.Time) {
	stored := make(map[string]int64, len(entries))
	for id, expiry := range entries {
		stored[id] = expiry.UnixMilli()
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return
	}
	if err := l.store.Set(ctx, l.key("snooze"), string(raw), 0); err != nil {
		l.logger.Warn("snooze ledger write failed", zap.Error(err))
	}
}

// Draft returns the unsent reply text for a ticket, or "".
func (l *Ledger) Draft(ctx context.Context, ticketID string) string {
	raw, ok, err := l.store.Get(ctx, l.key("draft", ticketID))
	if err != nil {
		l.logger.Warn("draft read failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return raw
}

// SaveDraft persists the unsent reply text for a ticket.
func (l *Ledger) SaveDraft(ctx context.Context, ticketID, text string) {
	if text == "" {
		l.ClearDraft(ctx, ticketID)
		return
	}
	if err := l.store.Set(ctx, l.key("draft", ticketID), text, draftTTL); err != nil {
		l.logger.Warn("draft write failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

// ClearDraft removes a draft after a successful send or explicit clear.
func (l *Ledger) ClearDraft(ctx context.Context, ticketID string) {
	if err := l.store.Delete(ctx, l.key("draft", ticketID)); err != nil {
		l.logger.Warn("draft delete failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

// Cohort returns the sticky experiment cohort for this session, assigning one
// on first call.
func (l *Ledger) Cohort(ctx context.Context) string {
	raw, ok, err := l.store.Get(ctx, l.key("cohort"))
	if err == nil && ok && (raw == domain.CohortTest || raw == domain.CohortControl) {
		return raw
	}
	if err != nil {
		l.logger.Warn("cohort read failed", zap.Error(err))
	}

	cohort := domain.CohortControl
	if assignTest() {
		cohort = domain.CohortTest
	}
	if err := l.store.Set(ctx, l.key("cohort"), cohort, 0); err != nil {
		l.logger.Warn("cohort write failed", zap.Error(err))
	}
	return cohort
}

// assignTest is a uuid-seeded coin flip.
func assignTest() bool {
	id := uuid.New()
	return id[0]%2 == 0
}

// ColumnLayout returns the persisted column order as raw JSON, or "".
func (l *Ledger) ColumnLayout(ctx context.Context) string {
	raw, ok, err := l.store.Get(ctx, l.key("layout"))
	if err != nil || !ok {
		return ""
	}
	return raw
}

// SaveColumnLayout persists the column order.
func (l *Ledger) SaveColumnLayout(ctx context.Context, layout string) {
	if err := l.store.Set(ctx, l.key("layout"), layout, 0); err != nil {
		l.logger.Warn("layout write failed", zap.Error(err))
	}
}

// PageSize returns the persisted page-size preference, or fallback.
func (l *Ledger) PageSize(ctx context.Context, fallback int) int {
	raw, ok, err := l.store.Get(ctx, l.key("pagesize"))
	if err != nil || !ok {
		return fallback
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < 0 {
		return fallback
	}
	return size
}

// SavePageSize persists the page-size preference.
func (l *Ledger) SavePageSize(ctx context.Context, size int) {
	if err := l.store.Set(ctx, l.key("pagesize"), strconv.Itoa(size), 0); err != nil {
		l.logger.Warn("page size write failed", zap.Error(err))
	}
}
