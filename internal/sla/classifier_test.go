package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/dialog-console/internal/domain"
)

func ticketCreatedAt(created time.Time, status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{ID: "t1", Status: status, CreatedAt: &created}
}

func TestClassifyWindows(t *testing.T) {
	c := NewClassifier(1440, 240, 30)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		elapsedMin  int
		wantBucket  Bucket
		wantMinutes int
	}{
		{"fresh", 0, BucketNormal, 1440},
		{"still normal", 1199, BucketNormal, 241},
		{"enters warning window", 1200, BucketAtRisk, 240},
		{"deep in warning", 1430, BucketAtRisk, 10},
		{"deadline exactly", 1440, BucketBreached, 0},
		{"past deadline", 1500, BucketBreached, -60},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			now := t0.Add(time.Duration(tt.elapsedMin) * time.Minute)
			state := c.Classify(ticketCreatedAt(t0, domain.TicketStatusNew), now)
			assert.Equal(t, tt.wantBucket, state.Bucket)
			assert.Equal(t, tt.wantMinutes, state.MinutesLeft)
			assert.Equal(t, t0.Add(1440*time.Minute), state.Deadline)
		})
	}
}

func TestClassifyResolvedExempt(t *testing.T) {
	c := NewClassifier(1440, 240, 30)
	ancient := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, status := range []domain.TicketStatus{domain.TicketStatusClosed, domain.TicketStatusAutoClosed} {
		state := c.Classify(ticketCreatedAt(ancient, status), now)
		assert.Equal(t, BucketClosed, state.Bucket, "status %s", status)
		assert.False(t, c.Critical(state))
	}
}

func TestClassifyMissingCreation(t *testing.T) {
	c := NewClassifier(1440, 240, 30)
	now := time.Now()

	state := c.Classify(&domain.Ticket{ID: "t1", Status: domain.TicketStatusNew}, now)
	assert.Equal(t, BucketUnknown, state.Bucket)

	zero := time.Time{}
	state = c.Classify(&domain.Ticket{ID: "t2", Status: domain.TicketStatusNew, CreatedAt: &zero}, now)
	assert.Equal(t, BucketUnknown, state.Bucket)
}

func TestCriticalPredicateIndependentOfBucket(t *testing.T) {
	// Warning window 240, critical 30: at 20 minutes left the ticket is
	// at_risk and simultaneously critical-pinned.
	c := NewClassifier(1440, 240, 30)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	state := c.Classify(ticketCreatedAt(t0, domain.TicketStatusWaitingOperator), t0.Add(1420*time.Minute))
	assert.Equal(t, BucketAtRisk, state.Bucket)
	assert.True(t, c.Critical(state))

	state = c.Classify(ticketCreatedAt(t0, domain.TicketStatusWaitingOperator), t0.Add(1000*time.Minute))
	assert.Equal(t, BucketAtRisk, state.Bucket)
	assert.False(t, c.Critical(state))
}

func TestWindowClamping(t *testing.T) {
	c := NewClassifier(60, 240, 500)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Warning clamped to target: a fresh ticket is already at_risk.
	state := c.Classify(ticketCreatedAt(t0, domain.TicketStatusNew), t0)
	assert.Equal(t, BucketAtRisk, state.Bucket)
	assert.Equal(t, 60, c.CriticalWindow())
}

func TestDisplayMinutesClamped(t *testing.T) {
	assert.Equal(t, 0, State{Bucket: BucketBreached, MinutesLeft: -45}.DisplayMinutes())
	assert.Equal(t, 12, State{Bucket: BucketAtRisk, MinutesLeft: 12}.DisplayMinutes())
}
