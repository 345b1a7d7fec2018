package sla

import (
	"math"
	"time"

	"github.com/spec-kit/dialog-console/internal/domain"
)

// Bucket is the discrete SLA risk class of a ticket.
type Bucket string

const (
	BucketBreached Bucket = "breached"
	BucketAtRisk   Bucket = "at_risk"
	BucketNormal   Bucket = "normal"
	BucketClosed   Bucket = "closed"
	BucketUnknown  Bucket = "unknown"
)

// rank orders buckets for priority sorting: breached first, unknown last.
// Closed tickets are handled before bucket comparison and never ranked.
var rank = map[Bucket]int{
	BucketBreached: 0,
	BucketAtRisk:   1,
	BucketNormal:   2,
	BucketUnknown:  3,
	BucketClosed:   4,
}

// Rank returns the sort position of a bucket.
func (b Bucket) Rank() int {
	r, ok := rank[b]
	if !ok {
		return len(rank)
	}
	return r
}

// State is the derived SLA position of one ticket. Never persisted;
// recomputed on every render pass and on the periodic refresh tick.
type State struct {
	Bucket      Bucket
	MinutesLeft int
	Deadline    time.Time
}

// DisplayMinutes clamps the remaining time for rendering; breached tickets
// show zero rather than a negative count.
func (s State) DisplayMinutes() int {
	if s.MinutesLeft < 0 {
		return 0
	}
	return s.MinutesLeft
}

// Classifier buckets tickets against configured reaction windows. All
// windows are minutes. Pure: no side effects, never fails.
type Classifier struct {
	target   int
	warning  int
	critical int
}

// Default windows: one day to react, warn at four hours, critical at thirty
// minutes.
const (
	DefaultTargetMinutes   = 1440
	DefaultWarningMinutes  = 240
	DefaultCriticalMinutes = 30
)

// NewClassifier builds a classifier, clamping warning and critical windows to
// the target and substituting defaults for non-positive values.
func NewClassifier(target, warning, critical int) Classifier {
	if target <= 0 {
		target = DefaultTargetMinutes
	}
	if warning <= 0 {
		warning = DefaultWarningMinutes
	}
	if critical <= 0 {
		critical = DefaultCriticalMinutes
	}
	if warning > target {
		warning = target
	}
	if critical > target {
		critical = target
	}
	return Classifier{target: target, warning: warning, critical: critical}
}

// Classify derives the SLA state of a ticket at the given instant.
func (c Classifier) Classify(t *domain.Ticket, now time.Time) State {
	if t.Status.Resolved() {
		return State{Bucket: BucketClosed, MinutesLeft: math.MaxInt32}
	}
	if t.CreatedAt == nil || t.CreatedAt.IsZero() {
		return State{Bucket: BucketUnknown, MinutesLeft: math.MaxInt32}
	}
	deadline := t.CreatedAt.Add(time.Duration(c.target) * time.Minute)
	elapsed := int(now.Sub(*t.CreatedAt) / time.Minute)
	left := c.target - elapsed

	bucket := BucketNormal
	switch {
	case left <= 0:
		bucket = BucketBreached
	case left <= c.warning:
		bucket = BucketAtRisk
	}
	return State{Bucket: bucket, MinutesLeft: left, Deadline: deadline}
}

// Critical reports whether a state sits inside the critical window. This is a
// pinning/sorting predicate, not a bucket: an at_risk ticket can be critical
// at the same time.
func (c Classifier) Critical(s State) bool {
	if s.Bucket == BucketClosed || s.Bucket == BucketUnknown {
		return false
	}
	return s.MinutesLeft <= c.critical
}

// CriticalWindow exposes the configured critical cutoff in minutes.
func (c Classifier) CriticalWindow() int {
	return c.critical
}
