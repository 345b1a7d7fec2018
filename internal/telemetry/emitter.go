package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/dialog-console/internal/config"
)

// Well-known event names.
const (
	EventWorkspaceOpenMS   = "workspace_open_ms"
	EventWorkspaceError    = "workspace_render_error"
	EventWorkspaceFallback = "workspace_fallback_to_legacy"
	GroupWorkspace         = "workspace"
)

// Event is one fire-and-forget telemetry record.
type Event struct {
	ID               string            `json:"id"`
	EventType        string            `json:"event_type"`
	EventGroup       string            `json:"event_group"`
	Timestamp        time.Time         `json:"timestamp"`
	TicketID         string            `json:"ticket_id,omitempty"`
	Reason           string            `json:"reason,omitempty"`
	ErrorCode        string            `json:"error_code,omitempty"`
	DurationMS       int64             `json:"duration_ms,omitempty"`
	ExperimentName   string            `json:"experiment_name,omitempty"`
	ExperimentCohort string            `json:"experiment_cohort,omitempty"`
	Template         map[string]string `json:"template,omitempty"`
}

// Sink accepts telemetry events. Delivery is best-effort; Emit must never
// block the caller.
type Sink interface {
	Emit(event Event)
}

// NopSink drops everything. Used when no telemetry URL is configured.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// Emitter posts events to the telemetry endpoint from a background worker.
// The buffer is bounded; when it is full events are dropped rather than
// delaying the caller.
type Emitter struct {
	url        string
	httpClient *http.Client
	queue      chan Event
	logger     *zap.Logger
	stop       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once

	experimentName string
	cohort         func() string
}

// NewEmitter builds an emitter and starts its delivery worker. cohort is
// called lazily per event so the sticky assignment is read once available.
func NewEmitter(cfg config.TelemetryConfig, cohort func() string, logger *zap.Logger) *Emitter {
	size := cfg.BufferSize
	if size <= 0 {
		size = 256
	}
	e := &Emitter{
		url:            cfg.URL,
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		queue:          make(chan Event, size),
		logger:         logger,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
		experimentName: cfg.ExperimentName,
		cohort:         cohort,
	}
	go e.run()
	return e
}

// Emit enqueues an event without blocking. On a full buffer the event is
// dropped and counted in the log.
func (e *Emitter) Emit(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ExperimentName == "" {
		event.ExperimentName = e.experimentName
	}
	if event.ExperimentCohort == "" && e.cohort != nil {
		event.ExperimentCohort = e.cohort()
	}

	select {
	case <-e.stop:
		// Shutting down; the queue is never closed, so a late Emit is
		// simply dropped instead of panicking.
		return
	default:
	}

	select {
	case e.queue <- event:
	default:
		e.logger.Debug("telemetry buffer full, event dropped",
			zap.String("event_type", event.EventType))
	}
}

// Close stops accepting events and gives the worker a moment to drain.
// Must not delay shutdown: after the grace period remaining events are lost.
// Safe to call more than once and concurrently with Emit.
func (e *Emitter) Close() {
	e.closeOnce.Do(func() { close(e.stop) })
	select {
	case <-e.done:
	case <-time.After(2 * time.Second):
	}
}

func (e *Emitter) run() {
	defer close(e.done)
	for {
		select {
		case event := <-e.queue:
			e.deliver(event)
		case <-e.stop:
			for {
				select {
				case event := <-e.queue:
					e.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (e *Emitter) deliver(event Event) {
	if e.url == "" {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(raw))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Debug("telemetry delivery failed", zap.Error(err))
		return
	}
	resp.Body.Close()
}
