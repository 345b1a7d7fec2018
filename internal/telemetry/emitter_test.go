package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/dialog-console/internal/config"
)

func TestEmitterDeliversAndEnriches(t *testing.T) {
	var mu sync.Mutex
	var received []Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
	}))
	defer server.Close()

	e := NewEmitter(config.TelemetryConfig{
		URL:            server.URL,
		BufferSize:     8,
		ExperimentName: "workspace_rollout",
	}, func() string { return "test" }, zap.NewNop())

	e.Emit(Event{EventType: EventWorkspaceOpenMS, EventGroup: GroupWorkspace, DurationMS: 42})
	e.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.NotEmpty(t, received[0].ID)
	assert.Equal(t, "workspace_rollout", received[0].ExperimentName)
	assert.Equal(t, "test", received[0].ExperimentCohort)
	assert.Equal(t, int64(42), received[0].DurationMS)
}

func TestEmitAfterCloseDoesNotPanic(t *testing.T) {
	e := NewEmitter(config.TelemetryConfig{BufferSize: 1}, nil, zap.NewNop())
	e.Close()

	assert.NotPanics(t, func() {
		e.Emit(Event{EventType: EventWorkspaceError})
	})
	// Close is idempotent.
	assert.NotPanics(t, e.Close)
}

func TestEmitRacingCloseDoesNotPanic(t *testing.T) {
	e := NewEmitter(config.TelemetryConfig{BufferSize: 4}, nil, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			e.Emit(Event{EventType: EventWorkspaceOpenMS})
		}
	}()
	go func() {
		defer wg.Done()
		time.Sleep(time.Millisecond)
		e.Close()
	}()
	wg.Wait()
}
