package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventQueueUpdated       EventType = "queue_updated"
	EventSelectionChanged   EventType = "selection_changed"
	EventSlaTick            EventType = "sla_tick"
	EventNotification       EventType = "notification"
	EventWorkspaceRendered  EventType = "workspace_rendered"
	EventWorkspaceFallback  EventType = "workspace_fallback"
	EventDialogPatched      EventType = "dialog_patched"
	EventBulkActionFinished EventType = "bulk_action_finished"
)

// Event represents a console event routed through the dispatcher.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NotificationKind classifies operator-facing notices.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyWarning NotificationKind = "warning"
)

// NotificationPayload is a single operator-facing notice. Bulk actions emit
// exactly one of these per batch.
type NotificationPayload struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

// QueueUpdatedPayload describes an applied synchronization pass.
type QueueUpdatedPayload struct {
	Fingerprint string `json:"fingerprint"`
	Total       int    `json:"total"`
	Pruned      int    `json:"pruned_selection"`
}

// BulkActionFinishedPayload summarizes a completed batch.
type BulkActionFinishedPayload struct {
	Action    string   `json:"action"`
	Succeeded int      `json:"succeeded"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// WorkspaceFallbackPayload records a degradation to the legacy detail view.
type WorkspaceFallbackPayload struct {
	Reason    string `json:"reason"`
	ElapsedMS int64  `json:"elapsed_ms"`
}
