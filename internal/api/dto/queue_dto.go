package dto

import (
	"time"

	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/internal/view"
)

// QueueRow is one rendered queue entry.
type QueueRow struct {
	ID            string              `json:"id"`
	RequestNumber string              `json:"request_number,omitempty"`
	ClientID      string              `json:"client_id"`
	ChannelID     string              `json:"channel_id"`
	Problem       string              `json:"problem"`
	Location      string              `json:"location,omitempty"`
	Categories    []string            `json:"categories,omitempty"`
	Status        domain.TicketStatus `json:"status"`
	Responsible   *string             `json:"responsible"`
	CreatedAt     *time.Time          `json:"created_at"`
	LastMessageAt *time.Time          `json:"last_message_at,omitempty"`
	UnreadCount   int                 `json:"unread_count"`
	Rating        *int                `json:"rating,omitempty"`
	SlaBucket     string              `json:"sla_bucket"`
	SlaMinutes    int                 `json:"sla_minutes_left"`
	SlaDeadline   *time.Time          `json:"sla_deadline,omitempty"`
	Critical      bool                `json:"critical"`
	Snoozed       bool                `json:"snoozed"`
	Selected      bool                `json:"selected"`
	ActionState   string              `json:"action_state"`
}

// QueueResponse is the rendered, page-truncated queue.
type QueueResponse struct {
	Rows      []QueueRow `json:"rows"`
	HiddenIDs []string   `json:"hidden_ids,omitempty"`
	Total     int        `json:"total"`
}

// NewQueueRow maps a pipeline row into the wire shape.
func NewQueueRow(row view.Row, selected bool, actionState string) QueueRow {
	out := QueueRow{
		ID:            row.Ticket.ID,
		RequestNumber: row.Ticket.RequestNumber,
		ClientID:      row.Ticket.ClientID,
		ChannelID:     row.Ticket.ChannelID,
		Problem:       row.Ticket.Problem,
		Location:      row.Ticket.Location,
		Categories:    row.Ticket.Categories,
		Status:        row.Ticket.Status,
		Responsible:   row.Ticket.Responsible,
		CreatedAt:     row.Ticket.CreatedAt,
		UnreadCount:   row.Ticket.UnreadCount,
		Rating:        row.Ticket.Rating,
		SlaBucket:     string(row.Sla.Bucket),
		SlaMinutes:    row.Sla.DisplayMinutes(),
		Critical:      row.Critical,
		Snoozed:       row.Snoozed,
		Selected:      selected,
		ActionState:   actionState,
	}
	if !row.Ticket.LastMessageAt.IsZero() {
		last := row.Ticket.LastMessageAt
		out.LastMessageAt = &last
	}
	if !row.Sla.Deadline.IsZero() {
		deadline := row.Sla.Deadline
		out.SlaDeadline = &deadline
	}
	return out
}

// SelectionRequest adds or removes ids from the selection set.
type SelectionRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// BulkRequest names the batch action to run.
type BulkRequest struct {
	Action string `json:"action"`
}

// BulkResponse reports the aggregate outcome of a batch.
type BulkResponse struct {
	Action    string   `json:"action"`
	Succeeded int      `json:"succeeded"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// QueryRequest mutates the active listing parameters.
type QueryRequest struct {
	Search         *string `json:"search"`
	Status         *string `json:"status"`
	View           *string `json:"view"`
	Sort           *string `json:"sort"`
	ReactionWindow *int    `json:"reaction_window"`
	PageSize       *int    `json:"page_size"`
}

// VisibilityRequest toggles page visibility for the polling gates.
type VisibilityRequest struct {
	Visible bool `json:"visible"`
}

// ReplyRequest posts an operator message.
type ReplyRequest struct {
	Message string  `json:"message"`
	ReplyTo *string `json:"reply_to"`
}

// MessageEditRequest rewrites a previously sent message.
type MessageEditRequest struct {
	Body string `json:"body"`
}

// DraftRequest saves unsent reply text.
type DraftRequest struct {
	Text string `json:"text"`
}

// PrefsRequest persists view preferences.
type PrefsRequest struct {
	ColumnLayout *string `json:"column_layout"`
	PageSize     *int    `json:"page_size"`
}

// PrefsResponse returns persisted view preferences.
type PrefsResponse struct {
	ColumnLayout string `json:"column_layout,omitempty"`
	PageSize     int    `json:"page_size"`
	Cohort       string `json:"cohort"`
}
