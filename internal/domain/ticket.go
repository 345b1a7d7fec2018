package domain

import "time"

// TicketStatus enumerates lifecycle states mirrored from the upstream server.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "new"
	TicketStatusWaitingOperator TicketStatus = "waiting_operator"
	TicketStatusWaitingClient   TicketStatus = "waiting_client"
	TicketStatusClosed          TicketStatus = "closed"
	TicketStatusAutoClosed      TicketStatus = "auto_closed"
)

// Resolved reports whether the status is terminal. Resolved tickets are
// permanently SLA-exempt regardless of age.
func (s TicketStatus) Resolved() bool {
	return s == TicketStatusClosed || s == TicketStatusAutoClosed
}

// Ticket is the client-side mirror of a support dialog. Tickets are created
// and mutated exclusively upstream; the only local mutation is an optimistic
// patch after a successful action call, which the next poll may overwrite.
type Ticket struct {
	ID            string
	RequestNumber string
	ClientID      string
	ChannelID     string
	BusinessTags  []string
	Problem       string
	Location      string
	Categories    []string
	Status        TicketStatus
	Responsible   *string
	CreatedAt     *time.Time
	LastMessageAt time.Time
	UnreadCount   int
	Rating        *int
}

// Assigned reports whether a responsible operator is set.
func (t *Ticket) Assigned() bool {
	return t.Responsible != nil && *t.Responsible != ""
}
