package domain

import "time"

// WorkspaceContractVersion is the exact tag the enhanced detail view requires.
const WorkspaceContractVersion = "workspace.v1"

// Permissions carries the per-action flags of a workspace contract. Pointer
// booleans distinguish a flag that is absent from one that is false.
type Permissions struct {
	CanReply  *bool `json:"can_reply"`
	CanAssign *bool `json:"can_assign"`
	CanSnooze *bool `json:"can_snooze"`
	CanClose  *bool `json:"can_close"`
	CanBulk   *bool `json:"can_bulk"`
}

// Complete reports whether every expected flag is present.
func (p Permissions) Complete() bool {
	return p.CanReply != nil && p.CanAssign != nil && p.CanSnooze != nil &&
		p.CanClose != nil && p.CanBulk != nil
}

// Readonly reports whether the view must disable mutating controls: the
// flag set is incomplete, or no mutating flag is granted.
func (p Permissions) Readonly() bool {
	if !p.Complete() {
		return true
	}
	return !*p.CanAssign && !*p.CanClose && !*p.CanSnooze && !*p.CanBulk
}

func granted(flag *bool) bool {
	return flag != nil && *flag
}

// AllowsAssign reports whether assignment actions are permitted.
func (p Permissions) AllowsAssign() bool { return granted(p.CanAssign) }

// AllowsSnooze reports whether snooze actions are permitted.
func (p Permissions) AllowsSnooze() bool { return granted(p.CanSnooze) }

// AllowsClose reports whether close actions are permitted.
func (p Permissions) AllowsClose() bool { return granted(p.CanClose) }

// AllowsBulk reports whether multi-ticket actions are permitted.
func (p Permissions) AllowsBulk() bool { return granted(p.CanBulk) }

// AllowsReply reports whether replying is permitted.
func (p Permissions) AllowsReply() bool { return granted(p.CanReply) }

// FullPermissions grants everything. Used as the session default until a
// contract narrows it.
func FullPermissions() Permissions {
	t := true
	return Permissions{CanReply: &t, CanAssign: &t, CanSnooze: &t, CanClose: &t, CanBulk: &t}
}

// WorkspaceConversation is the conversation block of a contract.
type WorkspaceConversation struct {
	TicketID    string  `json:"ticketId"`
	Status      string  `json:"status"`
	StatusKey   string  `json:"statusKey"`
	Responsible *string `json:"responsible"`
}

// StatusLabel returns whichever status field the server populated.
func (c WorkspaceConversation) StatusLabel() string {
	if c.Status != "" {
		return c.Status
	}
	return c.StatusKey
}

// WorkspaceMessage is one conversation entry.
type WorkspaceMessage struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	ReplyTo   *string   `json:"replyTo"`
}

// WorkspaceContext bundles client background shown beside the conversation.
type WorkspaceContext struct {
	Client        map[string]any   `json:"client"`
	History       []map[string]any `json:"history"`
	RelatedEvents []map[string]any `json:"relatedEvents"`
}

// WorkspaceSla is the server's own view of the ticket's SLA position.
type WorkspaceSla struct {
	State      string     `json:"state"`
	DeadlineAt *time.Time `json:"deadlineAt"`
}

// WorkspaceContract is the versioned enhanced-detail payload. Required
// sub-objects are pointers so validation can tell "absent" from "zero".
type WorkspaceContract struct {
	ContractVersion string                 `json:"contractVersion"`
	Conversation    *WorkspaceConversation `json:"conversation"`
	Messages        struct {
		Items []WorkspaceMessage `json:"items"`
	} `json:"messages"`
	Context     WorkspaceContext `json:"context"`
	Sla         *WorkspaceSla    `json:"sla"`
	Permissions *Permissions     `json:"permissions"`
}
