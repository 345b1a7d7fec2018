package dto

import (
	"github.com/spec-kit/dialog-console/internal/upstream"
	"github.com/spec-kit/dialog-console/internal/workspace"
)

// WorkspaceResponse is the outcome of opening a dialog: the enhanced
// contract view or the legacy detail, flagged accordingly.
type WorkspaceResponse struct {
	TicketID       string                 `json:"ticket_id"`
	Enhanced       bool                   `json:"enhanced"`
	Readonly       bool                   `json:"readonly"`
	FallbackReason string                 `json:"fallback_reason,omitempty"`
	ElapsedMS      int64                  `json:"elapsed_ms"`
	Contract       any                    `json:"contract,omitempty"`
	Legacy         *upstream.TicketDetail `json:"legacy,omitempty"`
	Draft          string                 `json:"draft,omitempty"`
}

// NewWorkspaceResponse maps a loader view into the wire shape.
func NewWorkspaceResponse(v *workspace.View, draft string) WorkspaceResponse {
	out := WorkspaceResponse{
		TicketID:       v.TicketID,
		Enhanced:       v.Enhanced,
		Readonly:       v.Readonly,
		FallbackReason: v.FallbackReason,
		ElapsedMS:      v.Elapsed.Milliseconds(),
		Legacy:         v.Legacy,
		Draft:          draft,
	}
	if v.Contract != nil {
		out.Contract = v.Contract
	}
	return out
}
