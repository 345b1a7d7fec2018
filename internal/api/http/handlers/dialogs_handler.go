package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dialog-console/internal/api/dto"
	"github.com/spec-kit/dialog-console/internal/bulk"
	"github.com/spec-kit/dialog-console/internal/ledger"
	"github.com/spec-kit/dialog-console/internal/session"
	"github.com/spec-kit/dialog-console/internal/upstream"
	"github.com/spec-kit/dialog-console/internal/workspace"
	apperrors "github.com/spec-kit/dialog-console/pkg/errorutil"
)

// DialogsHandler opens dialog workspaces and runs single-dialog actions.
type DialogsHandler struct {
	loader *workspace.Loader
	coord  *bulk.Coordinator
	ctrl   *session.Controller
	client *upstream.Client
	ledger *ledger.Ledger
}

// NewDialogsHandler constructs the handler.
func NewDialogsHandler(loader *workspace.Loader, coord *bulk.Coordinator, ctrl *session.Controller, client *upstream.Client, ledger *ledger.Ledger) *DialogsHandler {
	return &DialogsHandler{loader: loader, coord: coord, ctrl: ctrl, client: client, ledger: ledger}
}

// Open POST /dialogs/:id/open. Loads the workspace contract, falling back
// to the legacy detail when the contract cannot be rendered.
func (h *DialogsHandler) Open(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	channelID := c.Query("channel_id")
	if channelID == "" {
		if ticket, ok := h.ctrl.Ticket(ticketID); ok {
			channelID = ticket.ChannelID
		}
	}

	view, err := h.loader.Open(c.Context(), ticketID, channelID)
	if err != nil {
		if errors.Is(err, workspace.ErrStale) {
			return c.SendStatus(fiber.StatusConflict)
		}
		return err
	}
	draft := h.ledger.Draft(c.Context(), ticketID)
	return c.JSON(dto.NewWorkspaceResponse(view, draft))
}

// Action POST /dialogs/:id/actions/:action. Runs a single take, snooze,
// close or reopen for one dialog.
func (h *DialogsHandler) Action(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	action := c.Params("action")

	var err error
	switch action {
	case "take":
		err = h.coord.Single(c.Context(), bulk.ActionTake, ticketID)
	case "snooze":
		err = h.coord.Single(c.Context(), bulk.ActionSnooze, ticketID)
	case "close":
		err = h.coord.Single(c.Context(), bulk.ActionClose, ticketID)
	case "reopen":
		err = h.coord.Reopen(c.Context(), ticketID)
	default:
		return apperrors.NewValidationError("unknown action", map[string]any{"action": action})
	}
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Reply POST /dialogs/:id/reply. Sends the message and clears the draft.
func (h *DialogsHandler) Reply(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("message is required", nil)
	}
	if !h.ctrl.Permissions().AllowsReply() {
		return apperrors.NewPermissionDenied("reply")
	}
	if err := h.client.Reply(c.Context(), ticketID, req.Message, req.ReplyTo); err != nil {
		return err
	}
	h.ledger.ClearDraft(c.Context(), ticketID)
	return c.SendStatus(fiber.StatusNoContent)
}

// EditMessage PUT /dialogs/:id/messages/:mid.
func (h *DialogsHandler) EditMessage(c *fiber.Ctx) error {
	var req dto.MessageEditRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperrors.NewValidationError("body is required", nil)
	}
	if !h.ctrl.Permissions().AllowsReply() {
		return apperrors.NewPermissionDenied("edit_message")
	}
	if err := h.client.EditMessage(c.Context(), c.Params("id"), c.Params("mid"), req.Body); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteMessage DELETE /dialogs/:id/messages/:mid.
func (h *DialogsHandler) DeleteMessage(c *fiber.Ctx) error {
	if !h.ctrl.Permissions().AllowsReply() {
		return apperrors.NewPermissionDenied("delete_message")
	}
	if err := h.client.DeleteMessage(c.Context(), c.Params("id"), c.Params("mid")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadMedia POST /dialogs/:id/media. Accepts one multipart file under
// the "media" field and streams it upstream.
func (h *DialogsHandler) UploadMedia(c *fiber.Ctx) error {
	if !h.ctrl.Permissions().AllowsReply() {
		return apperrors.NewPermissionDenied("upload_media")
	}
	header, err := c.FormFile("media")
	if err != nil {
		return apperrors.NewValidationError("media file is required", nil)
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("media file is unreadable", nil)
	}
	defer file.Close()
	if err := h.client.UploadMedia(c.Context(), c.Params("id"), header.Filename, file); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Draft GET /dialogs/:id/draft.
func (h *DialogsHandler) Draft(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.ledger.Draft(c.Context(), c.Params("id"))})
}

// SaveDraft PUT /dialogs/:id/draft. An empty body clears the draft.
func (h *DialogsHandler) SaveDraft(c *fiber.Ctx) error {
	var req dto.DraftRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	h.ledger.SaveDraft(c.Context(), c.Params("id"), req.Text)
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteDraft DELETE /dialogs/:id/draft.
func (h *DialogsHandler) DeleteDraft(c *fiber.Ctx) error {
	h.ledger.ClearDraft(c.Context(), c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}
