package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dialog-console/internal/api/dto"
	"github.com/spec-kit/dialog-console/internal/bulk"
	"github.com/spec-kit/dialog-console/internal/domain"
	"github.com/spec-kit/dialog-console/internal/session"
	"github.com/spec-kit/dialog-console/internal/view"
	apperrors "github.com/spec-kit/dialog-console/pkg/errorutil"
)

// QueueHandler serves the reconciled queue, the selection set, and bulk
// actions to the operator UI.
type QueueHandler struct {
	ctrl  *session.Controller
	coord *bulk.Coordinator
}

// NewQueueHandler constructs the handler.
func NewQueueHandler(ctrl *session.Controller, coord *bulk.Coordinator) *QueueHandler {
	return &QueueHandler{ctrl: ctrl, coord: coord}
}

// List GET /queue.
func (h *QueueHandler) List(c *fiber.Ctx) error {
	applyQueryParams(h.ctrl, c)

	result := h.ctrl.Render(c.Context())
	selected := map[string]struct{}{}
	for _, id := range h.ctrl.Selection() {
		selected[id] = struct{}{}
	}

	rows := make([]dto.QueueRow, 0, len(result.Rows))
	for _, row := range result.Rows {
		_, isSelected := selected[row.Ticket.ID]
		rows = append(rows, dto.NewQueueRow(row, isSelected, string(h.coord.State(row.Ticket.ID))))
	}
	return c.JSON(dto.QueueResponse{
		Rows:      rows,
		HiddenIDs: result.Hidden,
		Total:     len(result.Rows) + len(result.Hidden),
	})
}

// Summary GET /queue/summary.
func (h *QueueHandler) Summary(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.ctrl.Summary(c.Context())})
}

// UpdateQuery POST /queue/query.
func (h *QueueHandler) UpdateQuery(c *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Search != nil {
		h.ctrl.SetSearch(*req.Search)
	}
	if req.Status != nil {
		if *req.Status == "" {
			h.ctrl.SetStatusFilter(nil)
		} else {
			status := domain.TicketStatus(*req.Status)
			h.ctrl.SetStatusFilter(&status)
		}
	}
	if req.View != nil {
		h.ctrl.SetView(view.SmartView(*req.View))
	}
	if req.Sort != nil {
		h.ctrl.SetSort(view.SortMode(*req.Sort))
	}
	if req.ReactionWindow != nil {
		if *req.ReactionWindow <= 0 {
			h.ctrl.SetReactionWindow(nil)
		} else {
			h.ctrl.SetReactionWindow(req.ReactionWindow)
		}
	}
	if req.PageSize != nil {
		h.ctrl.SetPageSize(*req.PageSize)
	}
	return c.JSON(fiber.Map{"data": h.ctrl.Query()})
}

// UpdateSelection POST /queue/selection.
func (h *QueueHandler) UpdateSelection(c *fiber.Ctx) error {
	var req dto.SelectionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.Add) > 0 {
		h.ctrl.Select(c.Context(), req.Add...)
	}
	if len(req.Remove) > 0 {
		h.ctrl.Deselect(c.Context(), req.Remove...)
	}
	return c.JSON(fiber.Map{"data": h.ctrl.Selection()})
}

// ClearSelection DELETE /queue/selection.
func (h *QueueHandler) ClearSelection(c *fiber.Ctx) error {
	h.ctrl.ClearSelection(c.Context())
	return c.SendStatus(fiber.StatusNoContent)
}

// Bulk POST /queue/bulk.
func (h *QueueHandler) Bulk(c *fiber.Ctx) error {
	var req dto.BulkRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	kind := bulk.ActionKind(req.Action)
	switch kind {
	case bulk.ActionTake, bulk.ActionSnooze, bulk.ActionClose:
	default:
		return apperrors.NewValidationError("unknown action", map[string]any{"action": req.Action})
	}

	result, err := h.coord.Execute(c.Context(), kind)
	if err != nil && apperrors.Code(err) != apperrors.CodePartialBatch {
		return err
	}
	// Partial failures keep the aggregate body; the status alone flags them.
	status := fiber.StatusOK
	if result.Failed() > 0 {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(dto.BulkResponse{
		Action:    string(result.Action),
		Succeeded: result.Succeeded,
		Skipped:   result.Skipped,
		Failed:    result.Failed(),
		Errors:    result.Errors,
	})
}

// Visibility POST /session/visibility.
func (h *QueueHandler) Visibility(c *fiber.Ctx) error {
	var req dto.VisibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Visible {
		h.ctrl.Resume()
	} else {
		h.ctrl.Suspend()
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func applyQueryParams(ctrl *session.Controller, c *fiber.Ctx) {
	if search := c.Query("search"); c.Context().QueryArgs().Has("search") {
		ctrl.SetSearch(search)
	}
	if v := c.Query("view"); v != "" {
		ctrl.SetView(view.SmartView(v))
	}
	if s := c.Query("sort"); s != "" {
		ctrl.SetSort(view.SortMode(s))
	}
	if status := c.Query("status"); c.Context().QueryArgs().Has("status") {
		if status == "" {
			ctrl.SetStatusFilter(nil)
		} else {
			st := domain.TicketStatus(status)
			ctrl.SetStatusFilter(&st)
		}
	}
	if window := c.QueryInt("reaction_window", -1); window >= 0 {
		if window == 0 {
			ctrl.SetReactionWindow(nil)
		} else {
			ctrl.SetReactionWindow(&window)
		}
	}
	if size := c.QueryInt("page_size", -1); size >= 0 {
		ctrl.SetPageSize(size)
	}
}
