package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dialog-console/internal/api/dto"
	"github.com/spec-kit/dialog-console/internal/ledger"
	"github.com/spec-kit/dialog-console/internal/session"
	apperrors "github.com/spec-kit/dialog-console/pkg/errorutil"
)

// PrefsHandler persists per-operator view preferences: column layout,
// page size and the sticky experiment cohort.
type PrefsHandler struct {
	ledger          *ledger.Ledger
	ctrl            *session.Controller
	defaultPageSize int
}

// NewPrefsHandler constructs the handler.
func NewPrefsHandler(ledger *ledger.Ledger, ctrl *session.Controller, defaultPageSize int) *PrefsHandler {
	return &PrefsHandler{ledger: ledger, ctrl: ctrl, defaultPageSize: defaultPageSize}
}

// Get GET /prefs.
func (h *PrefsHandler) Get(c *fiber.Ctx) error {
	return c.JSON(dto.PrefsResponse{
		ColumnLayout: h.ledger.ColumnLayout(c.Context()),
		PageSize:     h.ledger.PageSize(c.Context(), h.defaultPageSize),
		Cohort:       h.ledger.Cohort(c.Context()),
	})
}

// Update PUT /prefs. Persists the given fields and applies the page size
// to the live session.
func (h *PrefsHandler) Update(c *fiber.Ctx) error {
	var req dto.PrefsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ColumnLayout != nil {
		h.ledger.SaveColumnLayout(c.Context(), *req.ColumnLayout)
	}
	if req.PageSize != nil {
		if *req.PageSize <= 0 {
			return apperrors.NewValidationError("page_size must be positive", nil)
		}
		h.ledger.SavePageSize(c.Context(), *req.PageSize)
		h.ctrl.SetPageSize(*req.PageSize)
	}
	return h.Get(c)
}
