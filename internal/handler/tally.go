package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/tekeve/WITv3.0-sub000/internal/middleware"
	"github.com/tekeve/WITv3.0-sub000/internal/service"
)

type TallyHandler struct {
	svc *service.TallyService
}

func NewTallyHandler(svc *service.TallyService) *TallyHandler {
	return &TallyHandler{svc: svc}
}

// Trigger handles POST /api/elections/:electionId/tally — the manual tally
// trigger. Safe to call more than once: a run on an already-closed election
// is a no-op.
func (h *TallyHandler) Trigger(c fiber.Ctx) error {
	electionID, errMsg := middleware.ValidateElectionID(c.Params("electionId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	if err := h.svc.RunTally(c.Context(), electionID); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "TALLY_FAILED",
			"The tally run did not complete cleanly; see reports and logs")
	}
	return c.JSON(fiber.Map{"success": true})
}
