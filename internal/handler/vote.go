package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/tekeve/WITv3.0-sub000/internal/middleware"
	"github.com/tekeve/WITv3.0-sub000/internal/model"
	"github.com/tekeve/WITv3.0-sub000/internal/service"
)

type VoteHandler struct {
	svc *service.CasterService
}

func NewVoteHandler(svc *service.CasterService) *VoteHandler {
	return &VoteHandler{svc: svc}
}

// Details handles GET /api/vote-details/:token
func (h *VoteHandler) Details(c fiber.Ctx) error {
	token, errMsg := middleware.ValidateToken(c.Params("token"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	details, err := h.svc.VoteDetails(c.Context(), token)
	if err != nil {
		return castError(c, err)
	}
	return c.JSON(details)
}

// Submit handles POST /api/votes
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	var req model.CastRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	token, errMsg := middleware.ValidateToken(req.Token)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	choices, errMsg := middleware.ValidateRankedChoices(req.RankedChoices)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	if err := h.svc.Cast(c.Context(), token, choices); err != nil {
		return castError(c, err)
	}
	return c.JSON(model.CastResponse{Success: true})
}

// castError maps the casting error taxonomy onto HTTP statuses. The 409 for
// a lost race is deliberately distinct from the 403 for a spent token, so a
// client knows the difference between "retry is pointless" and "never valid".
func castError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, model.ErrMalformedBallot):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "MALFORMED_BALLOT",
			"The ranking must list every candidate exactly once")
	case errors.Is(err, model.ErrInvalidToken):
		return middleware.ErrorResponse(c, fiber.StatusForbidden, "INVALID_TOKEN",
			"The casting token is unknown or already used")
	case errors.Is(err, model.ErrInactiveElection):
		return middleware.ErrorResponse(c, fiber.StatusForbidden, "INACTIVE_ELECTION",
			"The election is no longer accepting ballots")
	case errors.Is(err, model.ErrConcurrentCast):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "CONCURRENT_CAST",
			"A concurrent request consumed this token")
	default:
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "STORAGE_ERROR",
			"Failed to process the ballot")
	}
}
