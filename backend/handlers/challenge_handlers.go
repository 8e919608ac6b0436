package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	webmodels "github.com/devmasterhq/devmaster/backend/models"
	"github.com/devmasterhq/devmaster/backend/utils"
	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/devmasterhq/devmaster/devmaster/database/repositories"
	"github.com/devmasterhq/devmaster/devmaster/services"
)

// ChallengeDTO is the public view of a challenge. The hidden test fragment
// never appears here.
type ChallengeDTO struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	TemplateCode string    `json:"template_code"`
	HintCount    int       `json:"hint_count"`
	Difficulty   string    `json:"difficulty"`
	OrderIndex   int       `json:"order_index"`
}

func toChallengeDTO(c *models.Challenge) ChallengeDTO {
	return ChallengeDTO{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		TemplateCode: c.TemplateCode,
		HintCount:    len(c.Hints),
		Difficulty:   c.Difficulty,
		OrderIndex:   c.OrderIndex,
	}
}

// HandleListChallenges returns the catalogue, optionally narrowed by a
// fuzzy title query (?q=).
func (w *WebApp) HandleListChallenges(c *fiber.Ctx) error {
	challenges, err := w.Challenges.List(c.Context(), c.Query("q"))
	if err != nil {
		return utils.SendInternalServerError(c, "Failed to list challenges")
	}

	dtos := make([]ChallengeDTO, 0, len(challenges))
	for _, challenge := range challenges {
		dtos = append(dtos, toChallengeDTO(challenge))
	}
	return utils.SendSuccess(c, dtos, "")
}

// HandleGetChallenge returns one challenge by id.
func (w *WebApp) HandleGetChallenge(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.SendBadRequest(c, "Invalid challenge id", nil)
	}

	challenge, err := w.Challenges.Get(c.Context(), id)
	if errors.Is(err, repositories.ErrChallengeNotFound) {
		return utils.SendNotFound(c, "Challenge not found")
	}
	if err != nil {
		return utils.SendInternalServerError(c, "Failed to load challenge")
	}
	return utils.SendSuccess(c, toChallengeDTO(challenge), "")
}

// HandleValidateCode grades a submission against the challenge's hidden
// tests. Costs one energy; refunded on success.
func (w *WebApp) HandleValidateCode(c *fiber.Ctx) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Authentication required")
	}

	var req webmodels.SubmitCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}
	if req.Code == "" {
		return utils.SendBadRequest(c, "Code is required", nil)
	}
	challengeID, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		return utils.SendBadRequest(c, "Invalid challenge id", nil)
	}

	result, err := w.Challenges.Submit(c.Context(), userID, challengeID, req.Code)
	switch {
	case errors.Is(err, repositories.ErrChallengeNotFound):
		return utils.SendNotFound(c, "Challenge not found")
	case errors.Is(err, repositories.ErrInsufficientEnergy):
		return utils.SendPaymentRequired(c, "Not enough energy")
	case errors.Is(err, repositories.ErrEnergyNotProvisioned):
		if provErr := w.Ledger.Provision(c.Context(), userID); provErr != nil {
			return utils.SendInternalServerError(c, "Failed to provision energy")
		}
		result, err = w.Challenges.Submit(c.Context(), userID, challengeID, req.Code)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to grade submission")
		}
	case err != nil:
		return utils.SendInternalServerError(c, "Failed to grade submission")
	}

	return utils.SendSuccess(c, result, "")
}

// HandleRevealHint charges one energy for the hint at :index.
func (w *WebApp) HandleRevealHint(c *fiber.Ctx) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Authentication required")
	}

	challengeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.SendBadRequest(c, "Invalid challenge id", nil)
	}
	index, err := c.ParamsInt("index")
	if err != nil {
		return utils.SendBadRequest(c, "Invalid hint index", nil)
	}

	hint, remaining, err := w.Challenges.RevealHint(c.Context(), userID, challengeID, index)
	switch {
	case errors.Is(err, repositories.ErrChallengeNotFound):
		return utils.SendNotFound(c, "Challenge not found")
	case errors.Is(err, services.ErrHintNotFound):
		return utils.SendNotFound(c, "Hint not found")
	case errors.Is(err, repositories.ErrInsufficientEnergy):
		return utils.SendPaymentRequired(c, "Not enough energy")
	case err != nil:
		return utils.SendInternalServerError(c, "Failed to reveal hint")
	}

	return utils.SendSuccess(c, fiber.Map{
		"hint":             hint,
		"energy_remaining": remaining,
	}, "")
}

// HandleDailyChallenge returns today's pinned challenge and whether the
// caller already solved it.
func (w *WebApp) HandleDailyChallenge(c *fiber.Ctx) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Authentication required")
	}

	challenge, err := w.Challenges.Daily(c.Context())
	if errors.Is(err, repositories.ErrChallengeNotFound) {
		return utils.SendNotFound(c, "No challenges available")
	}
	if err != nil {
		return utils.SendInternalServerError(c, "Failed to load daily challenge")
	}

	completed, err := w.Tracker.DailyCompleted(c.Context(), userID, timeNowUTC())
	if err != nil {
		return utils.SendInternalServerError(c, "Failed to load daily progress")
	}

	return utils.SendSuccess(c, fiber.Map{
		"challenge": toChallengeDTO(challenge),
		"completed": completed,
	}, "")
}

// HandlePracticeRun executes code in the sandbox. No auth, no energy.
func (w *WebApp) HandlePracticeRun(c *fiber.Ctx) error {
	var req webmodels.PracticeRunRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}
	if req.Code == "" {
		return utils.SendBadRequest(c, "Code is required", nil)
	}

	result, err := w.Challenges.Practice(c.Context(), req.Code)
	if err != nil {
		return utils.SendInternalServerError(c, "Failed to run code")
	}
	return utils.SendSuccess(c, result, "")
}
