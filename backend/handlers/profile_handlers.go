package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/devmasterhq/devmaster/backend/utils"
)

const defaultRankingLimit = 50

// HandleMe returns the caller's profile, energy and progress counters.
func (w *WebApp) HandleMe(c *fiber.Ctx) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Authentication required")
	}
	ctx := c.Context()

	// First contact provisions both rows.
	if err := w.Profiles.Ensure(ctx, userID, ""); err != nil {
		return utils.SendInternalServerError(c, "Failed to load profile")
	}
	if err := w.Ledger.Provision(ctx, userID); err != nil {
		return utils.SendInternalServerError(c, "Failed to provision energy")
	}

	profile, err := w.Profiles.Get(ctx, userID)
	if err != nil {
		return utils.SendInternalServerError(c, "Failed to load profile")
	}
	energyRow, err := w.Ledger.Balance(ctx, userID)
	if err != nil {
		return utils.SendInternalServerError(c, "Failed to load energy")
	}
	summary, err := w.Tracker.Summarize(ctx, userID)
	if err != nil {
		return utils.SendInternalServerError(c, "Failed to load progress")
	}

	return utils.SendSuccess(c, fiber.Map{
		"profile": profile,
		"energy": fiber.Map{
			"current_energy":       energyRow.CurrentEnergy,
			"max_energy":           energyRow.MaxEnergy,
			"last_regeneration_at": energyRow.LastRegenerationAt,
		},
		"progress": summary,
	}, "")
}

// HandleRanking returns the leaderboard ordered by completed challenges.
func (w *WebApp) HandleRanking(c *fiber.Ctx) error {
	limit := defaultRankingLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			return utils.SendBadRequest(c, "Invalid limit", nil)
		}
		limit = parsed
	}

	entries, err := w.Profiles.Ranking(c.Context(), limit)
	if err != nil {
		return utils.SendInternalServerError(c, "Failed to load ranking")
	}
	return utils.SendSuccess(c, entries, "")
}

// HandleAchievements returns every achievement with the caller's unlock
// status.
func (w *WebApp) HandleAchievements(c *fiber.Ctx) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Authentication required")
	}

	list, err := w.Achievements.ListWithStatus(c.Context(), userID)
	if err != nil {
		return utils.SendInternalServerError(c, "Failed to load achievements")
	}
	return utils.SendSuccess(c, list, "")
}
