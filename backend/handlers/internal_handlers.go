package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/devmasterhq/devmaster/backend/utils"
	"github.com/devmasterhq/devmaster/devmaster/logger"
)

// HandleRegenerateEnergy runs one regeneration sweep. Triggered by the
// external scheduler, guarded by the cron secret middleware.
func (w *WebApp) HandleRegenerateEnergy(c *fiber.Ctx) error {
	regenerated, checked, err := w.Ledger.RegenerateAll(c.Context(), timeNowUTC())
	if err != nil {
		logger.LogError("Regeneration sweep failed", err)
		return utils.SendInternalServerError(c, "Regeneration failed")
	}

	return utils.SendSuccess(c, fiber.Map{
		"regenerated": regenerated,
		"checked":     checked,
	}, "")
}
