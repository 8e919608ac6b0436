package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	webmodels "github.com/devmasterhq/devmaster/backend/models"
	"github.com/devmasterhq/devmaster/backend/utils"
	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/devmasterhq/devmaster/devmaster/logger"
	"github.com/devmasterhq/devmaster/devmaster/payments"
)

// HandleCreatePayment creates a hosted checkout for one shop item and
// returns the redirect URL.
func (w *WebApp) HandleCreatePayment(c *fiber.Ctx) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Authentication required")
	}

	var req webmodels.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}

	result, err := w.Reconciler.CreateIntent(c.Context(), userID, models.ItemType(req.ItemType))
	if errors.Is(err, payments.ErrUnknownItem) {
		return utils.SendBadRequest(c, "Unknown item type", nil)
	}
	if err != nil {
		logger.LogError("Checkout creation failed", err, "user_id", userID.String())
		return utils.SendInternalServerError(c, "Payment processor error")
	}

	return utils.SendSuccess(c, result, "")
}

// HandlePaymentWebhook receives processor notifications. The payload is
// untrusted; the reconciler re-fetches the payment before acting. The
// processor expects a 2xx acknowledgement for anything it should stop
// retrying, so every handled notification answers {received: true}.
func (w *WebApp) HandlePaymentWebhook(c *fiber.Ctx) error {
	notificationType := c.Query("type", c.Query("topic"))
	paymentID := c.Query("data.id", c.Query("id"))

	_, err := w.Reconciler.HandleNotification(c.Context(), notificationType, paymentID)
	if err != nil {
		logger.LogError("Webhook processing failed", err,
			"notification_type", notificationType,
			"payment_id", paymentID)
		// Non-2xx makes the processor retry, which is what we want for
		// transient faults.
		return utils.SendInternalServerError(c, "Failed to process notification")
	}

	return c.JSON(fiber.Map{"received": true})
}
