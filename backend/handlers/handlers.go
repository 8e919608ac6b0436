package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/devmasterhq/devmaster/backend/middleware"
	webmodels "github.com/devmasterhq/devmaster/backend/models"
	"github.com/devmasterhq/devmaster/devmaster"
	"github.com/devmasterhq/devmaster/devmaster/database"
	"github.com/devmasterhq/devmaster/devmaster/database/repositories"
	"github.com/devmasterhq/devmaster/devmaster/energy"
	"github.com/devmasterhq/devmaster/devmaster/payments"
	"github.com/devmasterhq/devmaster/devmaster/progress"
	"github.com/devmasterhq/devmaster/devmaster/services"
)

// WebApp represents the API application with all dependencies
type WebApp struct {
	Config       *devmaster.Config
	DB           *database.DB
	Challenges   *services.ChallengeService
	Ledger       *energy.Ledger
	Tracker      *progress.Tracker
	Reconciler   *payments.Reconciler
	Profiles     repositories.ProfileRepository
	Achievements repositories.AchievementRepository
	Version      string
}

// RegisterRoutes mounts every endpoint on the Fiber app.
func (w *WebApp) RegisterRoutes(app *fiber.App) {
	app.Get("/health", w.HandleHealth)

	api := app.Group("/api")

	// Webhook and practice runs carry no user token.
	webhookLimit := middleware.WebhookRateLimit()
	api.Get("/webhooks/mercadopago", webhookLimit, w.HandlePaymentWebhook)
	api.Post("/webhooks/mercadopago", webhookLimit, w.HandlePaymentWebhook)
	api.Post("/practice/run", middleware.PracticeRateLimit(), w.HandlePracticeRun)

	authed := api.Group("", middleware.AuthRequired(w.Config.Auth.JWTSecret))
	authed.Get("/challenges", w.HandleListChallenges)
	authed.Get("/challenges/:id", w.HandleGetChallenge)
	authed.Post("/challenges/:id/hints/:index", w.HandleRevealHint)
	authed.Get("/daily", w.HandleDailyChallenge)
	authed.Post("/validate-code", w.HandleValidateCode)
	authed.Get("/me", w.HandleMe)
	authed.Get("/ranking", w.HandleRanking)
	authed.Get("/achievements", w.HandleAchievements)
	authed.Post("/payments/create", w.HandleCreatePayment)

	internal := app.Group("/internal", middleware.CronSecretRequired(w.Config.Energy.CronSecret))
	internal.Post("/regenerate-energy", w.HandleRegenerateEnergy)
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}

// HandleHealth reports process and database health.
func (w *WebApp) HandleHealth(c *fiber.Ctx) error {
	health := webmodels.NewHealthCheck(w.Version)
	if err := w.DB.Ping(c.Context()); err != nil {
		health.AddComponent("database", "unhealthy", err.Error())
	} else {
		health.AddComponent("database", "healthy", "")
	}
	status := fiber.StatusOK
	if health.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(health)
}
