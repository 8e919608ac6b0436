package middleware

import (
	"log/slog"
	"strings"

	"github.com/devmasterhq/devmaster/backend/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthRequired validates the bearer token and resolves it to a user id.
// Tokens are HS256-signed by the identity provider; the subject claim
// carries the user's UUID. The resolved id lands in c.Locals("user_id").
func AuthRequired(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return utils.SendUnauthorized(c, "Authentication required")
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return utils.SendUnauthorized(c, "Invalid authorization header")
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			slog.Debug("Auth required: token rejected", slog.Any("error", err))
			return utils.SendUnauthorized(c, "Invalid or expired token")
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			return utils.SendUnauthorized(c, "Token missing subject")
		}
		userID, err := uuid.Parse(subject)
		if err != nil {
			return utils.SendUnauthorized(c, "Token subject is not a user id")
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

// CronSecretRequired guards internal endpoints triggered by the external
// scheduler.
func CronSecretRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" || c.Get("X-Cron-Secret") != secret {
			slog.Warn("Cron endpoint called with bad secret",
				slog.String("path", c.Path()),
				slog.String("ip", c.IP()))
			return utils.SendUnauthorized(c, "Invalid cron secret")
		}
		return c.Next()
	}
}
