package session

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ManagerMiddleware guards manager-only REST mutations with a recovery token
// holding a manager role. Locals gain the manager's participant id.
func ManagerMiddleware(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := svc.ParseRecoveryToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		if !claims.IsManager {
			return fiber.NewError(fiber.StatusForbidden, "manager role required")
		}

		c.Locals("manager_id", claims.ParticipantID)
		return c.Next()
	}
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
