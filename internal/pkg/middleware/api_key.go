package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/apikeys"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/tenantcontext"
)

// APIKeyAuthMiddleware authenticates requests carrying a tenant API key and
// stores the resolved tenant context for downstream handlers. requiredScope
// may be empty for endpoints any valid key can reach.
func APIKeyAuthMiddleware(service *apikeys.Service, requiredScope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawSecret := extractAPIKeyFromHeader(c)
		if rawSecret == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		identity, err := service.Validate(c.UserContext(), rawSecret, requiredScope, c.IP())
		if err != nil {
			status, code, message := mapValidationError(err)
			return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
		}

		tenantcontext.Set(c, tenantcontext.TenantContext{
			TenantID:        identity.TenantID,
			ApiKeyID:        identity.ApiKeyID,
			Scopes:          identity.Scopes,
			IsAuthenticated: true,
		})
		return c.Next()
	}
}

func mapValidationError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, apikeys.ErrInvalidKey):
		return fiber.StatusUnauthorized, "unauthorized", "Invalid API key"
	case errors.Is(err, apikeys.ErrKeyExpired):
		return fiber.StatusUnauthorized, "unauthorized", "API key expired"
	case errors.Is(err, apikeys.ErrTenantInactive):
		return fiber.StatusForbidden, "forbidden", "Tenant inactive"
	case errors.Is(err, apikeys.ErrIPNotAllowed):
		return fiber.StatusForbidden, "forbidden", "Client IP not allowed"
	case errors.Is(err, apikeys.ErrInsufficientScope):
		return fiber.StatusForbidden, "forbidden", "Insufficient scope"
	default:
		return fiber.StatusInternalServerError, "internal_server_error", "API key verification failed"
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
