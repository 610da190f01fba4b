package tenantcontext

import "github.com/gofiber/fiber/v2"

// Shared Locals keys used across handlers and middlewares
const (
	ContextKey  = "TENANT_CONTEXT"
	KeyTenantID = "tenant_id"
	KeyApiKeyID = "api_key_id"
)

// TenantContext is the explicit per-request tenant identity resolved by the
// API key middleware. Handlers receive it as a value instead of reaching
// into ambient request state.
type TenantContext struct {
	TenantID        uint     `json:"tenant_id"`
	ApiKeyID        uint     `json:"api_key_id"`
	Scopes          []string `json:"scopes"`
	IsAuthenticated bool     `json:"is_authenticated"`
}

// Get retrieves the tenant context from fiber context.
// Returns an unauthenticated context if none is set.
func Get(c *fiber.Ctx) TenantContext {
	if ctx := c.Locals(ContextKey); ctx != nil {
		return ctx.(TenantContext)
	}
	return TenantContext{IsAuthenticated: false}
}

// Set stores the tenant context on the request.
func Set(c *fiber.Ctx, tc TenantContext) {
	c.Locals(ContextKey, tc)
	c.Locals(KeyTenantID, tc.TenantID)
	c.Locals(KeyApiKeyID, tc.ApiKeyID)
}

// TenantID returns the current tenant's ID, or 0 if unauthenticated.
func TenantID(c *fiber.Ctx) uint {
	return Get(c).TenantID
}
