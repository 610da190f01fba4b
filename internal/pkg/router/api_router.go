package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/VeliorGroup/car-rental-sub003/internal/api/v1"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/constants"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/middleware"
)

// ApiRouter installs the public and key-protected v1 API routes.
type ApiRouter struct {
	server *apiv1.APIServer
}

// NewApiRouter creates the API route group around a configured server.
func NewApiRouter(server *apiv1.APIServer) *ApiRouter {
	return &ApiRouter{server: server}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New())
	v1 := api.Group("/v1")

	// Public endpoints
	v1.Get("/ping", h.server.GetPing)
	v1.Get(constants.PlansRoute, h.server.GetPlans)
	v1.Get(constants.PlansRoute+"/:id/price", h.server.GetPlanPrice)

	// Server-to-server endpoints: payment collaborator callback and the
	// signup flow's provisioning calls.
	v1.Post(constants.PaymentWebhookRoute, h.server.PostPaymentSucceeded)
	v1.Post(constants.SubscriptionRoute+"/trial", h.server.PostStartTrial)
	v1.Post(constants.ReferralLinkRoute, h.server.PostLinkReferral)

	// Key-protected tenant endpoints
	protected := v1.Group("", middleware.APIKeyAuthMiddleware(h.server.Keys, ""))
	protected.Get(constants.SubscriptionRoute, h.server.GetSubscription)
	protected.Post(constants.SubscriptionRoute+"/change-plan", h.server.PostChangePlan)
	protected.Get(constants.LimitsRoute, h.server.GetLimit)
	protected.Post(constants.ReferralCodeRoute, h.server.PostReferralCode)

	// Key management requires the key management scope.
	keys := v1.Group(constants.ApiKeysRoute, middleware.APIKeyAuthMiddleware(h.server.Keys, "keys:manage"))
	keys.Post("/", h.server.PostApiKey)
	keys.Get("/", h.server.GetApiKeys)
	keys.Patch("/:id", h.server.PatchApiKey)
	keys.Post("/:id/revoke", h.server.PostRevokeApiKey)
	keys.Post("/:id/regenerate", h.server.PostRegenerateApiKey)
	keys.Delete("/:id", h.server.DeleteApiKey)
}
