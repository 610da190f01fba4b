package apiv1

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/apikeys"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/entitlements"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/plancatalog"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/referral"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/subscription"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/tenantcontext"
)

// APIServer exposes the entitlement core over HTTP. Handlers stay thin:
// they parse, delegate to the services, and map errors.
type APIServer struct {
	Catalog   *plancatalog.Catalog
	Ledger    *subscription.Service
	Guard     *entitlements.Guard
	Keys      *apikeys.Service
	Referrals *referral.Engine
}

// NewAPIServer creates a new API server instance
func NewAPIServer(
	catalog *plancatalog.Catalog,
	ledger *subscription.Service,
	guard *entitlements.Guard,
	keys *apikeys.Service,
	referrals *referral.Engine,
) *APIServer {
	return &APIServer{Catalog: catalog, Ledger: ledger, Guard: guard, Keys: keys, Referrals: referrals}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// GetPlans lists active plans with pricing localized to the country query
// parameter, if given.
func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	views, err := s.Catalog.ListPlans(c.UserContext(), c.Query("country"))
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"plans": views})
}

// GetPlanPrice resolves the localized price of one plan for a country and
// billing interval.
func (s *APIServer) GetPlanPrice(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "invalid plan id")
	}

	price, err := s.Catalog.ResolvePrice(c.UserContext(), uint(id), c.Query("country"), c.Query("interval"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Plan not found")
		}
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(price)
}

type startTrialRequest struct {
	TenantID uint `json:"tenant_id"`
	PlanID   uint `json:"plan_id"`
}

// PostStartTrial creates a trial subscription for a freshly provisioned
// tenant. Called server-to-server by the signup flow.
func (s *APIServer) PostStartTrial(c *fiber.Ctx) error {
	var req startTrialRequest
	if err := c.BodyParser(&req); err != nil || req.TenantID == 0 || req.PlanID == 0 {
		return badRequest(c, "tenant_id and plan_id are required")
	}

	sub, err := s.Ledger.StartTrial(c.UserContext(), req.TenantID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return notFound(c, "Plan not found")
		case errors.Is(err, subscription.ErrPlanInactive):
			return badRequest(c, "Plan is not active")
		case errors.Is(err, subscription.ErrAlreadySubscribed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "conflict", "message": "Tenant already has a subscription",
			})
		}
		return internalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// GetSubscription returns the authenticated tenant's subscription.
func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	tenantID := tenantcontext.TenantID(c)
	sub, err := s.Ledger.GetSubscription(c.UserContext(), tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "No subscription for tenant")
		}
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(sub)
}

type changePlanRequest struct {
	PlanID   uint   `json:"plan_id"`
	Interval string `json:"interval"`
}

// PostChangePlan reassigns the authenticated tenant's subscription plan.
func (s *APIServer) PostChangePlan(c *fiber.Ctx) error {
	var req changePlanRequest
	if err := c.BodyParser(&req); err != nil || req.PlanID == 0 {
		return badRequest(c, "plan_id is required")
	}

	sub, err := s.Ledger.ChangePlan(c.UserContext(), tenantcontext.TenantID(c), req.PlanID, req.Interval)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return notFound(c, "Plan or subscription not found")
		case errors.Is(err, subscription.ErrPlanInactive):
			return badRequest(c, "Plan is not active")
		}
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(sub)
}

type paymentSucceededRequest struct {
	TenantID uint `json:"tenant_id"`
}

// PostPaymentSucceeded is the entry point for the payment collaborator's
// "charge confirmed" signal. Safe to deliver more than once.
func (s *APIServer) PostPaymentSucceeded(c *fiber.Ctx) error {
	var req paymentSucceededRequest
	if err := c.BodyParser(&req); err != nil || req.TenantID == 0 {
		return badRequest(c, "tenant_id is required")
	}

	if err := s.Ledger.OnPaymentSucceeded(c.UserContext(), req.TenantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "No subscription for tenant")
		}
		return internalError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetLimit answers whether the authenticated tenant may create one more
// resource of the kind named in the query parameter.
func (s *APIServer) GetLimit(c *fiber.Ctx) error {
	kind, ok := parseResourceKind(c.Query("resource"))
	if !ok {
		return badRequest(c, "resource must be one of vehicles, users, locations")
	}

	err := s.Guard.Require(c.UserContext(), tenantcontext.TenantID(c), kind)
	if err != nil {
		if entitlements.IsLimitError(err) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden", "message": err.Error(), "allowed": false,
			})
		}
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"allowed": true})
}

// PostReferralCode issues (or returns) the authenticated tenant's referral
// code.
func (s *APIServer) PostReferralCode(c *fiber.Ctx) error {
	code, err := s.Referrals.IssueCode(c.UserContext(), tenantcontext.TenantID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Tenant not found")
		}
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"referral_code": code})
}

type linkReferralRequest struct {
	Code     string `json:"code"`
	TenantID uint   `json:"tenant_id"`
}

// PostLinkReferral records that a new tenant signed up with a referral code.
// Called server-to-server by the signup flow.
func (s *APIServer) PostLinkReferral(c *fiber.Ctx) error {
	var req linkReferralRequest
	if err := c.BodyParser(&req); err != nil || req.Code == "" || req.TenantID == 0 {
		return badRequest(c, "code and tenant_id are required")
	}

	ref, err := s.Referrals.Link(c.UserContext(), req.Code, req.TenantID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return notFound(c, "Referral code not found")
		case errors.Is(err, referral.ErrSelfReferral):
			return badRequest(c, "Tenant cannot redeem its own code")
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "conflict", "message": "Tenant is already linked to a referrer",
			})
		}
		return internalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ref)
}

type issueKeyRequest struct {
	Name       string     `json:"name"`
	Scopes     []string   `json:"scopes"`
	ExpiresAt  *time.Time `json:"expires_at"`
	AllowedIPs []string   `json:"allowed_ips"`
	RateLimit  int        `json:"rate_limit"`
}

// PostApiKey issues a new API key. The plaintext secret appears in this
// response and nowhere else, ever.
func (s *APIServer) PostApiKey(c *fiber.Ctx) error {
	var req issueKeyRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return badRequest(c, "name is required")
	}

	tc := tenantcontext.Get(c)
	key, secret, err := s.Keys.Issue(c.UserContext(), apikeys.IssueInput{
		TenantID:   tc.TenantID,
		Name:       req.Name,
		Scopes:     req.Scopes,
		ExpiresAt:  req.ExpiresAt,
		AllowedIPs: req.AllowedIPs,
		RateLimit:  req.RateLimit,
	})
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"api_key": key, "secret": secret})
}

// GetApiKeys lists the authenticated tenant's keys (previews only).
func (s *APIServer) GetApiKeys(c *fiber.Ctx) error {
	keys, err := s.Keys.List(c.UserContext(), tenantcontext.TenantID(c))
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"api_keys": keys})
}

type updateKeyRequest struct {
	Name       *string    `json:"name"`
	Scopes     []string   `json:"scopes"`
	ExpiresAt  *time.Time `json:"expires_at"`
	AllowedIPs []string   `json:"allowed_ips"`
	RateLimit  *int       `json:"rate_limit"`
	IsActive   *bool      `json:"is_active"`
}

// PatchApiKey updates the mutable fields of one key.
func (s *APIServer) PatchApiKey(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "invalid key id")
	}
	var req updateKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	key, err := s.Keys.Update(c.UserContext(), tenantcontext.TenantID(c), uint(id), apikeys.UpdateInput{
		Name:       req.Name,
		Scopes:     req.Scopes,
		ExpiresAt:  req.ExpiresAt,
		AllowedIPs: req.AllowedIPs,
		RateLimit:  req.RateLimit,
		IsActive:   req.IsActive,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "API key not found")
		}
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(key)
}

// PostRevokeApiKey soft-disables one key.
func (s *APIServer) PostRevokeApiKey(c *fiber.Ctx) error {
	return s.keyAction(c, func(tenantID, id uint) error {
		return s.Keys.Revoke(c.UserContext(), tenantID, id, 0)
	})
}

// DeleteApiKey hard-deletes one key.
func (s *APIServer) DeleteApiKey(c *fiber.Ctx) error {
	return s.keyAction(c, func(tenantID, id uint) error {
		return s.Keys.Remove(c.UserContext(), tenantID, id, 0)
	})
}

// PostRegenerateApiKey swaps in fresh secret material and returns the new
// plaintext once.
func (s *APIServer) PostRegenerateApiKey(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "invalid key id")
	}

	key, secret, err := s.Keys.Regenerate(c.UserContext(), tenantcontext.TenantID(c), uint(id), 0)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "API key not found")
		}
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"api_key": key, "secret": secret})
}

func (s *APIServer) keyAction(c *fiber.Ctx, action func(tenantID, id uint) error) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "invalid key id")
	}
	if err := action(tenantcontext.TenantID(c), uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "API key not found")
		}
		return internalError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseResourceKind(raw string) (entitlements.ResourceKind, bool) {
	switch raw {
	case "vehicles":
		return entitlements.ResourceVehicles, true
	case "users":
		return entitlements.ResourceUsers, true
	case "locations":
		return entitlements.ResourceLocations, true
	default:
		return "", false
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": message})
}

func internalError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
}
