package repository

import (
	"time"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"gorm.io/gorm"
)

// TenantRepository defines the interface for tenant-related database operations
type TenantRepository interface {
	Create(tenant *models.Tenant) error
	GetByID(id uint) (*models.Tenant, error)
	GetByEmail(email string) (*models.Tenant, error)
	GetByReferralCode(code string) (*models.Tenant, error)
	SetReferralCode(id uint, code string) error
	Update(tenant *models.Tenant) error
	List(offset, limit int) ([]models.Tenant, error)
	Count() (int64, error)
}

// PlanRepository defines the interface for plan and pricing operations
type PlanRepository interface {
	GetByID(id uint) (*models.SubscriptionPlan, error)
	ListActive() ([]models.SubscriptionPlan, error)
	GetPricing(planID uint, countryCode string) (*models.PlanPricing, error)
	ListPricingByCountry(countryCode string) ([]models.PlanPricing, error)
}

// SubscriptionRepository defines the interface for subscription operations
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	GetByTenantID(tenantID uint) (*models.Subscription, error)
	Update(sub *models.Subscription) error
	// UpdateStatusIfNot flips the status only when the row is not already in
	// the target status. Returns true when this call won the transition.
	UpdateStatusIfNot(tenantID uint, target string, periodStart, periodEnd time.Time) (bool, error)
	ExtendPeriodEnd(tenantID uint, by time.Duration) error
}

// ReferralRepository defines the interface for referral operations
type ReferralRepository interface {
	Create(ref *models.Referral) error
	GetByReferredTenantID(tenantID uint) (*models.Referral, error)
	// MarkQualified transitions a pending referral to qualified. Returns true
	// only when this call performed the transition, so concurrent or repeated
	// qualification attempts cannot double-count.
	MarkQualified(id uint, at time.Time) (bool, error)
	// MarkRewarded consumes the n oldest qualified referrals of a referrer
	// by moving them to the terminal rewarded status.
	MarkRewarded(referrerTenantID uint, n int) error
	// CountQualified counts referrals that have qualified but not yet been
	// consumed by a milestone reward.
	CountQualified(referrerTenantID uint) (int64, error)
}

// ApiKeyRepository defines the interface for API key operations
type ApiKeyRepository interface {
	Create(key *models.ApiKey) error
	GetByID(tenantID, id uint) (*models.ApiKey, error)
	ListByTenant(tenantID uint) ([]models.ApiKey, error)
	// ListActive returns every non-revoked, active key across tenants, the
	// candidate set for secret validation.
	ListActive() ([]models.ApiKey, error)
	Update(key *models.ApiKey) error
	Delete(tenantID, id uint) error
	TouchUsage(id uint, at time.Time) error
}

// ResourceCountRepository counts live tenant-owned rows for limit checks
type ResourceCountRepository interface {
	CountVehicles(tenantID uint) (int64, error)
	CountUsers(tenantID uint) (int64, error)
	CountLocations(tenantID uint) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Tenant       TenantRepository
	Plan         PlanRepository
	Subscription SubscriptionRepository
	Referral     ReferralRepository
	ApiKey       ApiKeyRepository
	Resource     ResourceCountRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tenant:       NewTenantRepository(db),
		Plan:         NewPlanRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Referral:     NewReferralRepository(db),
		ApiKey:       NewApiKeyRepository(db),
		Resource:     NewResourceCountRepository(db),
	}
}
