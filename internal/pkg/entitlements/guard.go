package entitlements

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"github.com/VeliorGroup/car-rental-sub003/app/repository"
)

// ResourceKind names a plan-limited resource. The values match the plan
// limit column keys.
type ResourceKind string

const (
	ResourceVehicles  ResourceKind = "maxVehicles"
	ResourceUsers     ResourceKind = "maxUsers"
	ResourceLocations ResourceKind = "maxLocations"
)

// Label returns the human-readable resource name used in limit messages.
func (k ResourceKind) Label() string {
	switch k {
	case ResourceVehicles:
		return "vehicles"
	case ResourceUsers:
		return "users"
	case ResourceLocations:
		return "locations"
	default:
		return string(k)
	}
}

// LimitError is the Forbidden-style error raised when a tenant may not
// create another resource of the given kind.
type LimitError struct {
	Kind    ResourceKind
	Message string
}

func (e *LimitError) Error() string {
	return e.Message
}

// IsLimitError reports whether err is an entitlement denial.
func IsLimitError(err error) bool {
	var le *LimitError
	return errors.As(err, &le)
}

func limitReached(kind ResourceKind) *LimitError {
	return &LimitError{Kind: kind, Message: fmt.Sprintf("plan limit reached for %s", kind.Label())}
}

func noSubscription(kind ResourceKind) *LimitError {
	return &LimitError{Kind: kind, Message: "no active subscription"}
}

// Guard answers whether a tenant may create one more resource of a kind
// under its plan limits.
type Guard struct {
	subs      repository.SubscriptionRepository
	plans     repository.PlanRepository
	resources repository.ResourceCountRepository
	db        *gorm.DB
}

// NewGuard creates a guard from injected repositories. Reserve is only
// available on guards built with NewGuardFromDB.
func NewGuard(
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	resources repository.ResourceCountRepository,
) *Guard {
	return &Guard{subs: subs, plans: plans, resources: resources}
}

// NewGuardFromDB creates a guard backed by a GORM DB handle.
func NewGuardFromDB(db *gorm.DB) *Guard {
	return &Guard{
		subs:      repository.NewSubscriptionRepository(db),
		plans:     repository.NewPlanRepository(db),
		resources: repository.NewResourceCountRepository(db),
		db:        db,
	}
}

// CheckLimit reports whether the tenant may create one more resource of the
// given kind. A tenant without a subscription, or with a non-entitling one,
// may create nothing gated by this guard.
//
// The check is advisory: it is not transactional with a subsequent create.
// Callers that must not overshoot the limit should use Reserve.
func (g *Guard) CheckLimit(ctx context.Context, tenantID uint, kind ResourceKind) (bool, error) {
	_ = ctx
	sub, err := g.subs.GetByTenantID(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if !sub.IsEntitling() {
		return false, nil
	}

	plan, err := g.plans.GetByID(sub.PlanID)
	if err != nil {
		return false, err
	}
	limit := plan.Limit(string(kind))
	if limit >= models.UnlimitedLimit {
		return true, nil
	}

	count, err := g.count(g.resources, tenantID, kind)
	if err != nil {
		return false, err
	}
	return count < int64(limit), nil
}

// Require is CheckLimit with Forbidden semantics: it returns a LimitError
// carrying the user-facing message when the tenant may not create the
// resource, and nil when it may.
func (g *Guard) Require(ctx context.Context, tenantID uint, kind ResourceKind) error {
	sub, err := g.subs.GetByTenantID(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return noSubscription(kind)
		}
		return err
	}
	if !sub.IsEntitling() {
		return noSubscription(kind)
	}

	allowed, err := g.CheckLimit(ctx, tenantID, kind)
	if err != nil {
		return err
	}
	if !allowed {
		return limitReached(kind)
	}
	return nil
}

// Reserve closes the check-then-act race: it locks the tenant's
// subscription row, re-counts inside the same transaction, and only then
// runs the create callback. Two concurrent reservations serialize on the
// row lock, so they cannot jointly exceed the limit.
func (g *Guard) Reserve(ctx context.Context, tenantID uint, kind ResourceKind, create func(tx *gorm.DB) error) error {
	if g.db == nil {
		return errors.New("entitlements: Reserve requires a DB-backed guard")
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ?", tenantID).First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return noSubscription(kind)
			}
			return err
		}
		if !sub.IsEntitling() {
			return noSubscription(kind)
		}

		plan, err := repository.NewPlanRepository(tx).GetByID(sub.PlanID)
		if err != nil {
			return err
		}
		limit := plan.Limit(string(kind))
		if limit < models.UnlimitedLimit {
			count, err := g.count(repository.NewResourceCountRepository(tx), tenantID, kind)
			if err != nil {
				return err
			}
			if count >= int64(limit) {
				return limitReached(kind)
			}
		}
		return create(tx)
	})
}

func (g *Guard) count(resources repository.ResourceCountRepository, tenantID uint, kind ResourceKind) (int64, error) {
	switch kind {
	case ResourceVehicles:
		return resources.CountVehicles(tenantID)
	case ResourceUsers:
		return resources.CountUsers(tenantID)
	case ResourceLocations:
		return resources.CountLocations(tenantID)
	default:
		return 0, fmt.Errorf("unknown resource kind %q", kind)
	}
}
