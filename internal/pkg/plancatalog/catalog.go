package plancatalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"github.com/VeliorGroup/car-rental-sub003/app/repository"
)

const (
	cacheKeyPrefix  = "plans:catalog:"
	cacheKeyDefault = cacheKeyPrefix + "default"

	// CacheTTL bounds how stale a cached catalog can get after a plan or
	// pricing change.
	CacheTTL = 10 * time.Minute
)

// Store is the cache surface the catalog needs. Satisfied by cache.NewStore.
type Store interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
}

// PlanView is a plan with its price already localized for the requested
// country.
type PlanView struct {
	ID           uint     `json:"id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	YearlyPrice  float64  `json:"yearly_price"`
	Currency     string   `json:"currency"`
	MaxVehicles  int      `json:"max_vehicles"`
	MaxUsers     int      `json:"max_users"`
	MaxLocations int      `json:"max_locations"`
	Features     []string `json:"features,omitempty"`
	SortOrder    int      `json:"sort_order"`
}

// PriceView is the localized price of a single plan. Amount is the charge
// for the requested billing interval.
type PriceView struct {
	Price       float64 `json:"price"`
	YearlyPrice float64 `json:"yearly_price"`
	Currency    string  `json:"currency"`
	Amount      float64 `json:"amount"`
}

// Catalog resolves localized plan listings and prices, caching full
// listings per country.
type Catalog struct {
	plans repository.PlanRepository
	store Store
	ttl   time.Duration
}

// NewCatalog creates a plan catalog from an injected repository and cache.
func NewCatalog(plans repository.PlanRepository, store Store) *Catalog {
	return &Catalog{plans: plans, store: store, ttl: CacheTTL}
}

// ListPlans returns all active plans with pricing localized for countryCode.
// The computed listing is cached per country; concurrent cache misses may
// recompute redundantly, which is safe because the computation is pure.
func (c *Catalog) ListPlans(ctx context.Context, countryCode string) ([]PlanView, error) {
	_ = ctx
	key := cacheKey(countryCode)

	if c.store != nil {
		if raw, err := c.store.Get(key); err == nil && raw != "" {
			var views []PlanView
			if err := json.Unmarshal([]byte(raw), &views); err == nil {
				return views, nil
			}
			log.Warnf("[PlanCatalog] discarding unreadable cache entry %s", key)
		}
	}

	views, err := c.computePlans(countryCode)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		if raw, err := json.Marshal(views); err == nil {
			if err := c.store.Set(key, string(raw), c.ttl); err != nil {
				log.Warnf("[PlanCatalog] cache write for %s failed: %v", key, err)
			}
		}
	}
	return views, nil
}

// ResolvePrice returns the localized price of one plan. If a pricing row
// exists for (plan, country) it wins; otherwise the plan defaults apply.
func (c *Catalog) ResolvePrice(ctx context.Context, planID uint, countryCode, interval string) (PriceView, error) {
	_ = ctx
	plan, err := c.plans.GetByID(planID)
	if err != nil {
		return PriceView{}, err
	}

	view := PriceView{Price: plan.Price, YearlyPrice: plan.YearlyPrice, Currency: plan.Currency}
	pricing, err := c.plans.GetPricing(planID, countryCode)
	switch {
	case err == nil:
		view.Price = pricing.Price
		view.YearlyPrice = pricing.YearlyPrice
		view.Currency = pricing.Currency
	case !errors.Is(err, gorm.ErrRecordNotFound):
		// Only a confirmed absence falls back to plan defaults; a failing
		// lookup must not quote the wrong price.
		return PriceView{}, err
	}

	if strings.EqualFold(strings.TrimSpace(interval), models.SubscriptionIntervalYear) {
		view.Amount = view.YearlyPrice
	} else {
		view.Amount = view.Price
	}
	return view, nil
}

func (c *Catalog) computePlans(countryCode string) ([]PlanView, error) {
	plans, err := c.plans.ListActive()
	if err != nil {
		return nil, err
	}

	rows, err := c.plans.ListPricingByCountry(countryCode)
	if err != nil {
		return nil, err
	}
	overrides := make(map[uint]models.PlanPricing, len(rows))
	for _, row := range rows {
		overrides[row.PlanID] = row
	}

	views := make([]PlanView, 0, len(plans))
	for _, plan := range plans {
		view := PlanView{
			ID:           plan.ID,
			Name:         plan.Name,
			Price:        plan.Price,
			YearlyPrice:  plan.YearlyPrice,
			Currency:     plan.Currency,
			MaxVehicles:  plan.MaxVehicles,
			MaxUsers:     plan.MaxUsers,
			MaxLocations: plan.MaxLocations,
			SortOrder:    plan.SortOrder,
		}
		for _, feature := range plan.Features {
			view.Features = append(view.Features, feature.Key)
		}
		if override, ok := overrides[plan.ID]; ok {
			view.Price = override.Price
			view.YearlyPrice = override.YearlyPrice
			view.Currency = override.Currency
		}
		views = append(views, view)
	}
	return views, nil
}

func cacheKey(countryCode string) string {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	if cc == "" {
		return cacheKeyDefault
	}
	return fmt.Sprintf("%s%s", cacheKeyPrefix, cc)
}
