package repository

import (
	"strings"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"gorm.io/gorm"
)

// planRepository implements the PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// GetByID retrieves a plan by its ID
func (r *planRepository) GetByID(id uint) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := r.db.Preload("Features").First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListActive retrieves all active plans ordered for display
func (r *planRepository) ListActive() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := r.db.Preload("Features").
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").Find(&plans).Error
	return plans, err
}

// GetPricing retrieves the localized pricing row for one plan and country
func (r *planRepository) GetPricing(planID uint, countryCode string) (*models.PlanPricing, error) {
	cc := normalizeCountry(countryCode)
	if cc == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var pricing models.PlanPricing
	err := r.db.Where("plan_id = ? AND country_code = ?", planID, cc).First(&pricing).Error
	if err != nil {
		return nil, err
	}
	return &pricing, nil
}

// ListPricingByCountry retrieves every pricing override for one country
func (r *planRepository) ListPricingByCountry(countryCode string) ([]models.PlanPricing, error) {
	cc := normalizeCountry(countryCode)
	if cc == "" {
		return nil, nil
	}
	var rows []models.PlanPricing
	err := r.db.Where("country_code = ?", cc).Find(&rows).Error
	return rows, err
}

func normalizeCountry(countryCode string) string {
	return strings.ToUpper(strings.TrimSpace(countryCode))
}
