package repository

import (
	"time"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"gorm.io/gorm"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Create creates a subscription. The unique index on tenant_id enforces the
// one-subscription-per-tenant invariant.
func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

// GetByTenantID retrieves the subscription owned by a tenant
func (r *subscriptionRepository) GetByTenantID(tenantID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("tenant_id = ?", tenantID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Update saves modified subscription fields
func (r *subscriptionRepository) Update(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

// UpdateStatusIfNot performs the conditional status flip that keeps payment
// activation idempotent: the UPDATE only matches rows not already in the
// target status, and RowsAffected tells the caller whether it won.
func (r *subscriptionRepository) UpdateStatusIfNot(tenantID uint, target string, periodStart, periodEnd time.Time) (bool, error) {
	tx := r.db.Model(&models.Subscription{}).
		Where("tenant_id = ? AND status <> ?", tenantID, target).
		Updates(map[string]interface{}{
			"status":               target,
			"current_period_start": periodStart,
			"current_period_end":   periodEnd,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ExtendPeriodEnd pushes the current period boundary forward by a duration.
// The arithmetic happens inside the UPDATE, so concurrent extensions for the
// same tenant stack instead of overwriting each other.
func (r *subscriptionRepository) ExtendPeriodEnd(tenantID uint, by time.Duration) error {
	tx := r.db.Model(&models.Subscription{}).
		Where("tenant_id = ?", tenantID).
		Update("current_period_end",
			gorm.Expr("DATE_ADD(current_period_end, INTERVAL ? SECOND)", int64(by.Seconds())))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
