package repository

import (
	"time"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"gorm.io/gorm"
)

// referralRepository implements the ReferralRepository interface
type referralRepository struct {
	db *gorm.DB
}

// NewReferralRepository creates a new referral repository instance
func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

// Create creates a referral. The unique index on referred_tenant_id keeps
// one referral record per referred tenant.
func (r *referralRepository) Create(ref *models.Referral) error {
	return r.db.Create(ref).Error
}

// GetByReferredTenantID retrieves the referral pointing at a referred tenant
func (r *referralRepository) GetByReferredTenantID(tenantID uint) (*models.Referral, error) {
	var ref models.Referral
	err := r.db.Where("referred_tenant_id = ?", tenantID).First(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// MarkQualified is the idempotent pending->qualified transition. The WHERE
// clause only matches a still-pending row, so concurrent callers race on the
// UPDATE and exactly one observes RowsAffected > 0.
func (r *referralRepository) MarkQualified(id uint, at time.Time) (bool, error) {
	tx := r.db.Model(&models.Referral{}).
		Where("id = ? AND status = ?", id, models.ReferralStatusPending).
		Updates(map[string]interface{}{
			"status":       models.ReferralStatusQualified,
			"qualified_at": at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// MarkRewarded consumes the n oldest qualified referrals of a referrer by
// advancing them to the terminal rewarded status. Newer qualified rows keep
// counting toward the next milestone.
func (r *referralRepository) MarkRewarded(referrerTenantID uint, n int) error {
	return r.db.Model(&models.Referral{}).
		Where("referrer_tenant_id = ? AND status = ?",
			referrerTenantID, models.ReferralStatusQualified).
		Order("qualified_at").
		Limit(n).
		Update("status", models.ReferralStatusRewarded).Error
}

// CountQualified counts referrals of a referrer that have qualified but not
// yet been consumed by a milestone reward.
func (r *referralRepository) CountQualified(referrerTenantID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Referral{}).
		Where("referrer_tenant_id = ? AND status = ?",
			referrerTenantID, models.ReferralStatusQualified).
		Count(&count).Error
	return count, err
}
