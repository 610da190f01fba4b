package models

import "time"

const (
	ReferralStatusPending   = "pending"
	ReferralStatusQualified = "qualified"
	ReferralStatusRewarded  = "rewarded"
)

// RewardMilestone is the number of qualified referrals that earns the
// referrer one free year of subscription time.
const RewardMilestone = 5

// Referral links a referred tenant back to the tenant whose code was used
// at signup. One row exists per referred tenant; status only moves forward
// (pending -> qualified -> rewarded).
type Referral struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ReferrerTenantID uint       `gorm:"not null;index" json:"referrer_tenant_id"`
	ReferredTenantID uint       `gorm:"not null;uniqueIndex" json:"referred_tenant_id"`
	Status           string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	QualifiedAt      *time.Time `gorm:"type:timestamp;default:null" json:"qualified_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
