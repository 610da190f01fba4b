package models

import "time"

const (
	SubscriptionIntervalMonth = "month"
	SubscriptionIntervalYear  = "year"
)

const (
	SubscriptionStatusTrial    = "trial"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// TrialPeriod is how long a fresh subscription stays in trial before the
// first successful payment.
const TrialPeriod = 14 * 24 * time.Hour

// Subscription is the one-to-one billing state of a tenant. A tenant has
// exactly zero or one row here; status moves forward only, except explicit
// plan reassignment which leaves status untouched.
type Subscription struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	TenantID           uint       `gorm:"not null;uniqueIndex" json:"tenant_id"`
	PlanID             uint       `gorm:"not null;index" json:"plan_id"`
	Status             string     `gorm:"type:varchar(32);not null;default:'trial';index" json:"status"`
	BillingInterval    string     `gorm:"type:varchar(16);not null;default:'month'" json:"billing_interval"`
	CurrentPeriodStart time.Time  `gorm:"type:timestamp;not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `gorm:"type:timestamp;not null" json:"current_period_end"`
	TrialEndsAt        *time.Time `gorm:"type:timestamp;default:null" json:"trial_ends_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEntitling reports whether the subscription currently grants plan
// entitlements.
func (s *Subscription) IsEntitling() bool {
	switch s.Status {
	case SubscriptionStatusTrial, SubscriptionStatusActive, SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// PeriodLength returns the duration of one billing period for the stored
// interval.
func (s *Subscription) PeriodLength() time.Duration {
	if s.BillingInterval == SubscriptionIntervalYear {
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}
