package models

import "time"

// Feature is a named capability flag shown on plan listings and attachable
// to plans via the plan_features join table.
type Feature struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"key"`
	Name        string    `gorm:"type:varchar(150);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PlanFeature is the explicit join row between plans and features.
type PlanFeature struct {
	SubscriptionPlanID uint `gorm:"primaryKey" json:"subscription_plan_id"`
	FeatureID          uint `gorm:"primaryKey" json:"feature_id"`
}
