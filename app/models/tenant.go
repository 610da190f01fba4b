package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	TENANT_STATUS_ACTIVE   = "active"
	TENANT_STATUS_INACTIVE = "inactive"
)

// Tenant is a customer organization. It is the unit of subscription,
// entitlement and resource ownership.
type Tenant struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	Email        string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	CountryCode  string         `gorm:"type:varchar(2);default:''" json:"country_code" validate:"omitempty,len=2"`
	IsActive     bool           `gorm:"default:true;index" json:"is_active"`
	ReferralCode string         `gorm:"type:varchar(12);default:null;uniqueIndex" json:"referral_code,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Tenant) Validate() error {
	v := validator.New()

	return v.Struct(t)
}
