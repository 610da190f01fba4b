package models

import "time"

// UnlimitedLimit is the sentinel stored in a plan limit column when the plan
// places no cap on that resource.
const UnlimitedLimit = 1000000

// SubscriptionPlan defines a sellable plan with default pricing and
// per-resource limits. Country-specific pricing lives in PlanPricing.
type SubscriptionPlan struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Price        float64   `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	YearlyPrice  float64   `gorm:"type:decimal(10,2);not null;default:0" json:"yearly_price"`
	Currency     string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	MaxVehicles  int       `gorm:"not null;default:0" json:"max_vehicles"`
	MaxUsers     int       `gorm:"not null;default:0" json:"max_users"`
	MaxLocations int       `gorm:"not null;default:0" json:"max_locations"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	SortOrder    int       `gorm:"not null;default:0" json:"sort_order"`
	Features     []Feature `gorm:"many2many:plan_features" json:"features,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PlanPricing overrides a plan's default price for one country. At most one
// row exists per (plan, country); absence means the plan defaults apply.
type PlanPricing struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PlanID      uint      `gorm:"not null;index:ux_plan_pricings_plan_country,unique,priority:1" json:"plan_id"`
	CountryCode string    `gorm:"type:varchar(2);not null;index:ux_plan_pricings_plan_country,unique,priority:2" json:"country_code"`
	Price       float64   `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	YearlyPrice float64   `gorm:"type:decimal(10,2);not null;default:0" json:"yearly_price"`
	Currency    string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Limit returns the plan limit for a resource column name. Unknown kinds are
// treated as zero so callers fail closed.
func (p *SubscriptionPlan) Limit(kind string) int {
	switch kind {
	case "maxVehicles":
		return p.MaxVehicles
	case "maxUsers":
		return p.MaxUsers
	case "maxLocations":
		return p.MaxLocations
	default:
		return 0
	}
}
