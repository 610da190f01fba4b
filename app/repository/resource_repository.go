package repository

import (
	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"gorm.io/gorm"
)

// resourceCountRepository implements the ResourceCountRepository interface.
// Soft-deleted rows are excluded by GORM's default scope, so counts reflect
// live resources only.
type resourceCountRepository struct {
	db *gorm.DB
}

// NewResourceCountRepository creates a new resource count repository instance
func NewResourceCountRepository(db *gorm.DB) ResourceCountRepository {
	return &resourceCountRepository{db: db}
}

// CountVehicles counts live vehicles owned by a tenant
func (r *resourceCountRepository) CountVehicles(tenantID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Vehicle{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, err
}

// CountUsers counts live member accounts of a tenant
func (r *resourceCountRepository) CountUsers(tenantID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.TenantUser{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, err
}

// CountLocations counts live rental locations of a tenant
func (r *resourceCountRepository) CountLocations(tenantID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Location{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, err
}
