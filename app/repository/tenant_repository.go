package repository

import (
	"strings"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"gorm.io/gorm"
)

// tenantRepository implements the TenantRepository interface
type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository instance
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

// Create creates a new tenant in the database
func (r *tenantRepository) Create(tenant *models.Tenant) error {
	return r.db.Create(tenant).Error
}

// GetByID retrieves a tenant by its ID
func (r *tenantRepository) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.First(&tenant, id).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetByEmail retrieves a tenant by its contact email
func (r *tenantRepository) GetByEmail(email string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.Where("email = ?", strings.TrimSpace(email)).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetByReferralCode retrieves a tenant by its unique referral code
func (r *tenantRepository) GetByReferralCode(code string) (*models.Tenant, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var tenant models.Tenant
	err := r.db.Where("referral_code = ?", trimmed).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// SetReferralCode stores a freshly generated referral code on the tenant.
// The unique index on referral_code rejects collisions.
func (r *tenantRepository) SetReferralCode(id uint, code string) error {
	return r.db.Model(&models.Tenant{}).Where("id = ?", id).
		Update("referral_code", code).Error
}

// Update saves modified tenant fields
func (r *tenantRepository) Update(tenant *models.Tenant) error {
	return r.db.Save(tenant).Error
}

// List retrieves tenants with pagination
func (r *tenantRepository) List(offset, limit int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.Offset(offset).Limit(limit).Order("id ASC").Find(&tenants).Error
	return tenants, err
}

// Count returns the total number of tenants
func (r *tenantRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Tenant{}).Count(&count).Error
	return count, err
}
