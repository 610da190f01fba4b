package repository

import (
	"time"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"gorm.io/gorm"
)

// apiKeyRepository implements the ApiKeyRepository interface
type apiKeyRepository struct {
	db *gorm.DB
}

// NewApiKeyRepository creates a new API key repository instance
func NewApiKeyRepository(db *gorm.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

// Create persists a freshly issued key record
func (r *apiKeyRepository) Create(key *models.ApiKey) error {
	return r.db.Create(key).Error
}

// GetByID retrieves one key scoped to its owning tenant
func (r *apiKeyRepository) GetByID(tenantID, id uint) (*models.ApiKey, error) {
	var key models.ApiKey
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ListByTenant retrieves all keys of one tenant, newest first
func (r *apiKeyRepository) ListByTenant(tenantID uint) ([]models.ApiKey, error) {
	var keys []models.ApiKey
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// ListActive retrieves the candidate set for secret validation: active,
// non-revoked keys across all tenants. Time-based expiry is checked by the
// caller so it can report it distinctly after a hash match.
func (r *apiKeyRepository) ListActive() ([]models.ApiKey, error) {
	var keys []models.ApiKey
	err := r.db.Where("is_active = ? AND revoked_at IS NULL", true).Find(&keys).Error
	return keys, err
}

// Update saves modified key fields
func (r *apiKeyRepository) Update(key *models.ApiKey) error {
	return r.db.Save(key).Error
}

// Delete hard-deletes a key row, scoped to its owning tenant
func (r *apiKeyRepository) Delete(tenantID, id uint) error {
	return r.db.Unscoped().
		Where("tenant_id = ?", tenantID).
		Delete(&models.ApiKey{}, id).Error
}

// TouchUsage records a successful validation on the key counters
func (r *apiKeyRepository) TouchUsage(id uint, at time.Time) error {
	return r.db.Model(&models.ApiKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_used_at": at,
			"usage_count":  gorm.Expr("usage_count + 1"),
		}).Error
}
