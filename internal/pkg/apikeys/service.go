package apikeys

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"github.com/VeliorGroup/car-rental-sub003/app/repository"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/audit"
)

// defaultHashWorkers bounds concurrent bcrypt comparisons so a burst of
// validations cannot monopolize every CPU.
const defaultHashWorkers = 4

// Identity is the authenticated principal resolved from a valid secret.
type Identity struct {
	TenantID uint
	ApiKeyID uint
	Scopes   []string
}

// IssueInput carries everything needed to mint a new key.
type IssueInput struct {
	TenantID    uint
	Name        string
	Scopes      []string
	ExpiresAt   *time.Time
	AllowedIPs  []string
	RateLimit   int
	ActorUserID uint
}

// UpdateInput carries the mutable key fields; nil pointers leave the stored
// value untouched.
type UpdateInput struct {
	Name        *string
	Scopes      []string
	ExpiresAt   *time.Time
	AllowedIPs  []string
	RateLimit   *int
	IsActive    *bool
	ActorUserID uint
}

// Service issues, validates, and revokes tenant API keys.
type Service struct {
	keys      repository.ApiKeyRepository
	tenants   repository.TenantRepository
	auditor   audit.Emitter
	hashSlots chan struct{}
}

// NewService creates a credential service from injected repositories.
func NewService(keys repository.ApiKeyRepository, tenants repository.TenantRepository, auditor audit.Emitter) *Service {
	return &Service{
		keys:      keys,
		tenants:   tenants,
		auditor:   auditor,
		hashSlots: make(chan struct{}, defaultHashWorkers),
	}
}

// NewServiceFromDB creates a credential service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, auditor audit.Emitter) *Service {
	return NewService(repository.NewApiKeyRepository(db), repository.NewTenantRepository(db), auditor)
}

// Issue mints a new key and returns the record together with the plaintext
// secret. This is the only moment the plaintext exists outside memory; only
// its hash and a truncated preview are persisted.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*models.ApiKey, string, error) {
	_ = ctx
	if in.TenantID == 0 || strings.TrimSpace(in.Name) == "" {
		return nil, "", errors.New("tenant_id and name are required")
	}

	secret, preview, err := models.GenerateApiKeySecret()
	if err != nil {
		return nil, "", err
	}
	hash, err := models.HashApiKeySecret(secret)
	if err != nil {
		return nil, "", err
	}

	scopes := in.Scopes
	if len(scopes) == 0 {
		scopes = []string{models.ScopeAll}
	}
	key := &models.ApiKey{
		TenantID:   in.TenantID,
		Name:       strings.TrimSpace(in.Name),
		KeyHash:    hash,
		KeyPreview: preview,
		Scopes:     scopes,
		ExpiresAt:  in.ExpiresAt,
		AllowedIPs: in.AllowedIPs,
		RateLimit:  in.RateLimit,
		IsActive:   true,
	}
	if err := s.keys.Create(key); err != nil {
		return nil, "", err
	}

	s.emit(in.TenantID, key.ID, in.ActorUserID, "apikey.issued", "", audit.Snapshot(key))
	return key, secret, nil
}

// Validate resolves a raw secret to its tenant identity. Because only a
// slow salted hash of each secret is stored, no indexed lookup is possible:
// every active key is a candidate and must be compared individually, so the
// cost grows linearly with the key count. Comparisons run through a bounded
// slot pool to keep a validation burst from starving other requests.
//
// Failures before a hash match are indistinguishable by design; only after
// a match do specific checks (expiry, tenant, IP, scope) run, in that order.
func (s *Service) Validate(ctx context.Context, rawSecret, requiredScope, clientIP string) (*Identity, error) {
	_ = ctx
	if !models.HasApiKeyPrefix(rawSecret) {
		return nil, ErrInvalidKey
	}

	candidates, err := s.keys.ListActive()
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		key := &candidates[i]
		if !s.compareSecret(rawSecret, key.KeyHash) {
			continue
		}

		if key.IsExpired(time.Now()) {
			return nil, ErrKeyExpired
		}
		tenant, err := s.tenants.GetByID(key.TenantID)
		if err != nil {
			return nil, err
		}
		if !tenant.IsActive {
			return nil, ErrTenantInactive
		}
		if clientIP != "" && !key.AllowsIP(clientIP) {
			return nil, ErrIPNotAllowed
		}
		if requiredScope != "" && !key.HasScope(requiredScope) {
			return nil, ErrInsufficientScope
		}

		if err := s.keys.TouchUsage(key.ID, time.Now()); err != nil {
			log.Errorf("[ApiKeys] failed to record usage for key %d: %v", key.ID, err)
		}
		return &Identity{TenantID: key.TenantID, ApiKeyID: key.ID, Scopes: key.Scopes}, nil
	}
	return nil, ErrInvalidKey
}

// List returns a tenant's keys. The stored hash never leaves the
// repository layer; callers see only the preview.
func (s *Service) List(ctx context.Context, tenantID uint) ([]models.ApiKey, error) {
	_ = ctx
	keys, err := s.keys.ListByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		keys[i].KeyHash = ""
	}
	return keys, nil
}

// Update modifies the mutable fields of a key.
func (s *Service) Update(ctx context.Context, tenantID, id uint, in UpdateInput) (*models.ApiKey, error) {
	_ = ctx
	key, err := s.keys.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}

	before := audit.Snapshot(key)
	if in.Name != nil {
		key.Name = strings.TrimSpace(*in.Name)
	}
	if in.Scopes != nil {
		key.Scopes = in.Scopes
	}
	if in.ExpiresAt != nil {
		key.ExpiresAt = in.ExpiresAt
	}
	if in.AllowedIPs != nil {
		key.AllowedIPs = in.AllowedIPs
	}
	if in.RateLimit != nil {
		key.RateLimit = *in.RateLimit
	}
	if in.IsActive != nil {
		key.IsActive = *in.IsActive
	}
	if err := s.keys.Update(key); err != nil {
		return nil, err
	}

	s.emit(tenantID, key.ID, in.ActorUserID, "apikey.updated", before, audit.Snapshot(key))
	return key, nil
}

// Revoke soft-disables a key. The row is kept so usage history survives;
// the key simply stops validating.
func (s *Service) Revoke(ctx context.Context, tenantID, id, actorUserID uint) error {
	_ = ctx
	key, err := s.keys.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	before := audit.Snapshot(key)
	now := time.Now()
	key.IsActive = false
	key.RevokedAt = &now
	if err := s.keys.Update(key); err != nil {
		return err
	}

	s.emit(tenantID, key.ID, actorUserID, "apikey.revoked", before, audit.Snapshot(key))
	return nil
}

// Remove hard-deletes a key row.
func (s *Service) Remove(ctx context.Context, tenantID, id, actorUserID uint) error {
	_ = ctx
	key, err := s.keys.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	if err := s.keys.Delete(tenantID, id); err != nil {
		return err
	}

	s.emit(tenantID, id, actorUserID, "apikey.removed", audit.Snapshot(key), "")
	return nil
}

// Regenerate replaces the stored secret material with a fresh secret and
// returns the new plaintext once. The previous secret becomes permanently
// unverifiable.
func (s *Service) Regenerate(ctx context.Context, tenantID, id, actorUserID uint) (*models.ApiKey, string, error) {
	_ = ctx
	key, err := s.keys.GetByID(tenantID, id)
	if err != nil {
		return nil, "", err
	}

	before := audit.Snapshot(key)
	secret, preview, err := models.GenerateApiKeySecret()
	if err != nil {
		return nil, "", err
	}
	hash, err := models.HashApiKeySecret(secret)
	if err != nil {
		return nil, "", err
	}

	key.KeyHash = hash
	key.KeyPreview = preview
	key.LastUsedAt = nil
	key.UsageCount = 0
	if err := s.keys.Update(key); err != nil {
		return nil, "", err
	}

	s.emit(tenantID, key.ID, actorUserID, "apikey.regenerated", before, audit.Snapshot(key))
	return key, secret, nil
}

// compareSecret runs one bcrypt comparison inside the bounded slot pool.
func (s *Service) compareSecret(secret, hash string) bool {
	s.hashSlots <- struct{}{}
	defer func() { <-s.hashSlots }()
	return models.CheckApiKeySecret(secret, hash)
}

func (s *Service) emit(tenantID, resourceID, actorUserID uint, action, oldValue, newValue string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(audit.Event{
		TenantID:     tenantID,
		Action:       action,
		ResourceType: "api_key",
		ResourceID:   resourceID,
		ActorUserID:  actorUserID,
		OldValue:     oldValue,
		NewValue:     newValue,
	})
}
