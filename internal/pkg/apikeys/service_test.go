package apikeys

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
)

type fakeKeyRepo struct {
	mu     sync.Mutex
	nextID uint
	keys   map[uint]*models.ApiKey
}

func newFakeKeyRepo() *fakeKeyRepo {
	return &fakeKeyRepo{nextID: 1, keys: make(map[uint]*models.ApiKey)}
}

func (f *fakeKeyRepo) Create(key *models.ApiKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key.ID = f.nextID
	f.nextID++
	stored := *key
	f.keys[key.ID] = &stored
	return nil
}

func (f *fakeKeyRepo) GetByID(tenantID, id uint) (*models.ApiKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[id]
	if !ok || key.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *key
	return &copy, nil
}

func (f *fakeKeyRepo) ListByTenant(tenantID uint) ([]models.ApiKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []models.ApiKey
	for _, key := range f.keys {
		if key.TenantID == tenantID {
			keys = append(keys, *key)
		}
	}
	return keys, nil
}

func (f *fakeKeyRepo) ListActive() ([]models.ApiKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []models.ApiKey
	for _, key := range f.keys {
		if key.IsActive && key.RevokedAt == nil {
			keys = append(keys, *key)
		}
	}
	return keys, nil
}

func (f *fakeKeyRepo) Update(key *models.ApiKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[key.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *key
	f.keys[key.ID] = &stored
	return nil
}

func (f *fakeKeyRepo) Delete(tenantID, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[id]
	if !ok || key.TenantID != tenantID {
		return gorm.ErrRecordNotFound
	}
	delete(f.keys, id)
	return nil
}

func (f *fakeKeyRepo) TouchUsage(id uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	key.LastUsedAt = &at
	key.UsageCount++
	return nil
}

type fakeTenantRepo struct {
	tenants map[uint]*models.Tenant
}

func (f *fakeTenantRepo) Create(tenant *models.Tenant) error { return nil }

func (f *fakeTenantRepo) GetByID(id uint) (*models.Tenant, error) {
	tenant, ok := f.tenants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return tenant, nil
}

func (f *fakeTenantRepo) GetByEmail(email string) (*models.Tenant, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTenantRepo) GetByReferralCode(code string) (*models.Tenant, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTenantRepo) SetReferralCode(id uint, code string) error { return nil }
func (f *fakeTenantRepo) Update(tenant *models.Tenant) error         { return nil }
func (f *fakeTenantRepo) List(offset, limit int) ([]models.Tenant, error) {
	return nil, nil
}
func (f *fakeTenantRepo) Count() (int64, error) { return 0, nil }

func newTestService() (*Service, *fakeKeyRepo, *fakeTenantRepo) {
	keys := newFakeKeyRepo()
	tenants := &fakeTenantRepo{tenants: map[uint]*models.Tenant{
		1: {ID: 1, Name: "Acme Rentals", IsActive: true},
	}}
	return NewService(keys, tenants, nil), keys, tenants
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	service, _, _ := newTestService()

	key, secret, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy"})
	require.NoError(t, err)
	assert.True(t, models.HasApiKeyPrefix(secret))
	assert.NotContains(t, key.KeyHash, secret, "plaintext must not be stored")
	assert.Equal(t, []string{models.ScopeAll}, key.Scopes, "scopes default to all access")

	identity, err := service.Validate(context.Background(), secret, "", "")
	require.NoError(t, err)
	assert.Equal(t, uint(1), identity.TenantID)
	assert.Equal(t, key.ID, identity.ApiKeyID)
}

func TestValidateRejectsMalformedSecret(t *testing.T) {
	service, _, _ := newTestService()

	_, err := service.Validate(context.Background(), "not-a-key", "", "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = service.Validate(context.Background(), "", "", "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestValidateRejectsUnknownSecret(t *testing.T) {
	service, _, _ := newTestService()

	_, _, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy"})
	require.NoError(t, err)

	// Well-formed but never issued.
	fake, _, err := models.GenerateApiKeySecret()
	require.NoError(t, err)

	_, err = service.Validate(context.Background(), fake, "", "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestValidateRejectsRevokedKey(t *testing.T) {
	service, _, _ := newTestService()

	key, secret, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy"})
	require.NoError(t, err)
	require.NoError(t, service.Revoke(context.Background(), 1, key.ID, 0))

	// Revoked keys drop out of the candidate set, so the failure is the
	// generic one.
	_, err = service.Validate(context.Background(), secret, "", "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestValidateReportsExpiryAfterMatch(t *testing.T) {
	service, _, _ := newTestService()

	past := time.Now().Add(-time.Hour)
	_, secret, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy", ExpiresAt: &past})
	require.NoError(t, err)

	_, err = service.Validate(context.Background(), secret, "", "")
	assert.ErrorIs(t, err, ErrKeyExpired)
}

func TestValidateRejectsInactiveTenant(t *testing.T) {
	service, _, tenants := newTestService()

	_, secret, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy"})
	require.NoError(t, err)

	tenants.tenants[1].IsActive = false
	_, err = service.Validate(context.Background(), secret, "", "")
	assert.ErrorIs(t, err, ErrTenantInactive)
}

func TestValidateEnforcesIPAllowlist(t *testing.T) {
	service, _, _ := newTestService()

	_, secret, err := service.Issue(context.Background(), IssueInput{
		TenantID: 1, Name: "deploy", AllowedIPs: []string{"10.0.0.1"},
	})
	require.NoError(t, err)

	_, err = service.Validate(context.Background(), secret, "", "192.168.1.1")
	assert.ErrorIs(t, err, ErrIPNotAllowed)

	identity, err := service.Validate(context.Background(), secret, "", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, uint(1), identity.TenantID)
}

func TestValidateEnforcesScope(t *testing.T) {
	service, _, _ := newTestService()

	_, secret, err := service.Issue(context.Background(), IssueInput{
		TenantID: 1, Name: "reader", Scopes: []string{"vehicles:read"},
	})
	require.NoError(t, err)

	_, err = service.Validate(context.Background(), secret, "vehicles:write", "")
	assert.ErrorIs(t, err, ErrInsufficientScope)

	identity, err := service.Validate(context.Background(), secret, "vehicles:read", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"vehicles:read"}, identity.Scopes)
}

func TestValidateRecordsUsage(t *testing.T) {
	service, keys, _ := newTestService()

	key, secret, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy"})
	require.NoError(t, err)

	_, err = service.Validate(context.Background(), secret, "", "")
	require.NoError(t, err)
	_, err = service.Validate(context.Background(), secret, "", "")
	require.NoError(t, err)

	stored, err := keys.GetByID(1, key.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.UsageCount)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestValidatePicksRightKeyAmongMany(t *testing.T) {
	service, _, _ := newTestService()

	var secrets []string
	var ids []uint
	for _, name := range []string{"first", "second", "third"} {
		key, secret, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: name})
		require.NoError(t, err)
		secrets = append(secrets, secret)
		ids = append(ids, key.ID)
	}

	for i, secret := range secrets {
		identity, err := service.Validate(context.Background(), secret, "", "")
		require.NoError(t, err)
		assert.Equal(t, ids[i], identity.ApiKeyID)
	}
}

func TestValidateConcurrentBursts(t *testing.T) {
	service, _, _ := newTestService()

	_, secret, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			identity, err := service.Validate(context.Background(), secret, "", "")
			if err != nil {
				t.Errorf("Validate error: %v", err)
				return
			}
			if identity.TenantID != 1 {
				t.Errorf("Validate resolved tenant %d, want 1", identity.TenantID)
			}
		}()
	}
	wg.Wait()
}

func TestIssueRequiresTenantAndName(t *testing.T) {
	service, _, _ := newTestService()

	_, _, err := service.Issue(context.Background(), IssueInput{TenantID: 0, Name: "x"})
	assert.Error(t, err)

	_, _, err = service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "   "})
	assert.Error(t, err)
}

func TestListHidesKeyHash(t *testing.T) {
	service, _, _ := newTestService()

	_, _, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy"})
	require.NoError(t, err)

	keys, err := service.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Empty(t, keys[0].KeyHash)
	assert.NotEmpty(t, keys[0].KeyPreview)
}

func TestUpdateMutableFields(t *testing.T) {
	service, _, _ := newTestService()

	key, _, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy"})
	require.NoError(t, err)

	name := "ci"
	limit := 120
	updated, err := service.Update(context.Background(), 1, key.ID, UpdateInput{
		Name:      &name,
		Scopes:    []string{"vehicles:read"},
		RateLimit: &limit,
	})
	require.NoError(t, err)
	assert.Equal(t, "ci", updated.Name)
	assert.Equal(t, []string{"vehicles:read"}, updated.Scopes)
	assert.Equal(t, 120, updated.RateLimit)
	assert.Equal(t, key.KeyHash, updated.KeyHash, "update must not touch secret material")
}

func TestRegenerateInvalidatesOldSecret(t *testing.T) {
	service, _, _ := newTestService()

	key, oldSecret, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy"})
	require.NoError(t, err)
	_, err = service.Validate(context.Background(), oldSecret, "", "")
	require.NoError(t, err)

	regenerated, newSecret, err := service.Regenerate(context.Background(), 1, key.ID, 0)
	require.NoError(t, err)
	assert.NotEqual(t, oldSecret, newSecret)
	assert.Zero(t, regenerated.UsageCount, "usage counters reset with the secret")
	assert.Nil(t, regenerated.LastUsedAt)

	_, err = service.Validate(context.Background(), oldSecret, "", "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	identity, err := service.Validate(context.Background(), newSecret, "", "")
	require.NoError(t, err)
	assert.Equal(t, key.ID, identity.ApiKeyID)
}

func TestRemoveDeletesRow(t *testing.T) {
	service, keys, _ := newTestService()

	key, _, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy"})
	require.NoError(t, err)

	require.NoError(t, service.Remove(context.Background(), 1, key.ID, 0))

	_, err = keys.GetByID(1, key.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRemoveWrongTenant(t *testing.T) {
	service, _, _ := newTestService()

	key, _, err := service.Issue(context.Background(), IssueInput{TenantID: 1, Name: "deploy"})
	require.NoError(t, err)

	err = service.Remove(context.Background(), 2, key.ID, 0)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
