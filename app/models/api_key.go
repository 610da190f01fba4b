package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const apiKeySecretPrefix = "crk_"

// ScopeAll is the wildcard scope matching every required scope.
const ScopeAll = "all"

// ApiKey is a tenant-scoped programmatic credential. Only a bcrypt hash of
// the secret is stored; the plaintext leaves the process exactly once, at
// issuance or regeneration.
type ApiKey struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TenantID   uint           `gorm:"not null;index" json:"tenant_id"`
	Name       string         `gorm:"type:varchar(150);not null" json:"name"`
	KeyHash    string         `gorm:"type:varchar(100);not null" json:"-"`
	KeyPreview string         `gorm:"type:varchar(32);not null" json:"key_preview"`
	Scopes     []string       `gorm:"serializer:json;type:text" json:"scopes"`
	ExpiresAt  *time.Time     `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	AllowedIPs []string       `gorm:"serializer:json;type:text" json:"allowed_ips,omitempty"`
	RateLimit  int            `gorm:"not null;default:0" json:"rate_limit"`
	IsActive   bool           `gorm:"default:true;index" json:"is_active"`
	LastUsedAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_used_at,omitempty"`
	UsageCount int64          `gorm:"not null;default:0" json:"usage_count"`
	RevokedAt  *time.Time     `gorm:"type:timestamp;default:null" json:"revoked_at,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasScope reports whether the key is authorized for the required scope.
// The "all" scope is a wildcard.
func (k *ApiKey) HasScope(required string) bool {
	for _, s := range k.Scopes {
		if s == ScopeAll || s == required {
			return true
		}
	}
	return false
}

// AllowsIP reports whether the client IP passes the key's allow-list. An
// empty allow-list admits every address.
func (k *ApiKey) AllowsIP(ip string) bool {
	if len(k.AllowedIPs) == 0 {
		return true
	}
	for _, allowed := range k.AllowedIPs {
		if allowed == ip {
			return true
		}
	}
	return false
}

// IsExpired reports whether the key has passed its expiry, if one is set.
func (k *ApiKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// GenerateApiKeySecret returns a fresh plaintext secret and its display
// preview. The secret carries a recognizable prefix so leaked keys can be
// found by scanners.
func GenerateApiKeySecret() (secret, preview string, err error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate api key secret: %w", err)
	}
	secret = apiKeySecretPrefix + hex.EncodeToString(b)
	return secret, PreviewApiKeySecret(secret), nil
}

// PreviewApiKeySecret derives the truncated, non-secret display form of a
// plaintext secret.
func PreviewApiKeySecret(secret string) string {
	if len(secret) <= 16 {
		return secret
	}
	return secret[:12] + "…" + secret[len(secret)-4:]
}

// HashApiKeySecret computes the slow one-way hash stored in place of the
// plaintext.
func HashApiKeySecret(secret string) (string, error) {
	sum, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(secret)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(sum), nil
}

// CheckApiKeySecret compares a plaintext secret against a stored hash.
func CheckApiKeySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(secret))) == nil
}

// HasApiKeyPrefix reports whether a candidate string even looks like one of
// our secrets. Used to short-circuit validation before any slow hashing.
func HasApiKeyPrefix(secret string) bool {
	return strings.HasPrefix(strings.TrimSpace(secret), apiKeySecretPrefix)
}
