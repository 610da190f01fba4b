package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateApiKeySecret(t *testing.T) {
	secret, preview, err := GenerateApiKeySecret()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(secret, "crk_"))
	assert.Len(t, secret, 4+40)
	assert.True(t, HasApiKeyPrefix(secret))
	assert.Equal(t, PreviewApiKeySecret(secret), preview)

	// Preview must not reveal the full secret.
	assert.NotEqual(t, secret, preview)
	assert.True(t, strings.HasPrefix(preview, secret[:12]))
	assert.True(t, strings.HasSuffix(preview, secret[len(secret)-4:]))
}

func TestApiKeySecretHashRoundTrip(t *testing.T) {
	secret, _, err := GenerateApiKeySecret()
	require.NoError(t, err)

	hash, err := HashApiKeySecret(secret)
	require.NoError(t, err)
	assert.NotContains(t, hash, secret)

	assert.True(t, CheckApiKeySecret(secret, hash))
	assert.False(t, CheckApiKeySecret("crk_0000000000000000000000000000000000000000", hash))
}

func TestApiKeyHasScope(t *testing.T) {
	tests := []struct {
		name     string
		scopes   []string
		required string
		want     bool
	}{
		{name: "exact match", scopes: []string{"vehicles:read"}, required: "vehicles:read", want: true},
		{name: "wildcard", scopes: []string{"all"}, required: "vehicles:write", want: true},
		{name: "missing", scopes: []string{"vehicles:read"}, required: "vehicles:write", want: false},
		{name: "empty", scopes: nil, required: "vehicles:read", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := &ApiKey{Scopes: tt.scopes}
			assert.Equal(t, tt.want, key.HasScope(tt.required))
		})
	}
}

func TestApiKeyAllowsIP(t *testing.T) {
	open := &ApiKey{}
	assert.True(t, open.AllowsIP("203.0.113.7"))

	restricted := &ApiKey{AllowedIPs: []string{"10.0.0.1", "10.0.0.2"}}
	assert.True(t, restricted.AllowsIP("10.0.0.2"))
	assert.False(t, restricted.AllowsIP("203.0.113.7"))
}

func TestApiKeyIsExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&ApiKey{}).IsExpired(now))

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	assert.True(t, (&ApiKey{ExpiresAt: &past}).IsExpired(now))
	assert.False(t, (&ApiKey{ExpiresAt: &future}).IsExpired(now))
}
