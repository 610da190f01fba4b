package apikeys

import "errors"

// Validation errors. ErrInvalidKey is deliberately generic: before a hash
// match is found there is nothing safe to reveal about why a secret failed.
// The remaining errors are only raised after a matching key was identified.
var (
	ErrInvalidKey        = errors.New("invalid api key")
	ErrKeyExpired        = errors.New("api key expired")
	ErrTenantInactive    = errors.New("tenant is inactive")
	ErrIPNotAllowed      = errors.New("client ip not allowed")
	ErrInsufficientScope = errors.New("insufficient scope")
)
