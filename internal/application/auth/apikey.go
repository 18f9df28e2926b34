package auth

import (
	"errors"
	"time"
)

// ErrUnauthorized is returned by ValidateAPIKey for any failure the
// caller should treat as "invalid or expired credentials" — the
// specific cause (not found, bad secret, expired) is logged but never
// surfaced to the HTTP client, to avoid helping an attacker enumerate
// valid short tokens.
var ErrUnauthorized = errors.New("jobengine: unauthorized")

// ErrNotFound is returned by a Repository when no row matches the
// given short token.
var ErrNotFound = errors.New("jobengine: api key not found")

// APIKey is an operator credential for the admin HTTP API
// (cmd/server): a short lookup token plus a hashed long secret, in
// the same short/long split internal/infrastructure/keygen produces.
type APIKey struct {
	ID             string
	KeyType        string
	Service        string
	Version        string
	ShortToken     string
	LongSecretHash string
	Name           string
	IsActive       bool
	CreatedAt      time.Time
	LastUsedAt     *time.Time
	ExpiresAt      *time.Time
}
