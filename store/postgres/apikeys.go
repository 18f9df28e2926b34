package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/session-mesh/jobengine/internal/application/auth"
)

// APIKeyRepository implements auth.Repository against the same
// pgxpool.Pool the Job Record Store uses, so cmd/server's admin API
// and cmd/worker's scheduler share one connection pool and one
// migration set.
type APIKeyRepository struct {
	store *Store
}

var _ auth.Repository = (*APIKeyRepository)(nil)

// NewAPIKeyRepository wraps an existing Store's pool for API-key
// lookups; it does not own the pool's lifecycle.
func NewAPIKeyRepository(store *Store) *APIKeyRepository {
	return &APIKeyRepository{store: store}
}

func (r *APIKeyRepository) FindByShortToken(ctx context.Context, shortToken string) (*auth.APIKey, error) {
	var k auth.APIKey
	err := r.store.pool.QueryRow(ctx, `
		SELECT id::text, key_type, service, version, short_token, long_secret_hash,
		       name, is_active, created_at, last_used_at, expires_at
		FROM api_keys
		WHERE short_token = $1 AND is_active
	`, shortToken).Scan(
		&k.ID, &k.KeyType, &k.Service, &k.Version, &k.ShortToken, &k.LongSecretHash,
		&k.Name, &k.IsActive, &k.CreatedAt, &k.LastUsedAt, &k.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &k, nil
}

func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, keyID string, timestamp time.Time) error {
	_, err := r.store.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2::uuid`, timestamp, keyID)
	return err
}

func (r *APIKeyRepository) Create(ctx context.Context, key *auth.APIKey) error {
	_, err := r.store.pool.Exec(ctx, `
		INSERT INTO api_keys (id, key_type, service, version, short_token, long_secret_hash, name, is_active, created_at, expires_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, key.ID, key.KeyType, key.Service, key.Version, key.ShortToken, key.LongSecretHash,
		key.Name, key.IsActive, key.CreatedAt, key.ExpiresAt)
	return err
}
