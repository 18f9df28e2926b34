package auth

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/session-mesh/jobengine/internal/infrastructure/keygen"
	"golang.org/x/crypto/blake2b"
)

// hashSecret computes BLAKE2b-256 hash of the secret and returns hex-encoded string.
// BLAKE2b is faster than SHA-256 while maintaining security for high-entropy API keys.
func hashSecret(secret string) string {
	hash := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(hash[:])
}

// maskAPIKey returns a safe-to-log version of an API key showing only the prefix.
func maskAPIKey(apiKey string) string {
	parts := strings.Split(apiKey, "-")
	if len(parts) >= 1 {
		return parts[0] + "-***"
	}
	return "***"
}

// lastUsedUpdate holds information for updating an API key's last_used_at timestamp.
type lastUsedUpdate struct {
	keyID     string
	timestamp time.Time
}

// Authenticator validates operator API keys for the admin HTTP API.
type Authenticator struct {
	repo             Repository
	opsCtx           context.Context // cancelled when Shutdown's ctx expires, to hard-stop in-flight drain ops
	opsCancel        context.CancelFunc
	lastUsedUpdates  chan lastUsedUpdate
	shutdownChan     chan struct{}
	shutdownOnce     sync.Once
	wg               sync.WaitGroup
	operationTimeout time.Duration // Timeout for storage operations
}

// NewAuthenticator creates a new authenticator and starts the background worker
// for processing last_used_at updates.
// The ctx parameter should be an application-level context that gets cancelled on shutdown.
func NewAuthenticator(ctx context.Context, repo Repository, operationTimeout time.Duration) *Authenticator {
	opsCtx, opsCancel := context.WithCancel(ctx)
	a := &Authenticator{
		repo:             repo,
		opsCtx:           opsCtx,
		opsCancel:        opsCancel,
		lastUsedUpdates:  make(chan lastUsedUpdate, 1000), // buffered to handle bursts
		shutdownChan:     make(chan struct{}),
		operationTimeout: operationTimeout,
	}

	a.wg.Add(1)
	go a.processLastUsedUpdates()

	return a
}

// processLastUsedUpdates is a background worker that processes last_used_at updates
// from a buffered channel. This prevents goroutine explosion under high load.
func (a *Authenticator) processLastUsedUpdates() {
	defer a.wg.Done()

	for {
		select {
		case update := <-a.lastUsedUpdates:
			a.applyUpdate(update)

		case <-a.shutdownChan:
			for {
				select {
				case update := <-a.lastUsedUpdates:
					a.applyUpdate(update)
				default:
					return
				}
			}
		}
	}
}

func (a *Authenticator) applyUpdate(update lastUsedUpdate) {
	ctx := a.opsCtx
	var cancel context.CancelFunc
	if a.operationTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.operationTimeout)
		defer cancel()
	}
	if err := a.repo.UpdateLastUsed(ctx, update.keyID, update.timestamp); err != nil {
		slog.WarnContext(ctx, "failed to update API key last_used_at",
			slog.String("key_id", update.keyID),
			slog.String("error", err.Error()))
	}
}

// Shutdown gracefully shuts down the authenticator by signaling the worker to
// stop and waiting for it to finish draining remaining updates. Calling
// Shutdown more than once is safe; only the first call does any work, and
// later calls observe the same outcome. If ctx expires before the drain
// finishes, in-flight repository calls are cancelled and the expiry error
// is returned.
func (a *Authenticator) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() { close(a.shutdownChan) })

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.opsCancel()
		return nil
	case <-ctx.Done():
		a.opsCancel()
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// ValidateAPIKey checks apiKey against the repository and, on success,
// returns the matched key and queues a non-blocking last_used_at
// update. Any failure — malformed key, unknown short token, bad
// secret, expired key — collapses to ErrUnauthorized so callers (the
// HTTP middleware) cannot distinguish failure causes from the
// response alone.
func (a *Authenticator) ValidateAPIKey(ctx context.Context, apiKey string) (*APIKey, error) {
	keyParts, err := keygen.ParseAPIKey(apiKey)
	if err != nil {
		slog.WarnContext(ctx, "authentication failed: malformed API key", "error", err)
		return nil, ErrUnauthorized
	}

	key, err := a.repo.FindByShortToken(ctx, keyParts.ShortToken)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.ErrorContext(ctx, "authentication failed: repository error", "error", err)
		}
		return nil, ErrUnauthorized
	}

	providedHash := hashSecret(keyParts.LongSecret)
	if subtle.ConstantTimeCompare([]byte(key.LongSecretHash), []byte(providedHash)) != 1 {
		slog.WarnContext(ctx, "authentication failed: secret mismatch", slog.String("key_prefix", maskAPIKey(apiKey)))
		return nil, ErrUnauthorized
	}

	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now().UTC()) {
		slog.WarnContext(ctx, "authentication failed: expired key", slog.String("key_id", key.ID))
		return nil, ErrUnauthorized
	}

	select {
	case a.lastUsedUpdates <- lastUsedUpdate{keyID: key.ID, timestamp: time.Now().UTC()}:
	default:
		// Channel full, drop update (last_used_at is non-critical); this
		// provides backpressure instead of unbounded goroutine spawning.
		slog.WarnContext(ctx, "dropped last_used_at update due to full queue", slog.String("key_id", key.ID))
	}

	return key, nil
}

// CreateAPIKey creates a new API key and returns the plain key (only shown once).
func CreateAPIKey(ctx context.Context, repo Repository, keyType, service, version, name string, expiresAt *time.Time) (string, error) {
	keyParts, err := keygen.GenerateAPIKey(keyType, service, version)
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}

	longSecretHash := hashSecret(keyParts.LongSecret)

	keyID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate key ID: %w", err)
	}

	err = repo.Create(ctx, &APIKey{
		ID:             keyID.String(),
		KeyType:        keyParts.KeyType,
		Service:        keyParts.Service,
		Version:        keyParts.Version,
		ShortToken:     keyParts.ShortToken,
		LongSecretHash: longSecretHash,
		Name:           name,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create API key: %w", err)
	}

	return keyParts.FullKey, nil
}
