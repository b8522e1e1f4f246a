package repository

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when a refresh token is absent, expired, or
// its stored value is unreadable. Callers treat all three identically.
var ErrTokenNotFound = errors.New("refresh token not found")

const defaultTokenBytes = 48

// TokenRepository owns the Redis-backed refresh token store. Entries map
// an opaque token string to the owning user id with a TTL; nothing else
// reads or writes these keys.
type TokenRepository struct {
	client    *redis.Client
	prefix    string
	tokenSize int
}

// NewTokenRepository constructs a token repository. The key prefix keeps
// the namespace separable when the Redis instance is shared.
func NewTokenRepository(client *redis.Client, prefix string, tokenBytes int) *TokenRepository {
	if tokenBytes <= 0 {
		tokenBytes = defaultTokenBytes
	}
	return &TokenRepository{client: client, prefix: prefix, tokenSize: tokenBytes}
}

func (r *TokenRepository) key(token string) string {
	return r.prefix + token
}

// Issue generates an opaque random token and stores it against the user id
// with the given TTL.
func (r *TokenRepository) Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	buf := make([]byte, r.tokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	if err := r.client.Set(ctx, r.key(token), strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return token, nil
}

// Resolve returns the user id a token maps to without consuming it.
func (r *TokenRepository) Resolve(ctx context.Context, token string) (int64, error) {
	raw, err := r.client.Get(ctx, r.key(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("resolve refresh token: %w", err)
	}
	return r.parse(raw)
}

// Consume atomically removes the token and returns the user id it mapped
// to. Under concurrent calls with the same token exactly one caller wins;
// the rest observe ErrTokenNotFound. This is what makes rotation
// single-use.
func (r *TokenRepository) Consume(ctx context.Context, token string) (int64, error) {
	raw, err := r.client.GetDel(ctx, r.key(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("consume refresh token: %w", err)
	}
	return r.parse(raw)
}

// Revoke deletes the token. Revoking an unknown or already revoked token
// is not an error.
func (r *TokenRepository) Revoke(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, r.key(token)).Err(); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) parse(raw string) (int64, error) {
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Corrupt entries are indistinguishable from missing ones to
		// the caller.
		return 0, ErrTokenNotFound
	}
	return userID, nil
}
