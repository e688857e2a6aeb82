package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionsRepository stores opaque session tokens in Redis with a TTL.
// The token value is the operator's user_id; an absent key means the
// session expired or never existed.
type SessionsRepository interface {
	Create(ctx context.Context, token, userID string, ttl time.Duration) error
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

type sessionsRepository struct {
	rdb    *redis.Client
	prefix string
}

func NewSessionsRepository(rdb *redis.Client) SessionsRepository {
	return &sessionsRepository{rdb: rdb, prefix: "sess:"}
}

func (r *sessionsRepository) Create(ctx context.Context, token, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return r.rdb.Set(ctx, r.prefix+token, userID, ttl).Err()
}

// Resolve returns "" with no error for unknown tokens.
func (r *sessionsRepository) Resolve(ctx context.Context, token string) (string, error) {
	v, err := r.rdb.Get(ctx, r.prefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *sessionsRepository) Revoke(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, r.prefix+token).Err()
}
