package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "equipview:session:"

// RedisSessions stores sessions in Redis so they survive restarts and are
// shared between replicas. Expiry is enforced by the key TTL.
type RedisSessions struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessions wraps a connected client. An empty prefix uses the default.
func NewRedisSessions(client *redis.Client, prefix string, ttl time.Duration) *RedisSessions {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisSessions{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisSessions) key(token string) string {
	return r.prefix + token
}

func (r *RedisSessions) Create(ctx context.Context, actor Actor) (Session, error) {
	if !actor.Authenticated() {
		return Session{}, errors.New("cannot create session for anonymous actor")
	}

	now := time.Now()
	s := Session{
		Token:     uuid.NewString(),
		Actor:     actor,
		CreatedAt: now,
	}
	if r.ttl > 0 {
		s.ExpiresAt = now.Add(r.ttl)
	}

	body, err := json.Marshal(s)
	if err != nil {
		return Session{}, fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.Token), body, r.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

func (r *RedisSessions) Lookup(ctx context.Context, token string) (Session, error) {
	body, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if s.Expired(time.Now()) {
		return Session{}, ErrSessionExpired
	}
	return s, nil
}

func (r *RedisSessions) Revoke(ctx context.Context, token string) error {
	n, err := r.client.Del(ctx, r.key(token)).Result()
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
