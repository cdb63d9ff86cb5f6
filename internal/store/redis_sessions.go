package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/yieldchat/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix = "yieldchat:session:"
	redisLockPrefix    = "yieldchat:lock:"

	// DefaultLockTTL bounds how long a crashed holder can block a session.
	DefaultLockTTL = 30 * time.Second
	lockRetry      = 20 * time.Millisecond
	unlockTimeout  = 2 * time.Second
)

// Deletes the lock only if it still carries the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSessionStore keeps sessions in Redis so in-progress conversations
// survive a restart. Each write refreshes the TTL.
type RedisSessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisSessionStore connects to Redis and verifies the connection.
func NewRedisSessionStore(ctx context.Context, cfg RedisConfig, ttl time.Duration) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisSessionStoreWithClient(client, ttl), nil
}

// NewRedisSessionStoreWithClient wraps an existing client.
func NewRedisSessionStoreWithClient(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl, lockTTL: DefaultLockTTL}
}

// WithLockTTL sets the expiry of session locks.
func (r *RedisSessionStore) WithLockTTL(d time.Duration) *RedisSessionStore {
	if d > 0 {
		r.lockTTL = d
	}
	return r
}

func redisSessionKey(id string) string {
	return redisSessionPrefix + id
}

// Get loads and decodes the session.
func (r *RedisSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, redisSessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return decodeSession(data)
}

// Put encodes and stores the session.
func (r *RedisSessionStore) Put(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisSessionKey(session.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Remove deletes the session.
func (r *RedisSessionStore) Remove(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisSessionKey(id)).Err(); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Lock takes a lock on id that every replica sharing this Redis honours.
// It polls SET NX until the key is free or ctx ends.
func (r *RedisSessionStore) Lock(ctx context.Context, id string) (func(), error) {
	key := redisLockPrefix + id
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock session: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock session: %w", ctx.Err())
		case <-ticker.C:
		}
	}

	return func() {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
		defer cancel()
		_ = unlockScript.Run(uctx, r.client, []string{key}, token).Err()
	}, nil
}

// Close closes the Redis client.
func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}

func decodeSession(data []byte) (*domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Answers == nil {
		s.Answers = make(map[string]any)
	}
	return &s, nil
}

var (
	_ SessionStore  = (*RedisSessionStore)(nil)
	_ SessionLocker = (*RedisSessionStore)(nil)
)
