package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/astrialabs/astrochat/domain"
)

// RedisBackend implements Backend on a redis connection pool. The pool is
// safe for concurrent use by multiple in-flight requests.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a redis-backed cache and verifies connectivity.
func NewRedisBackend(ctx context.Context, addr, password string, db int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisBackend{client: client}, nil
}

// wrap tags transport-level failures as store-unavailable so callers can
// treat them as retryable.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return wrap(b.client.Ping(ctx).Err())
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap(err)
	}
	return val, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return wrap(b.client.Set(ctx, key, value, ttl).Err())
}

func (b *RedisBackend) Del(ctx context.Context, keys ...string) error {
	return wrap(b.client.Del(ctx, keys...).Err())
}

func (b *RedisBackend) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return wrap(b.client.Expire(ctx, key, ttl).Err())
}

func (b *RedisBackend) HSet(ctx context.Context, key string, fields map[string]string) error {
	args := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		args[k] = v
	}
	return wrap(b.client.HSet(ctx, key, args).Err())
}

func (b *RedisBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	val, err := b.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrap(err)
	}
	return val, nil
}

func (b *RedisBackend) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	val, err := b.client.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, wrap(err)
	}
	return val, nil
}

func (b *RedisBackend) RPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return wrap(b.client.RPush(ctx, key, args...).Err())
}

func (b *RedisBackend) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	val, err := b.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, wrap(err)
	}
	return val, nil
}

func (b *RedisBackend) LTrim(ctx context.Context, key string, start, stop int64) error {
	return wrap(b.client.LTrim(ctx, key, start, stop).Err())
}

func (b *RedisBackend) LLen(ctx context.Context, key string) (int64, error) {
	val, err := b.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, wrap(err)
	}
	return val, nil
}

func (b *RedisBackend) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return wrap(b.client.SAdd(ctx, key, args...).Err())
}

func (b *RedisBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	val, err := b.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, wrap(err)
	}
	return val, nil
}

func (b *RedisBackend) SRem(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return wrap(b.client.SRem(ctx, key, args...).Err())
}

func (b *RedisBackend) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return wrap(b.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err())
}

func (b *RedisBackend) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	minArg := strconv.FormatFloat(min, 'f', -1, 64)
	maxArg := strconv.FormatFloat(max, 'f', -1, 64)
	return wrap(b.client.ZRemRangeByScore(ctx, key, minArg, maxArg).Err())
}

func (b *RedisBackend) ZCard(ctx context.Context, key string) (int64, error) {
	val, err := b.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, wrap(err)
	}
	return val, nil
}

// Close closes the underlying connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

var _ Backend = (*RedisBackend)(nil)
