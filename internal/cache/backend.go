// Package cache serves read-mostly account queries from Redis and evicts them
// after every committed mutation.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss indicates that the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Backend is a key/value store with expiring keys, generation counters and pattern based deletion.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// SetIfGeneration stores value at key for ttl only while the counter at genKey still equals gen.
	// It reports whether the value was stored.
	SetIfGeneration(ctx context.Context, genKey string, gen int64, key string, value []byte, ttl time.Duration) (bool, error)
	// Generation returns the counter at key, 0 when it was never bumped.
	Generation(ctx context.Context, key string) (int64, error)
	BumpGeneration(ctx context.Context, key string) error
	// DeletePattern removes every key matching the glob pattern and returns how many were removed.
	// Removing keys that do not exist is not an error.
	DeletePattern(ctx context.Context, pattern string) (int, error)
	Ping(ctx context.Context) error
}

const scanBatch = 100

// RedisBackend is a Backend on top of a go-redis client.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend returns RedisBackend.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

// Get returns the value stored at key or ErrMiss.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}

	return val, err
}

// KEYS[1] generation counter, KEYS[2] entry; ARGV[1] expected generation, ARGV[2] value, ARGV[3] ttl in ms.
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if (current or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// SetIfGeneration runs the generation check and the write as one script.
func (b *RedisBackend) SetIfGeneration(
	ctx context.Context, genKey string, gen int64, key string, value []byte, ttl time.Duration,
) (bool, error) {
	ms := ttl.Milliseconds()
	if ms < 1 {
		ms = 1
	}

	stored, err := setIfGeneration.Run(ctx, b.client,
		[]string{genKey, key}, strconv.FormatInt(gen, 10), value, ms).Int()
	if err != nil {
		return false, err
	}

	return stored == 1, nil
}

// Generation returns the counter stored at key.
func (b *RedisBackend) Generation(ctx context.Context, key string) (int64, error) {
	gen, err := b.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	return gen, err
}

// BumpGeneration increments the counter at key. Counters never expire.
func (b *RedisBackend) BumpGeneration(ctx context.Context, key string) error {
	return b.client.Incr(ctx, key).Err()
}

// DeletePattern walks the key space with SCAN and deletes matches in batches.
func (b *RedisBackend) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		deleted int
		batch   = make([]string, 0, scanBatch)
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		n, err := b.client.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}

		deleted += int(n)
		batch = batch[:0]

		return nil
	}

	iter := b.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())

		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}

	if err := iter.Err(); err != nil {
		return deleted, err
	}

	if err := flush(); err != nil {
		return deleted, err
	}

	return deleted, nil
}

// Ping checks the connection to redis.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
