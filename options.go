package bitblock

import (
	"time"

	"github.com/google/uuid"
)

// RedisOption configures a RedisBitSet.
type RedisOption func(*redisOptions)

type redisOptions struct {
	key        string
	expiration time.Duration
	timeout    time.Duration
}

func defaultRedisOptions() redisOptions {
	return redisOptions{
		key: uuid.New().String(),
	}
}

// WithKey stores the bitset under key instead of a random UUID. Any value
// already held by key is overwritten.
func WithKey(key string) RedisOption {
	return func(o *redisOptions) {
		o.key = key
	}
}

// WithExpiration sets a TTL on the key. Zero means the key never expires.
// The TTL is renewed whenever the whole value is rewritten (ClearAll, ReadFrom).
func WithExpiration(d time.Duration) RedisOption {
	return func(o *redisOptions) {
		o.expiration = d
	}
}

// WithTimeout bounds every Redis command. Zero disables the deadline.
func WithTimeout(d time.Duration) RedisOption {
	return func(o *redisOptions) {
		o.timeout = d
	}
}
