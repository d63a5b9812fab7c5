package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it is still owned by the caller.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker is a distributed Locker for deployments running several
// instances against one ledger.  The lock is a plain key set with NX and a
// TTL; TTL bounds how long a crashed holder can block a showtime.
type RedisLocker struct {
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	backoff time.Duration
	log     *zap.Logger
}

// NewRedisLocker returns a RedisLocker.  ttl must exceed the longest
// critical section; zero values fall back to 10s and 25ms.  A nil log
// discards release failures.
func NewRedisLocker(rdb *redis.Client, prefix string, ttl, backoff time.Duration, log *zap.Logger) *RedisLocker {
	if prefix == "" {
		prefix = "lock"
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if backoff <= 0 {
		backoff = 25 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, backoff: backoff, log: log}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := r.prefix + ":" + key
	owner, err := ownerToken()
	if err != nil {
		return nil, err
	}
	wait := r.backoff
	for {
		ok, err := r.rdb.SetNX(ctx, k, owner, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		if wait < 500*time.Millisecond {
			wait *= 2
		}
	}
	return func() {
		// context.Background: release must run even when the request ctx is gone
		if err := releaseScript.Run(context.Background(), r.rdb, []string{k}, owner).Err(); err != nil {
			r.log.Warn("release showtime lock",
				zap.String("key", k), zap.Duration("held_until_ttl", r.ttl), zap.Error(err))
		}
	}, nil
}

func ownerToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
