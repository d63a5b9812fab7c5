package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/festival-booking/internal/model"
)

// RedisLedger keeps one Redis set per showtime under "<prefix>:<showtimeID>".
// SADD and SREM are naturally idempotent, which is all the ledger contract
// asks for.
type RedisLedger struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisLedger binds a ledger to rdb.  An empty prefix defaults to
// "occupied".
func NewRedisLedger(rdb *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "occupied"
	}
	return &RedisLedger{rdb: rdb, prefix: prefix}
}

func (r *RedisLedger) key(showtimeID string) string { return r.prefix + ":" + showtimeID }

func (r *RedisLedger) Occupied(ctx context.Context, showtimeID string) (model.SeatSet, error) {
	members, err := r.rdb.SMembers(ctx, r.key(showtimeID)).Result()
	if err != nil {
		return nil, fmt.Errorf("ledger smembers %s: %w", showtimeID, err)
	}
	return model.NewSeatSet(members), nil
}

func (r *RedisLedger) Reserve(ctx context.Context, showtimeID string, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	if err := r.rdb.SAdd(ctx, r.key(showtimeID), toArgs(seats)...).Err(); err != nil {
		return fmt.Errorf("ledger sadd %s: %w", showtimeID, err)
	}
	return nil
}

func (r *RedisLedger) Release(ctx context.Context, showtimeID string, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	if err := r.rdb.SRem(ctx, r.key(showtimeID), toArgs(seats)...).Err(); err != nil {
		return fmt.Errorf("ledger srem %s: %w", showtimeID, err)
	}
	return nil
}

func toArgs(seats []string) []interface{} {
	args := make([]interface{}, len(seats))
	for i, s := range seats {
		args[i] = s
	}
	return args
}
