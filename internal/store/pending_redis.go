package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/fleetledger/internal/models"
)

// consumeScript deletes the pending hash only while its code field matches.
var consumeScript = redis.NewScript(`
	if redis.call("hget", KEYS[1], "code") == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisPending stores pending signups as hashes keyed by phone so several
// server processes share one view. Keys outlive their logical expiry by
// grace so an expired entry is still reported as expired rather than missing.
type RedisPending struct {
	client *redis.Client
	grace  time.Duration
	now    func() time.Time
}

func NewRedisPending(client *redis.Client, grace time.Duration) *RedisPending {
	return &RedisPending{client: client, grace: grace, now: time.Now}
}

func pendingKey(phone string) string {
	return fmt.Sprintf("signup:pending:v1:%s", phone)
}

func (r *RedisPending) SavePending(ctx context.Context, pending models.PendingSignup) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("encode pending signup: %w", err)
	}

	key := pendingKey(pending.Phone)
	ttl := pending.ExpiresAt.Sub(r.now()) + r.grace
	if ttl <= 0 {
		ttl = r.grace
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "code", pending.Code, "payload", payload)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save pending signup: %w", err)
	}
	return nil
}

func (r *RedisPending) GetPending(ctx context.Context, phone string) (*models.PendingSignup, error) {
	raw, err := r.client.HGet(ctx, pendingKey(phone), "payload").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending signup: %w", err)
	}

	var pending models.PendingSignup
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("decode pending signup: %w", err)
	}
	return &pending, nil
}

func (r *RedisPending) DeletePending(ctx context.Context, phone string) error {
	if err := r.client.Del(ctx, pendingKey(phone)).Err(); err != nil {
		return fmt.Errorf("delete pending signup: %w", err)
	}
	return nil
}

func (r *RedisPending) ConsumePending(ctx context.Context, phone, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, r.client, []string{pendingKey(phone)}, code).Int()
	if err != nil {
		return false, fmt.Errorf("consume pending signup: %w", err)
	}
	return n == 1, nil
}
