// Package cache keeps short-lived delivery receipts in Redis.
//
// A receipt is written right after Slack accepts a message and before the
// database row is marked sent. If the process dies between the two writes,
// the next dispatcher tick finds the receipt and finishes the transition
// without posting the message a second time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps receipts long enough to cover a multi-day outage.
const DefaultTTL = 72 * time.Hour

const keyPrefix = "slack-scheduler:sent:"

// Receipts is a Redis-backed store of delivered message ids.
type Receipts struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewReceipts wraps rdb. A ttl <= 0 uses DefaultTTL.
func NewReceipts(rdb *redis.Client, ttl time.Duration) *Receipts {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Receipts{rdb: rdb, ttl: ttl}
}

type sentValue struct {
	SentAt time.Time `json:"sentAt"`
}

// StoreSent records that message id was delivered at sentAt.
func (c *Receipts) StoreSent(ctx context.Context, id string, sentAt time.Time) error {
	b, err := json.Marshal(sentValue{SentAt: sentAt.UTC()})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+id, b, c.ttl).Err()
}

// SentAt returns when message id was delivered. ok is false when no receipt
// exists.
func (c *Receipts) SentAt(ctx context.Context, id string) (sentAt time.Time, ok bool, err error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	var v sentValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return time.Time{}, false, err
	}
	return v.SentAt, true, nil
}

// Forget drops the receipt for id once the row is durably resolved.
func (c *Receipts) Forget(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, keyPrefix+id).Err()
}

// Ping checks connectivity.
func (c *Receipts) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
