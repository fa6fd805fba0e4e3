package redisstore

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/payment"
)

type dedupStore struct {
	client *redis.Client
}

// NewDedupStore returns a payment.DedupStore backed by redis SETNX.
func NewDedupStore(client *redis.Client) payment.DedupStore {
	return &dedupStore{client: client}
}

func (s *dedupStore) MarkProcessed(ctx context.Context, gateway, eventID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, "webhook:seen:"+gateway+":"+eventID, 1, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "marking event processed")
	}
	return ok, nil
}

type failureCounter struct {
	client *redis.Client
}

// NewFailureCounter returns a payment.FailureCounter backed by redis counters.
func NewFailureCounter(client *redis.Client) payment.FailureCounter {
	return &failureCounter{client: client}
}

func sigFailKey(ip string) string {
	return "webhook:sigfail:" + ip
}

func flagKey(ip string) string {
	return "webhook:blocked:" + ip
}

func (c *failureCounter) RecordFailure(ctx context.Context, ip string, window time.Duration) (int, error) {
	key := sigFailKey(ip)
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "incrementing failure count")
	}
	if count == 1 {
		// first failure opens the window
		if err = c.client.Expire(ctx, key, window).Err(); err != nil {
			return int(count), errors.Wrap(err, "setting failure window")
		}
	}
	return int(count), nil
}

func (c *failureCounter) Flag(ctx context.Context, ip string, duration time.Duration) error {
	return errors.Wrap(c.client.Set(ctx, flagKey(ip), 1, duration).Err(), "flagging IP")
}

func (c *failureCounter) Flagged(ctx context.Context, ip string) (bool, error) {
	n, err := c.client.Exists(ctx, flagKey(ip)).Result()
	if err != nil {
		return false, errors.Wrap(err, "checking IP flag")
	}
	return n > 0, nil
}
