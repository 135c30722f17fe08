// Package cache wires Redis for wizard state and per-schedule locks.
package cache

import (
	"context"
	"errors"
	"time"

	"nrm-schedules/internal/config"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const maxAttempts = 10

// Connect pings Redis with a bounded backoff before giving up.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	logger := config.GetLogger()

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			PoolSize: 50,
		})
		if err = rdb.Ping(ctx).Err(); err == nil {
			logger.WithFields(logrus.Fields{"addr": addr, "attempt": attempt}).Info("connected to redis")
			return rdb, nil
		}
		_ = rdb.Close()

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		logger.WithFields(logrus.Fields{"addr": addr, "attempt": attempt, "retry_in": sleep.String()}).
			Warn("failed to connect redis: " + err.Error())

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, err
}

var (
	ErrLocked   = errors.New("resource is locked by another operation")
	ErrLockLost = errors.New("lock expired before the operation finished")
)

// Lease is a held lock. Holders refresh it before the TTL runs out.
type Lease interface {
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

type redisLease struct {
	lock *redislock.Lock
}

func (l redisLease) Refresh(ctx context.Context, ttl time.Duration) error {
	err := l.lock.Refresh(ctx, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrLockLost
	}
	return err
}

func (l redisLease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

// Locker hands out short-lived exclusive locks keyed by name.
type Locker struct {
	client *redislock.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// Obtain returns the lease, or ErrLocked when someone else holds key.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	lock, err := l.client.Obtain(ctx, "lock:"+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, err
	}
	return redisLease{lock: lock}, nil
}
