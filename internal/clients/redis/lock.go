package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/draftcut-backend/internal/platform/locks"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

var _ locks.Locker = (*Lock)(nil)

const (
	defaultLockTTL     = 10 * time.Minute
	defaultLockPrefix  = "draftcut:lock:"
	lockPollInterval   = 100 * time.Millisecond
	lockMaxPollBackoff = 2 * time.Second
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type LockConfig struct {
	Addr   string
	TTL    time.Duration
	Prefix string
}

// Lock is a lease based distributed lock (SET NX PX). A lease that outlives its
// TTL is released by redis, so TTL must exceed the longest export.
type Lock struct {
	log    *logger.Logger
	rdb    *goredis.Client
	ttl    time.Duration
	prefix string
}

func NewLock(log *logger.Logger, cfg LockConfig) (*Lock, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newLockWithClient(log, rdb, cfg), nil
}

func newLockWithClient(log *logger.Logger, rdb *goredis.Client, cfg LockConfig) *Lock {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultLockPrefix
	}
	return &Lock{
		log:    log.With("service", "RedisLock"),
		rdb:    rdb,
		ttl:    ttl,
		prefix: prefix,
	}
}

func (l *Lock) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.rdb == nil {
		return nil, errors.New("redis lock not initialized")
	}
	full := l.prefix + key
	token := uuid.NewString()
	wait := lockPollInterval

	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		if wait *= 2; wait > lockMaxPollBackoff {
			wait = lockMaxPollBackoff
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even when the caller's ctx is already cancelled.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{full}, token).Err(); err != nil {
				l.log.Warn("redis lock release failed", "key", key, "error", err)
			}
		})
	}, nil
}

func (l *Lock) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
