package app

import (
	"fmt"

	"github.com/yungbote/draftcut-backend/internal/clients/redis"
	"github.com/yungbote/draftcut-backend/internal/platform/gcp"
	"github.com/yungbote/draftcut-backend/internal/platform/locks"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

type Clients struct {
	Bucket gcp.BucketService
	// ExportLock serializes exports per chapter: redis when REDIS_ADDR is set, in-process otherwise.
	ExportLock locks.Locker
	redisLock  *redis.Lock
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	bucket, err := resolveBucketService(log, cfg.Storage)
	if err != nil {
		return Clients{}, err
	}

	out := Clients{Bucket: bucket, ExportLock: locks.NewKeyedMutex()}
	if cfg.RedisAddr != "" {
		l, err := redis.NewLock(log, redis.LockConfig{Addr: cfg.RedisAddr, TTL: cfg.ExportLockTTL})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis export lock: %w", err)
		}
		out.ExportLock = l
		out.redisLock = l
	}
	return out, nil
}

func (c Clients) Close() {
	if c.redisLock != nil {
		_ = c.redisLock.Close()
	}
}
