package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/dedupe"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

const signalKeyPrefix = "leadscore:signal:"

// RedisDeduper shares signal ids across service instances with SET NX.
// When Redis is unreachable it falls back to the local deduper.
type RedisDeduper struct {
	client   redis.UniversalClient
	ttl      time.Duration
	fallback dedupe.Deduper
	recorded atomic.Int64
	log      logger.Logger
}

// NewRedisDeduper remembers ids for ttl. fallback may be nil.
func NewRedisDeduper(client redis.UniversalClient, ttl time.Duration, fallback dedupe.Deduper) *RedisDeduper {
	if fallback == nil {
		fallback = dedupe.NewInMemoryDeduper()
	}
	return &RedisDeduper{
		client:   client,
		ttl:      ttl,
		fallback: fallback,
		log:      logger.Get().Named("dedupe"),
	}
}

func (d *RedisDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	ok, err := d.client.SetNX(ctx, signalKeyPrefix+id, 1, d.ttl).Result()
	if err != nil {
		d.log.Warn(ctx, "redis dedupe unavailable, using local state",
			logger.String("signal_id", id), logger.Error(err))
		return d.fallback.SeenAndRecord(ctx, id)
	}
	if ok {
		d.recorded.Add(1)
	}
	return !ok
}

func (d *RedisDeduper) Unrecord(ctx context.Context, id string) {
	n, err := d.client.Del(ctx, signalKeyPrefix+id).Result()
	if err != nil {
		d.fallback.Unrecord(ctx, id)
		return
	}
	if n > 0 {
		d.recorded.Add(-1)
	}
}

// Size counts ids recorded by this instance.
func (d *RedisDeduper) Size() int64 {
	return d.recorded.Load()
}

var _ dedupe.Deduper = (*RedisDeduper)(nil)
