package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"pollfeed/internal/metrics"
)

// Tally is the authoritative computation the cache sits in front of.
type Tally interface {
	TallyByCaption(ctx context.Context, pollID int64) (map[string]int64, error)
}

// Results is a cache-aside projection of per-option vote tallies, keyed by
// poll id. It is disposable: the store stays the source of truth and any
// Redis failure degrades to a direct store read.
type Results struct {
	rdb *redis.Client
	src Tally
	ttl time.Duration
	log *slog.Logger
}

func NewResults(rdb *redis.Client, src Tally, ttl time.Duration, log *slog.Logger) *Results {
	if log == nil {
		log = slog.Default()
	}
	return &Results{rdb: rdb, src: src, ttl: ttl, log: log}
}

func resultsKey(pollID int64) string {
	return fmt.Sprintf("poll:results:%d", pollID)
}

// Get returns the caption→count mapping for a poll, serving from Redis on a
// hit and recomputing from the store on a miss. A failed cache write is
// logged, never propagated: the caller still gets the computed result.
func (c *Results) Get(ctx context.Context, pollID int64) (map[string]int64, error) {
	key := resultsKey(pollID)

	cached, err := c.rdb.HGetAll(ctx, key).Result()
	switch {
	case err != nil:
		c.log.Warn("results cache read failed, falling back to store", "poll_id", pollID, "err", err)
		metrics.IncCacheLookup("bypass")
	case len(cached) > 0:
		out := make(map[string]int64, len(cached))
		ok := true
		for caption, raw := range cached {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				ok = false
				break
			}
			out[caption] = n
		}
		if ok {
			metrics.IncCacheLookup("hit")
			return out, nil
		}
		// Unparseable entry: treat as missing and recompute.
		metrics.IncCacheLookup("miss")
	default:
		metrics.IncCacheLookup("miss")
	}

	tally, err := c.src.TallyByCaption(ctx, pollID)
	if err != nil {
		return nil, err
	}

	if len(tally) > 0 {
		fields := make(map[string]any, len(tally))
		for caption, n := range tally {
			fields[caption] = strconv.FormatInt(n, 10)
		}
		pipe := c.rdb.TxPipeline()
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, c.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			c.log.Warn("results cache populate failed", "poll_id", pollID, "err", err)
		}
	}
	return tally, nil
}

// Evict drops the cached entry for a poll. Deleting an absent key is a
// no-op, which makes duplicate invalidation events harmless.
func (c *Results) Evict(ctx context.Context, pollID int64) {
	if err := c.rdb.Del(ctx, resultsKey(pollID)).Err(); err != nil {
		c.log.Warn("results cache evict failed, TTL will expire the entry", "poll_id", pollID, "err", err)
	}
}
