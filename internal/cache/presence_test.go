package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestPresence(t *testing.T) (*Presence, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewPresence(rdb, nil), mr
}

func TestPresence(t *testing.T) {
	p, _ := newTestPresence(t)
	ctx := context.Background()

	p.Add(ctx, 1)
	p.Add(ctx, 2)
	p.Add(ctx, 1) // set semantics, no duplicate

	assert.True(t, p.Contains(ctx, 1))
	assert.False(t, p.Contains(ctx, 3))
	assert.ElementsMatch(t, []int64{1, 2}, p.ListAll(ctx))

	p.Remove(ctx, 1)
	assert.False(t, p.Contains(ctx, 1))
	assert.ElementsMatch(t, []int64{2}, p.ListAll(ctx))
}

func TestPresence_RedisDownDegrades(t *testing.T) {
	p, mr := newTestPresence(t)
	ctx := context.Background()

	p.Add(ctx, 1)
	mr.Close()

	// Failures are logged and swallowed; callers see an empty set.
	p.Add(ctx, 2)
	p.Remove(ctx, 1)
	assert.False(t, p.Contains(ctx, 1))
	assert.Empty(t, p.ListAll(ctx))
}
