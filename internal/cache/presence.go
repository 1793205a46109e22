package cache

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const presenceKey = "users:loggedIn"

// Presence tracks which users are currently logged in, shared across
// instances. It is an indicator only; losing it never affects
// authentication.
type Presence struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewPresence(rdb *redis.Client, log *slog.Logger) *Presence {
	if log == nil {
		log = slog.Default()
	}
	return &Presence{rdb: rdb, log: log}
}

func (p *Presence) Add(ctx context.Context, userID int64) {
	if err := p.rdb.SAdd(ctx, presenceKey, strconv.FormatInt(userID, 10)).Err(); err != nil {
		p.log.Warn("presence add failed", "user_id", userID, "err", err)
	}
}

func (p *Presence) Remove(ctx context.Context, userID int64) {
	if err := p.rdb.SRem(ctx, presenceKey, strconv.FormatInt(userID, 10)).Err(); err != nil {
		p.log.Warn("presence remove failed", "user_id", userID, "err", err)
	}
}

func (p *Presence) Contains(ctx context.Context, userID int64) bool {
	ok, err := p.rdb.SIsMember(ctx, presenceKey, strconv.FormatInt(userID, 10)).Result()
	if err != nil {
		p.log.Warn("presence lookup failed", "user_id", userID, "err", err)
		return false
	}
	return ok
}

func (p *Presence) ListAll(ctx context.Context) []int64 {
	members, err := p.rdb.SMembers(ctx, presenceKey).Result()
	if err != nil {
		p.log.Warn("presence listing failed", "err", err)
		return nil
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if id, err := strconv.ParseInt(m, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
