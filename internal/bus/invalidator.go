package bus

import (
	"context"
	"log/slog"

	"pollfeed/internal/metrics"
	"pollfeed/internal/realtime"
)

type Evictor interface {
	Evict(ctx context.Context, pollID int64)
}

type Broadcaster interface {
	Broadcast(d realtime.Delta)
}

// Invalidator is the cache-invalidation consumer: on every event it evicts
// the local results entry, and for votes that originated on another
// instance it also pushes the realtime delta to local clients. The
// originating instance already broadcast its own delta post-commit.
type Invalidator struct {
	cache      Evictor
	hub        Broadcaster
	instanceID string
	log        *slog.Logger
}

func NewInvalidator(cache Evictor, hub Broadcaster, instanceID string, log *slog.Logger) *Invalidator {
	if log == nil {
		log = slog.Default()
	}
	return &Invalidator{cache: cache, hub: hub, instanceID: instanceID, log: log}
}

func (i *Invalidator) HandleVoteChange(ctx context.Context, ev Event) {
	metrics.IncInvalidation()
	i.log.Debug("invalidation event", "poll_id", ev.PollID, "origin", ev.Origin)

	i.cache.Evict(ctx, ev.PollID)

	if i.hub != nil && ev.OptionOrder > 0 && ev.Origin != i.instanceID {
		i.hub.Broadcast(realtime.VoteDelta(ev.PollID, ev.OptionOrder, ev.VoteID, ev.VoterID))
	}
}
