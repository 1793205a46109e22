package bus

import (
	"context"
	"log/slog"
	"time"

	"pollfeed/internal/domain/vote"
	"pollfeed/internal/retry"
)

// PublishHook turns an accepted vote into one invalidation event. It runs
// detached from the request: the vote already committed, so a publish
// failure is logged and absorbed by the cache TTL, never surfaced.
func PublishHook(p *Publisher, instanceID string, log *slog.Logger) vote.AcceptedHook {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, a vote.Accepted) {
		ev := Event{
			PollID:      a.PollID,
			OptionOrder: a.OptionOrder,
			VoteID:      a.VoteID,
			VoterID:     a.VoterID,
			Origin:      instanceID,
			At:          a.At,
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
			defer cancel()

			err := retry.DoWithRetry(ctx, 3, 200*time.Millisecond, func() error {
				return p.Publish(ctx, ev)
			})
			if err != nil {
				log.Warn("vote invalidation publish failed, relying on cache TTL",
					"poll_id", a.PollID, "err", err)
			}
		}()
	}
}
