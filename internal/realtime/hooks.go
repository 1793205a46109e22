package realtime

import (
	"context"

	"pollfeed/internal/domain/vote"
)

// VoteBroadcastHook pushes the vote delta to clients connected to this
// instance. Remote instances pick theirs up from the invalidation bus.
func VoteBroadcastHook(h *Hub) vote.AcceptedHook {
	return func(_ context.Context, a vote.Accepted) {
		h.Broadcast(VoteDelta(a.PollID, a.OptionOrder, a.VoteID, a.VoterID))
	}
}
