package vote

import (
	"context"
	"time"

	"pollfeed/internal/domain/poll"
	"pollfeed/internal/domain/user"
)

// Vote rows are immutable; changing a choice is delete-old + insert-new.
type Vote struct {
	ID          int64     `json:"id"`
	PollID      int64     `json:"poll_id"`
	OptionOrder int       `json:"presentation_order"`
	VoterID     *int64    `json:"voter_id,omitempty"`
	CastAt      time.Time `json:"cast_at"`
}

// Store is the durable poll store seen by the engine. Lookup methods return
// (nil, nil) when the entity does not exist; errors are reserved for
// infrastructure failures.
type Store interface {
	FindPoll(ctx context.Context, pollID int64) (*poll.Poll, error)
	FindOption(ctx context.Context, pollID int64, order int) (*poll.Option, error)
	FindUser(ctx context.Context, userID int64) (*user.User, error)

	// BeginVote opens the transaction in which a vote decision is made and
	// persisted. For identified voters it acquires a per-poll/per-voter
	// serialization point so concurrent casts by the same voter cannot both
	// observe "no existing vote".
	BeginVote(ctx context.Context, pollID int64, voterID *int64) (Tx, error)

	// TallyByCaption groups live votes by the chosen option's caption.
	TallyByCaption(ctx context.Context, pollID int64) (map[string]int64, error)
}

type Tx interface {
	VotesByVoter(ctx context.Context, voterID, pollID int64) ([]Vote, error)
	CountVotes(ctx context.Context, voterID, pollID int64) (int, error)
	RecordVote(ctx context.Context, v *Vote) error
	// ReplaceVote atomically removes the old vote and inserts the new one.
	ReplaceVote(ctx context.Context, oldID int64, v *Vote) error
	Commit() error
	Rollback() error
}
