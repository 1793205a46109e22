package vote

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrVoteLimit is a fatal validation error, not an ordinary rejection: a
// client that respects poll metadata never hits it.
var ErrVoteLimit = errors.New("vote limit reached for this poll")

// Accepted describes a vote that durably committed. Hooks receive it after
// the store transaction succeeded, never before.
type Accepted struct {
	PollID      int64
	OptionOrder int
	Caption     string
	VoteID      int64
	VoterID     *int64
	At          time.Time
}

type AcceptedHook func(ctx context.Context, a Accepted)

// Engine decides whether a vote is accepted and persists it. Expected
// business rejections come back as (false, nil); errors are reserved for
// store failures and limit breaches.
type Engine struct {
	store Store
	after []AcceptedHook
	log   *slog.Logger
}

func NewEngine(store Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, log: log}
}

// OnAccepted registers a post-commit hook. Hooks run in registration order
// and must not fail the vote; anything slow or fallible belongs in a
// goroutine inside the hook.
func (e *Engine) OnAccepted(h AcceptedHook) {
	e.after = append(e.after, h)
}

func (e *Engine) CastVote(ctx context.Context, pollID int64, voterID *int64, order int) (bool, error) {
	p, err := e.store.FindPoll(ctx, pollID)
	if err != nil {
		return false, err
	}
	if p == nil || p.Expired(time.Now()) {
		return false, nil
	}

	opt, err := e.store.FindOption(ctx, pollID, order)
	if err != nil {
		return false, err
	}
	if opt == nil {
		return false, nil
	}

	if voterID != nil {
		u, err := e.store.FindUser(ctx, *voterID)
		if err != nil {
			return false, err
		}
		if u == nil {
			return false, nil
		}
		if p.Visibility.Private() && !p.Invited(*voterID) {
			return false, nil
		}
	}

	tx, err := e.store.BeginVote(ctx, pollID, voterID)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	v := &Vote{PollID: pollID, OptionOrder: order, VoterID: voterID, CastAt: time.Now()}

	// Anonymous votes are never limited or replaced; there is no identity
	// to key a replacement on.
	switch {
	case voterID == nil:
		if err := tx.RecordVote(ctx, v); err != nil {
			return false, err
		}

	case p.MaxVotesPerUser == 1:
		existing, err := tx.VotesByVoter(ctx, *voterID, pollID)
		if err != nil {
			return false, err
		}
		if len(existing) > 0 {
			if existing[0].OptionOrder == order {
				// Same option re-voted: idempotent, no new row, no events.
				return true, tx.Commit()
			}
			if err := tx.ReplaceVote(ctx, existing[0].ID, v); err != nil {
				return false, err
			}
			break
		}
		if err := tx.RecordVote(ctx, v); err != nil {
			return false, err
		}

	default:
		n, err := tx.CountVotes(ctx, *voterID, pollID)
		if err != nil {
			return false, err
		}
		if n >= p.MaxVotesPerUser {
			return false, ErrVoteLimit
		}
		if err := tx.RecordVote(ctx, v); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	a := Accepted{
		PollID:      pollID,
		OptionOrder: order,
		Caption:     opt.Caption,
		VoteID:      v.ID,
		VoterID:     voterID,
		At:          v.CastAt,
	}
	for _, h := range e.after {
		h(ctx, a)
	}
	return true, nil
}
