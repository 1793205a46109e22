package poll

import (
	"context"
	"time"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

type Poll struct {
	ID              int64      `json:"id"`
	Question        string     `json:"question"`
	CreatorID       int64      `json:"creator_id"`
	Visibility      Visibility `json:"visibility"`
	MaxVotesPerUser int        `json:"max_votes_per_user"`
	PublishedAt     time.Time  `json:"published_at"`
	ValidUntil      time.Time  `json:"valid_until"`
	Options         []Option   `json:"options"`
	InvitedUserIDs  []int64    `json:"invited_user_ids,omitempty"`
}

// Option identity is (poll, presentation order); captions may repeat across polls.
type Option struct {
	PollID  int64  `json:"poll_id"`
	Order   int    `json:"presentation_order"`
	Caption string `json:"caption"`
}

func (v Visibility) Private() bool { return v == VisibilityPrivate }

func (p *Poll) Expired(now time.Time) bool {
	return now.After(p.ValidUntil)
}

// Invited reports whether userID may see or vote on a private poll.
// The creator is always implicitly invited.
func (p *Poll) Invited(userID int64) bool {
	if userID == p.CreatorID {
		return true
	}
	for _, id := range p.InvitedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// VisibleTo applies the listing rule: public polls are visible to everyone,
// private polls only to the creator and invited users.
func (p *Poll) VisibleTo(userID *int64) bool {
	if p.Visibility == VisibilityPublic {
		return true
	}
	return userID != nil && p.Invited(*userID)
}

type Repository interface {
	Create(ctx context.Context, p *Poll) error
	GetByID(ctx context.Context, id int64) (*Poll, error)
	List(ctx context.Context) ([]Poll, error)
	// Update persists valid_until and the invited-user set.
	Update(ctx context.Context, p *Poll) error
	// AddOptions appends options and returns them with assigned orders.
	AddOptions(ctx context.Context, pollID int64, opts []Option) ([]Option, error)
	// DeleteCascade removes the poll with its options, votes and comments atomically.
	DeleteCascade(ctx context.Context, id int64) error
}
