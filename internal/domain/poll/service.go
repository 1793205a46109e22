package poll

import (
	"context"
	"errors"
	"sort"
	"time"
)

var (
	ErrPollNotFound = errors.New("poll not found")
	ErrNotCreator   = errors.New("only the poll creator may do this")
)

// Evictor drops cached results for a poll. Eviction of an absent entry is a no-op.
type Evictor interface {
	Evict(ctx context.Context, pollID int64)
}

type Service struct {
	repo  Repository
	cache Evictor
}

func NewService(repo Repository, cache Evictor) *Service {
	return &Service{repo: repo, cache: cache}
}

type CreateInput struct {
	Question        string
	DurationDays    int
	CreatorID       int64
	Visibility      Visibility
	MaxVotesPerUser int
	InvitedUserIDs  []int64
	Options         []Option
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Poll, error) {
	if in.Question == "" {
		return nil, errors.New("question required")
	}
	if in.DurationDays <= 0 {
		return nil, errors.New("duration must be positive")
	}
	if len(in.Options) < 2 {
		return nil, errors.New("poll must have at least 2 options")
	}
	if in.Visibility != VisibilityPublic && in.Visibility != VisibilityPrivate {
		return nil, errors.New("invalid visibility")
	}
	if in.MaxVotesPerUser <= 0 {
		in.MaxVotesPerUser = 1
	}

	now := time.Now()
	p := &Poll{
		Question:        in.Question,
		CreatorID:       in.CreatorID,
		Visibility:      in.Visibility,
		MaxVotesPerUser: in.MaxVotesPerUser,
		PublishedAt:     now,
		ValidUntil:      now.AddDate(0, 0, in.DurationDays),
		Options:         normalizeOptions(in.Options),
	}

	if in.Visibility == VisibilityPrivate {
		p.InvitedUserIDs = dedupe(append(in.InvitedUserIDs, in.CreatorID))
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the poll if userID may see it, ErrPollNotFound otherwise.
// A private poll is indistinguishable from a missing one for outsiders.
func (s *Service) Get(ctx context.Context, id int64, userID *int64) (*Poll, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.VisibleTo(userID) {
		return nil, ErrPollNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, userID *int64) ([]Poll, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]Poll, 0, len(all))
	for _, p := range all {
		if p.VisibleTo(userID) {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// Update extends the poll's validity and/or appends invites. Validity only
// ever grows; there is no way to shorten a published poll.
func (s *Service) Update(ctx context.Context, pollID, userID int64, extendDays *int, newInvites []int64) (*Poll, error) {
	p, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPollNotFound
	}
	if p.CreatorID != userID {
		return nil, ErrNotCreator
	}

	if len(newInvites) > 0 {
		p.InvitedUserIDs = dedupe(append(p.InvitedUserIDs, newInvites...))
	}
	if extendDays != nil && *extendDays > 0 {
		p.ValidUntil = p.ValidUntil.AddDate(0, 0, *extendDays)
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddOptions appends options to a poll; the option set is append-only.
// Blank captions are skipped and missing orders get max+1. Cached results
// are evicted so the new captions show up with zero counts.
func (s *Service) AddOptions(ctx context.Context, pollID, userID int64, opts []Option) (*Poll, error) {
	p, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPollNotFound
	}
	if p.CreatorID != userID {
		return nil, ErrNotCreator
	}

	maxOrder := 0
	for _, o := range p.Options {
		if o.Order > maxOrder {
			maxOrder = o.Order
		}
	}

	toAdd := make([]Option, 0, len(opts))
	for _, o := range opts {
		if o.Caption == "" {
			continue
		}
		if o.Order <= 0 {
			maxOrder++
			o.Order = maxOrder
		} else if o.Order > maxOrder {
			maxOrder = o.Order
		}
		o.PollID = pollID
		toAdd = append(toAdd, o)
	}
	if len(toAdd) == 0 {
		return p, nil
	}

	added, err := s.repo.AddOptions(ctx, pollID, toAdd)
	if err != nil {
		return nil, err
	}
	p.Options = append(p.Options, added...)
	sort.Slice(p.Options, func(i, j int) bool { return p.Options[i].Order < p.Options[j].Order })

	if s.cache != nil {
		s.cache.Evict(ctx, pollID)
	}
	return p, nil
}

// Delete removes the poll with its options, votes and comments and evicts
// cached results. Creator-only.
func (s *Service) Delete(ctx context.Context, pollID, userID int64) error {
	p, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrPollNotFound
	}
	if p.CreatorID != userID {
		return ErrNotCreator
	}

	if err := s.repo.DeleteCascade(ctx, pollID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Evict(ctx, pollID)
	}
	return nil
}

func normalizeOptions(opts []Option) []Option {
	out := make([]Option, 0, len(opts))
	next := 0
	for _, o := range opts {
		if o.Caption == "" {
			continue
		}
		if o.Order <= 0 {
			next++
			o.Order = next
		} else if o.Order > next {
			next = o.Order
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
