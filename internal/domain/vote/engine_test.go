package vote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollfeed/internal/domain/poll"
	"pollfeed/internal/domain/user"
)

// fakeStore is an in-memory Store good enough for engine decisions.
type fakeStore struct {
	polls  map[int64]*poll.Poll
	users  map[int64]*user.User
	votes  []Vote
	nextID int64

	beginErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		polls:  make(map[int64]*poll.Poll),
		users:  make(map[int64]*user.User),
		nextID: 1,
	}
}

func (f *fakeStore) FindPoll(_ context.Context, pollID int64) (*poll.Poll, error) {
	return f.polls[pollID], nil
}

func (f *fakeStore) FindOption(_ context.Context, pollID int64, order int) (*poll.Option, error) {
	p := f.polls[pollID]
	if p == nil {
		return nil, nil
	}
	for i := range p.Options {
		if p.Options[i].Order == order {
			return &p.Options[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindUser(_ context.Context, userID int64) (*user.User, error) {
	return f.users[userID], nil
}

func (f *fakeStore) BeginVote(_ context.Context, _ int64, _ *int64) (Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &fakeTx{store: f}, nil
}

func (f *fakeStore) TallyByCaption(_ context.Context, pollID int64) (map[string]int64, error) {
	p := f.polls[pollID]
	if p == nil {
		return map[string]int64{}, nil
	}
	tally := make(map[string]int64, len(p.Options))
	for _, o := range p.Options {
		tally[o.Caption] = 0
	}
	for _, v := range f.votes {
		if v.PollID != pollID {
			continue
		}
		for _, o := range p.Options {
			if o.Order == v.OptionOrder {
				tally[o.Caption]++
			}
		}
	}
	return tally, nil
}

// fakeTx applies writes to a staging slice; Commit publishes them to the store
// so a rolled-back transaction leaves no trace.
type fakeTx struct {
	store     *fakeStore
	staged    []Vote
	deleted   []int64
	committed bool
}

func (t *fakeTx) VotesByVoter(_ context.Context, voterID, pollID int64) ([]Vote, error) {
	var out []Vote
	for _, v := range t.store.votes {
		if v.PollID == pollID && v.VoterID != nil && *v.VoterID == voterID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (t *fakeTx) CountVotes(ctx context.Context, voterID, pollID int64) (int, error) {
	vs, err := t.VotesByVoter(ctx, voterID, pollID)
	return len(vs), err
}

func (t *fakeTx) RecordVote(_ context.Context, v *Vote) error {
	v.ID = t.store.nextID
	t.store.nextID++
	t.staged = append(t.staged, *v)
	return nil
}

func (t *fakeTx) ReplaceVote(ctx context.Context, oldID int64, v *Vote) error {
	t.deleted = append(t.deleted, oldID)
	return t.RecordVote(ctx, v)
}

func (t *fakeTx) Commit() error {
	kept := t.store.votes[:0]
	for _, v := range t.store.votes {
		drop := false
		for _, id := range t.deleted {
			if v.ID == id {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, v)
		}
	}
	t.store.votes = append(kept, t.staged...)
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error { return nil }

func seedPoll(f *fakeStore, id int64, maxVotes int, vis poll.Visibility) *poll.Poll {
	p := &poll.Poll{
		ID:              id,
		Question:        "tabs or spaces?",
		CreatorID:       1,
		Visibility:      vis,
		MaxVotesPerUser: maxVotes,
		PublishedAt:     time.Now().Add(-time.Hour),
		ValidUntil:      time.Now().Add(24 * time.Hour),
		Options: []poll.Option{
			{PollID: id, Order: 1, Caption: "A"},
			{PollID: id, Order: 2, Caption: "B"},
		},
	}
	f.polls[id] = p
	return p
}

func seedUser(f *fakeStore, id int64) {
	f.users[id] = &user.User{ID: id, Username: "u", Email: "u@example.com"}
}

func ptr(v int64) *int64 { return &v }

func TestCastVote_Accepted(t *testing.T) {
	store := newFakeStore()
	seedPoll(store, 10, 1, poll.VisibilityPublic)
	seedUser(store, 5)

	eng := NewEngine(store, nil)

	accepted, err := eng.CastVote(context.Background(), 10, ptr(5), 1)
	require.NoError(t, err)
	assert.True(t, accepted)
	require.Len(t, store.votes, 1)
	assert.Equal(t, 1, store.votes[0].OptionOrder)
}

func TestCastVote_Rejections(t *testing.T) {
	store := newFakeStore()
	seedPoll(store, 10, 1, poll.VisibilityPublic)
	expired := seedPoll(store, 11, 1, poll.VisibilityPublic)
	expired.ValidUntil = time.Now().Add(-time.Minute)
	seedPoll(store, 12, 1, poll.VisibilityPrivate)
	seedUser(store, 5)

	eng := NewEngine(store, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		pollID  int64
		voterID *int64
		order   int
	}{
		{"unknown poll", 99, ptr(5), 1},
		{"expired poll", 11, ptr(5), 1},
		{"unknown option", 10, ptr(5), 7},
		{"unknown voter", 10, ptr(99), 1},
		{"uninvited voter on private poll", 12, ptr(5), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accepted, err := eng.CastVote(ctx, tt.pollID, tt.voterID, tt.order)
			require.NoError(t, err, "business rejections are not errors")
			assert.False(t, accepted)
		})
	}
	assert.Empty(t, store.votes, "rejected votes must leave no rows")
}

func TestCastVote_PrivatePollInvited(t *testing.T) {
	store := newFakeStore()
	p := seedPoll(store, 12, 1, poll.VisibilityPrivate)
	p.InvitedUserIDs = []int64{5}
	seedUser(store, 5)
	seedUser(store, 1)

	eng := NewEngine(store, nil)

	accepted, err := eng.CastVote(context.Background(), 12, ptr(5), 1)
	require.NoError(t, err)
	assert.True(t, accepted)

	// The creator is implicitly invited.
	accepted, err = eng.CastVote(context.Background(), 12, ptr(1), 2)
	require.NoError(t, err)
	assert.True(t, accepted)
}

func TestCastVote_SameOptionIdempotent(t *testing.T) {
	store := newFakeStore()
	seedPoll(store, 10, 1, poll.VisibilityPublic)
	seedUser(store, 5)

	eng := NewEngine(store, nil)
	hooks := 0
	eng.OnAccepted(func(context.Context, Accepted) { hooks++ })
	ctx := context.Background()

	accepted, err := eng.CastVote(ctx, 10, ptr(5), 1)
	require.NoError(t, err)
	require.True(t, accepted)
	require.Equal(t, 1, hooks)

	// Re-voting the same option is a no-op: accepted, no new row, no hooks.
	accepted, err = eng.CastVote(ctx, 10, ptr(5), 1)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Len(t, store.votes, 1)
	assert.Equal(t, 1, hooks)
}

func TestCastVote_ReplaceOnDifferentOption(t *testing.T) {
	store := newFakeStore()
	seedPoll(store, 10, 1, poll.VisibilityPublic)
	seedUser(store, 5)

	eng := NewEngine(store, nil)
	ctx := context.Background()

	_, err := eng.CastVote(ctx, 10, ptr(5), 1)
	require.NoError(t, err)
	oldID := store.votes[0].ID

	accepted, err := eng.CastVote(ctx, 10, ptr(5), 2)
	require.NoError(t, err)
	assert.True(t, accepted)

	require.Len(t, store.votes, 1, "replace keeps exactly one vote per voter")
	assert.Equal(t, 2, store.votes[0].OptionOrder)
	assert.NotEqual(t, oldID, store.votes[0].ID, "replacement is a new row")

	tally, err := store.TallyByCaption(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 0, "B": 1}, tally)
}

func TestCastVote_MultiVoteLimit(t *testing.T) {
	store := newFakeStore()
	seedPoll(store, 10, 2, poll.VisibilityPublic)
	seedUser(store, 5)

	eng := NewEngine(store, nil)
	ctx := context.Background()

	for _, order := range []int{1, 2} {
		accepted, err := eng.CastVote(ctx, 10, ptr(5), order)
		require.NoError(t, err)
		require.True(t, accepted)
	}

	// Third cast breaches max_votes_per_user=2 and is fatal.
	accepted, err := eng.CastVote(ctx, 10, ptr(5), 1)
	assert.ErrorIs(t, err, ErrVoteLimit)
	assert.False(t, accepted)
	assert.Len(t, store.votes, 2)
}

func TestCastVote_MultiVoteNeverReplaces(t *testing.T) {
	store := newFakeStore()
	seedPoll(store, 10, 3, poll.VisibilityPublic)
	seedUser(store, 5)

	eng := NewEngine(store, nil)
	ctx := context.Background()

	// Same option twice on a multi-vote poll: both rows stand.
	for i := 0; i < 2; i++ {
		accepted, err := eng.CastVote(ctx, 10, ptr(5), 1)
		require.NoError(t, err)
		require.True(t, accepted)
	}
	assert.Len(t, store.votes, 2)
}

func TestCastVote_Anonymous(t *testing.T) {
	store := newFakeStore()
	seedPoll(store, 10, 1, poll.VisibilityPublic)

	eng := NewEngine(store, nil)
	ctx := context.Background()

	// Anonymous votes are unlimited and never replaced.
	for i := 0; i < 3; i++ {
		accepted, err := eng.CastVote(ctx, 10, nil, 1)
		require.NoError(t, err)
		require.True(t, accepted)
	}
	assert.Len(t, store.votes, 3)
	for _, v := range store.votes {
		assert.Nil(t, v.VoterID)
	}
}

func TestCastVote_HooksAfterCommitOnly(t *testing.T) {
	store := newFakeStore()
	seedPoll(store, 10, 1, poll.VisibilityPublic)
	seedUser(store, 5)

	eng := NewEngine(store, nil)

	var got []Accepted
	eng.OnAccepted(func(_ context.Context, a Accepted) {
		assert.Len(t, store.votes, 1, "hook must observe the committed vote")
		got = append(got, a)
	})

	_, err := eng.CastVote(context.Background(), 10, ptr(5), 2)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].PollID)
	assert.Equal(t, 2, got[0].OptionOrder)
	assert.Equal(t, "B", got[0].Caption)
	require.NotNil(t, got[0].VoterID)
	assert.Equal(t, int64(5), *got[0].VoterID)
}

func TestCastVote_NoHooksOnRejection(t *testing.T) {
	store := newFakeStore()
	seedPoll(store, 10, 1, poll.VisibilityPublic)

	eng := NewEngine(store, nil)
	hooks := 0
	eng.OnAccepted(func(context.Context, Accepted) { hooks++ })

	accepted, err := eng.CastVote(context.Background(), 10, ptr(99), 1)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Zero(t, hooks)
}

func TestCastVote_StoreFailure(t *testing.T) {
	store := newFakeStore()
	seedPoll(store, 10, 1, poll.VisibilityPublic)
	seedUser(store, 5)
	store.beginErr = errors.New("connection reset")

	eng := NewEngine(store, nil)

	accepted, err := eng.CastVote(context.Background(), 10, ptr(5), 1)
	assert.Error(t, err)
	assert.False(t, accepted)
}
