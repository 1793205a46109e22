package poll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	polls  map[int64]*Poll
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{polls: make(map[int64]*Poll), nextID: 1}
}

func (f *fakeRepo) Create(_ context.Context, p *Poll) error {
	p.ID = f.nextID
	f.nextID++
	for i := range p.Options {
		p.Options[i].PollID = p.ID
	}
	cp := *p
	f.polls[p.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*Poll, error) {
	p, ok := f.polls[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context) ([]Poll, error) {
	out := make([]Poll, 0, len(f.polls))
	for _, p := range f.polls {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, p *Poll) error {
	cp := *p
	f.polls[p.ID] = &cp
	return nil
}

func (f *fakeRepo) AddOptions(_ context.Context, pollID int64, opts []Option) ([]Option, error) {
	p := f.polls[pollID]
	p.Options = append(p.Options, opts...)
	return opts, nil
}

func (f *fakeRepo) DeleteCascade(_ context.Context, id int64) error {
	delete(f.polls, id)
	return nil
}

type fakeEvictor struct {
	evicted []int64
}

func (f *fakeEvictor) Evict(_ context.Context, pollID int64) {
	f.evicted = append(f.evicted, pollID)
}

func validInput() CreateInput {
	return CreateInput{
		Question:     "tabs or spaces?",
		DurationDays: 7,
		CreatorID:    1,
		Visibility:   VisibilityPublic,
		Options: []Option{
			{Caption: "tabs"},
			{Caption: "spaces"},
		},
	}
}

func TestCreatePoll(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotZero(t, p.ID)
	assert.Equal(t, 1, p.MaxVotesPerUser, "defaults to single vote")
	require.Len(t, p.Options, 2)
	assert.Equal(t, 1, p.Options[0].Order)
	assert.Equal(t, 2, p.Options[1].Order)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), p.ValidUntil, time.Minute)
}

func TestCreatePoll_Validation(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty question", func(in *CreateInput) { in.Question = "" }},
		{"zero duration", func(in *CreateInput) { in.DurationDays = 0 }},
		{"one option", func(in *CreateInput) { in.Options = in.Options[:1] }},
		{"bad visibility", func(in *CreateInput) { in.Visibility = "FRIENDS" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.Create(ctx, in)
			assert.Error(t, err)
		})
	}
}

func TestCreatePoll_PrivateInvitesCreator(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	in := validInput()
	in.Visibility = VisibilityPrivate
	in.InvitedUserIDs = []int64{2, 3, 2}

	p, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, p.InvitedUserIDs)
}

func TestGetPoll_Visibility(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	in := validInput()
	in.Visibility = VisibilityPrivate
	in.InvitedUserIDs = []int64{2}
	p, err := svc.Create(ctx, in)
	require.NoError(t, err)

	invited := int64(2)
	outsider := int64(9)

	got, err := svc.Get(ctx, p.ID, &invited)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	// Outsiders and anonymous callers see not-found, not forbidden.
	_, err = svc.Get(ctx, p.ID, &outsider)
	assert.ErrorIs(t, err, ErrPollNotFound)
	_, err = svc.Get(ctx, p.ID, nil)
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestListPolls_FiltersPrivate(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Visibility = VisibilityPrivate
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)

	anon, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, anon, 1)

	creator := int64(1)
	mine, err := svc.List(ctx, &creator)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestUpdatePoll(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	before := p.ValidUntil

	ext := 3
	updated, err := svc.Update(ctx, p.ID, 1, &ext, []int64{4})
	require.NoError(t, err)
	assert.Equal(t, before.AddDate(0, 0, 3), updated.ValidUntil)
	assert.Contains(t, updated.InvitedUserIDs, int64(4))

	_, err = svc.Update(ctx, p.ID, 2, &ext, nil)
	assert.ErrorIs(t, err, ErrNotCreator)
}

func TestAddOptions(t *testing.T) {
	repo := newFakeRepo()
	ev := &fakeEvictor{}
	svc := NewService(repo, ev)
	ctx := context.Background()

	p, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	updated, err := svc.AddOptions(ctx, p.ID, 1, []Option{
		{Caption: "both"},
		{Caption: ""},
	})
	require.NoError(t, err)

	require.Len(t, updated.Options, 3, "blank captions are skipped")
	assert.Equal(t, 3, updated.Options[2].Order)
	assert.Equal(t, []int64{p.ID}, ev.evicted, "new options must invalidate cached results")
}

func TestDeletePoll(t *testing.T) {
	repo := newFakeRepo()
	ev := &fakeEvictor{}
	svc := NewService(repo, ev)
	ctx := context.Background()

	p, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, p.ID, 9), ErrNotCreator)

	require.NoError(t, svc.Delete(ctx, p.ID, 1))
	assert.Equal(t, []int64{p.ID}, ev.evicted)

	_, err = svc.Get(ctx, p.ID, nil)
	assert.ErrorIs(t, err, ErrPollNotFound)
}
