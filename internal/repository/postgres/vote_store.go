package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pollfeed/internal/domain/poll"
	"pollfeed/internal/domain/user"
	"pollfeed/internal/domain/vote"
)

// VoteStore implements the vote engine's store contract on postgres.
type VoteStore struct {
	db    *sql.DB
	polls *PollRepo
	users *UserRepo
}

func NewVoteStore(db *sql.DB, polls *PollRepo, users *UserRepo) *VoteStore {
	return &VoteStore{db: db, polls: polls, users: users}
}

func (s *VoteStore) FindPoll(ctx context.Context, pollID int64) (*poll.Poll, error) {
	return s.polls.GetByID(ctx, pollID)
}

func (s *VoteStore) FindOption(ctx context.Context, pollID int64, order int) (*poll.Option, error) {
	o := &poll.Option{PollID: pollID, Order: order}
	err := s.db.QueryRowContext(ctx, `
        SELECT caption FROM options WHERE poll_id = $1 AND presentation_order = $2
    `, pollID, order).Scan(&o.Caption)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *VoteStore) FindUser(ctx context.Context, userID int64) (*user.User, error) {
	return s.users.GetByID(ctx, userID)
}

// BeginVote opens the vote transaction. For identified voters it takes a
// transaction-scoped advisory lock derived from (poll, voter), so two
// concurrent casts by the same voter on the same poll serialize and cannot
// both observe "no existing vote".
func (s *VoteStore) BeginVote(ctx context.Context, pollID int64, voterID *int64) (vote.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	if voterID != nil {
		key := pollID<<32 ^ *voterID
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	return &voteTx{tx: tx}, nil
}

func (s *VoteStore) TallyByCaption(ctx context.Context, pollID int64) (map[string]int64, error) {
	// LEFT JOIN so options without votes show up with a zero count.
	rows, err := s.db.QueryContext(ctx, `
        SELECT o.caption, COUNT(v.id)
        FROM options o
        LEFT JOIN votes v
          ON v.poll_id = o.poll_id AND v.presentation_order = o.presentation_order
        WHERE o.poll_id = $1
        GROUP BY o.caption
    `, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tally := make(map[string]int64)
	for rows.Next() {
		var caption string
		var n int64
		if err := rows.Scan(&caption, &n); err != nil {
			return nil, err
		}
		tally[caption] = n
	}
	return tally, rows.Err()
}

type voteTx struct {
	tx *sql.Tx
}

func (t *voteTx) VotesByVoter(ctx context.Context, voterID, pollID int64) ([]vote.Vote, error) {
	rows, err := t.tx.QueryContext(ctx, `
        SELECT id, poll_id, presentation_order, voter_id, cast_at
        FROM votes WHERE voter_id = $1 AND poll_id = $2
        ORDER BY cast_at
    `, voterID, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []vote.Vote
	for rows.Next() {
		var v vote.Vote
		var voter sql.NullInt64
		if err := rows.Scan(&v.ID, &v.PollID, &v.OptionOrder, &voter, &v.CastAt); err != nil {
			return nil, err
		}
		if voter.Valid {
			v.VoterID = &voter.Int64
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (t *voteTx) CountVotes(ctx context.Context, voterID, pollID int64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM votes WHERE voter_id = $1 AND poll_id = $2
    `, voterID, pollID).Scan(&n)
	return n, err
}

func (t *voteTx) RecordVote(ctx context.Context, v *vote.Vote) error {
	var voter sql.NullInt64
	if v.VoterID != nil {
		voter = sql.NullInt64{Int64: *v.VoterID, Valid: true}
	}
	return t.tx.QueryRowContext(ctx, `
        INSERT INTO votes (poll_id, presentation_order, voter_id, cast_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `, v.PollID, v.OptionOrder, voter, v.CastAt).Scan(&v.ID)
}

func (t *voteTx) ReplaceVote(ctx context.Context, oldID int64, v *vote.Vote) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM votes WHERE id = $1`, oldID); err != nil {
		return err
	}
	return t.RecordVote(ctx, v)
}

func (t *voteTx) Commit() error   { return t.tx.Commit() }
func (t *voteTx) Rollback() error { return t.tx.Rollback() }
