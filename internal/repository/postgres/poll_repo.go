package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pollfeed/internal/domain/poll"
)

type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
        INSERT INTO polls (question, creator_id, visibility, max_votes_per_user, published_at, valid_until)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `, p.Question, p.CreatorID, p.Visibility, p.MaxVotesPerUser, p.PublishedAt, p.ValidUntil).Scan(&p.ID)
	if err != nil {
		return err
	}

	for i := range p.Options {
		p.Options[i].PollID = p.ID
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO options (poll_id, presentation_order, caption)
            VALUES ($1, $2, $3)
        `, p.ID, p.Options[i].Order, p.Options[i].Caption); err != nil {
			return err
		}
	}

	for _, uid := range p.InvitedUserIDs {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO poll_invites (poll_id, user_id) VALUES ($1, $2)
            ON CONFLICT DO NOTHING
        `, p.ID, uid); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, error) {
	p := &poll.Poll{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, question, creator_id, visibility, max_votes_per_user, published_at, valid_until
        FROM polls WHERE id = $1
    `, id).Scan(&p.ID, &p.Question, &p.CreatorID, &p.Visibility, &p.MaxVotesPerUser, &p.PublishedAt, &p.ValidUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if p.Options, err = r.optionsFor(ctx, id); err != nil {
		return nil, err
	}
	if p.InvitedUserIDs, err = r.invitesFor(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PollRepo) List(ctx context.Context) ([]poll.Poll, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, question, creator_id, visibility, max_votes_per_user, published_at, valid_until
        FROM polls ORDER BY published_at DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []poll.Poll
	byID := make(map[int64]int)
	for rows.Next() {
		var p poll.Poll
		if err := rows.Scan(&p.ID, &p.Question, &p.CreatorID, &p.Visibility,
			&p.MaxVotesPerUser, &p.PublishedAt, &p.ValidUntil); err != nil {
			return nil, err
		}
		byID[p.ID] = len(res)
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	optRows, err := r.db.QueryContext(ctx, `
        SELECT poll_id, presentation_order, caption
        FROM options ORDER BY poll_id, presentation_order
    `)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()
	for optRows.Next() {
		var o poll.Option
		if err := optRows.Scan(&o.PollID, &o.Order, &o.Caption); err != nil {
			return nil, err
		}
		if i, ok := byID[o.PollID]; ok {
			res[i].Options = append(res[i].Options, o)
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, err
	}

	invRows, err := r.db.QueryContext(ctx, `SELECT poll_id, user_id FROM poll_invites`)
	if err != nil {
		return nil, err
	}
	defer invRows.Close()
	for invRows.Next() {
		var pollID, userID int64
		if err := invRows.Scan(&pollID, &userID); err != nil {
			return nil, err
		}
		if i, ok := byID[pollID]; ok {
			res[i].InvitedUserIDs = append(res[i].InvitedUserIDs, userID)
		}
	}
	return res, invRows.Err()
}

func (r *PollRepo) Update(ctx context.Context, p *poll.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
        UPDATE polls SET valid_until = $1 WHERE id = $2
    `, p.ValidUntil, p.ID); err != nil {
		return err
	}

	for _, uid := range p.InvitedUserIDs {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO poll_invites (poll_id, user_id) VALUES ($1, $2)
            ON CONFLICT DO NOTHING
        `, p.ID, uid); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PollRepo) AddOptions(ctx context.Context, pollID int64, opts []poll.Option) ([]poll.Option, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Serialize concurrent appends so presentation orders stay unique.
	if _, err := tx.ExecContext(ctx, `SELECT id FROM polls WHERE id = $1 FOR UPDATE`, pollID); err != nil {
		return nil, err
	}

	for i := range opts {
		opts[i].PollID = pollID
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO options (poll_id, presentation_order, caption)
            VALUES ($1, $2, $3)
        `, pollID, opts[i].Order, opts[i].Caption); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (r *PollRepo) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM votes WHERE poll_id = $1`,
		`DELETE FROM comments WHERE poll_id = $1`,
		`DELETE FROM poll_invites WHERE poll_id = $1`,
		`DELETE FROM options WHERE poll_id = $1`,
		`DELETE FROM polls WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PollRepo) optionsFor(ctx context.Context, pollID int64) ([]poll.Option, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT poll_id, presentation_order, caption
        FROM options WHERE poll_id = $1
        ORDER BY presentation_order
    `, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opts []poll.Option
	for rows.Next() {
		var o poll.Option
		if err := rows.Scan(&o.PollID, &o.Order, &o.Caption); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

func (r *PollRepo) invitesFor(ctx context.Context, pollID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT user_id FROM poll_invites WHERE poll_id = $1
    `, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
