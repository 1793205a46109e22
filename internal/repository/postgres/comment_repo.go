package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pollfeed/internal/domain/comment"
)

type CommentRepo struct {
	db *sql.DB
}

func NewCommentRepo(db *sql.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

func (r *CommentRepo) Create(ctx context.Context, c *comment.Comment) error {
	var parent sql.NullInt64
	if c.ParentID != nil {
		parent = sql.NullInt64{Int64: *c.ParentID, Valid: true}
	}
	return r.db.QueryRowContext(ctx, `
        INSERT INTO comments (poll_id, author_id, content, parent_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `, c.PollID, c.AuthorID, c.Content, parent, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
}

func (r *CommentRepo) GetByID(ctx context.Context, id int64) (*comment.Comment, error) {
	c := &comment.Comment{}
	var parent sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
        SELECT id, poll_id, author_id, content, parent_id, created_at, updated_at
        FROM comments WHERE id = $1
    `, id).Scan(&c.ID, &c.PollID, &c.AuthorID, &c.Content, &parent, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		c.ParentID = &parent.Int64
	}
	return c, nil
}

func (r *CommentRepo) ListTopLevel(ctx context.Context, pollID int64, offset, limit int) ([]comment.Comment, error) {
	return r.list(ctx, `
        SELECT id, poll_id, author_id, content, parent_id, created_at, updated_at
        FROM comments WHERE poll_id = $1 AND parent_id IS NULL
        ORDER BY created_at DESC
        OFFSET $2 LIMIT $3
    `, pollID, offset, limit)
}

func (r *CommentRepo) CountTopLevel(ctx context.Context, pollID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM comments WHERE poll_id = $1 AND parent_id IS NULL
    `, pollID).Scan(&n)
	return n, err
}

func (r *CommentRepo) ListReplies(ctx context.Context, pollID, parentID int64, offset, limit int) ([]comment.Comment, error) {
	return r.list(ctx, `
        SELECT id, poll_id, author_id, content, parent_id, created_at, updated_at
        FROM comments WHERE poll_id = $1 AND parent_id = $2
        ORDER BY created_at ASC
        OFFSET $3 LIMIT $4
    `, pollID, parentID, offset, limit)
}

func (r *CommentRepo) CountReplies(ctx context.Context, pollID, parentID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM comments WHERE poll_id = $1 AND parent_id = $2
    `, pollID, parentID).Scan(&n)
	return n, err
}

func (r *CommentRepo) ChildIDs(ctx context.Context, parentID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id FROM comments WHERE parent_id = $1
    `, parentID)
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

func (r *CommentRepo) UpdateContent(ctx context.Context, id int64, content string, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE comments SET content = $1, updated_at = $2 WHERE id = $3
    `, content, updatedAt, id)
	return err
}

func (r *CommentRepo) DeleteAll(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Children first so the parent FK never dangles mid-transaction.
	for i := len(ids) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, ids[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *CommentRepo) list(ctx context.Context, query string, args ...any) ([]comment.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []comment.Comment
	for rows.Next() {
		var c comment.Comment
		var parent sql.NullInt64
		if err := rows.Scan(&c.ID, &c.PollID, &c.AuthorID, &c.Content, &parent, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if parent.Valid {
			c.ParentID = &parent.Int64
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
