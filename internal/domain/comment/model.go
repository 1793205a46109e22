package comment

import (
	"context"
	"time"
)

type Comment struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page is an offset/limit window over a comment listing.
type Page struct {
	Items      []Comment `json:"items"`
	Total      int64     `json:"total"`
	HasMore    bool      `json:"has_more"`
	NextOffset int       `json:"next_offset"`
}

func NewPage(items []Comment, total int64, offset int) Page {
	consumed := offset + len(items)
	return Page{
		Items:      items,
		Total:      total,
		HasMore:    int64(consumed) < total,
		NextOffset: consumed,
	}
}

type Repository interface {
	Create(ctx context.Context, c *Comment) error
	GetByID(ctx context.Context, id int64) (*Comment, error)
	ListTopLevel(ctx context.Context, pollID int64, offset, limit int) ([]Comment, error)
	CountTopLevel(ctx context.Context, pollID int64) (int64, error)
	ListReplies(ctx context.Context, pollID, parentID int64, offset, limit int) ([]Comment, error)
	CountReplies(ctx context.Context, pollID, parentID int64) (int64, error)
	// ChildIDs returns direct children only; subtree traversal is the
	// service's job.
	ChildIDs(ctx context.Context, parentID int64) ([]int64, error)
	UpdateContent(ctx context.Context, id int64, content string, updatedAt time.Time) error
	DeleteAll(ctx context.Context, ids []int64) error
}
