package comment

import (
	"context"
	"errors"
	"time"

	"pollfeed/internal/domain/poll"
)

const maxContentLen = 2000

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotAllowed      = errors.New("only the author or the poll owner may do this")
	ErrBadParent       = errors.New("parent comment belongs to a different poll")
)

// PollFinder is the slice of the poll store the comment service needs for
// ownership checks.
type PollFinder interface {
	GetByID(ctx context.Context, id int64) (*poll.Poll, error)
}

type Service struct {
	repo  Repository
	polls PollFinder
}

func NewService(repo Repository, polls PollFinder) *Service {
	return &Service{repo: repo, polls: polls}
}

func (s *Service) Add(ctx context.Context, pollID, authorID int64, content string, parentID *int64) (*Comment, error) {
	if content == "" {
		return nil, errors.New("content required")
	}
	if len(content) > maxContentLen {
		return nil, errors.New("content too long")
	}

	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, poll.ErrPollNotFound
	}

	if parentID != nil {
		parent, err := s.repo.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrCommentNotFound
		}
		if parent.PollID != pollID {
			return nil, ErrBadParent
		}
	}

	now := time.Now()
	c := &Comment{
		PollID:    pollID,
		AuthorID:  authorID,
		Content:   content,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) TopLevel(ctx context.Context, pollID int64, offset, limit int) (Page, error) {
	offset, limit = clampWindow(offset, limit, 5)
	items, err := s.repo.ListTopLevel(ctx, pollID, offset, limit)
	if err != nil {
		return Page{}, err
	}
	total, err := s.repo.CountTopLevel(ctx, pollID)
	if err != nil {
		return Page{}, err
	}
	return NewPage(items, total, offset), nil
}

func (s *Service) Replies(ctx context.Context, pollID, parentID int64, offset, limit int) (Page, error) {
	offset, limit = clampWindow(offset, limit, 3)
	items, err := s.repo.ListReplies(ctx, pollID, parentID, offset, limit)
	if err != nil {
		return Page{}, err
	}
	total, err := s.repo.CountReplies(ctx, pollID, parentID)
	if err != nil {
		return Page{}, err
	}
	return NewPage(items, total, offset), nil
}

// Edit updates comment content. Allowed for the comment author or the owner
// of the poll the comment belongs to.
func (s *Service) Edit(ctx context.Context, commentID, requesterID int64, content string) (*Comment, error) {
	if content == "" {
		return nil, errors.New("content required")
	}
	if len(content) > maxContentLen {
		return nil, errors.New("content too long")
	}

	c, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCommentNotFound
	}
	if err := s.authorize(ctx, c, requesterID); err != nil {
		return nil, err
	}

	c.Content = content
	c.UpdatedAt = time.Now()
	if err := s.repo.UpdateContent(ctx, c.ID, c.Content, c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes the comment and its whole reply subtree. Traversal uses an
// explicit worklist over parent-id lookups so deep threads cannot blow the
// stack.
func (s *Service) Delete(ctx context.Context, commentID, requesterID int64) (*Comment, error) {
	c, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCommentNotFound
	}
	if err := s.authorize(ctx, c, requesterID); err != nil {
		return nil, err
	}

	toDelete := []int64{commentID}
	worklist := []int64{commentID}
	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		children, err := s.repo.ChildIDs(ctx, id)
		if err != nil {
			return nil, err
		}
		toDelete = append(toDelete, children...)
		worklist = append(worklist, children...)
	}

	if err := s.repo.DeleteAll(ctx, toDelete); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) authorize(ctx context.Context, c *Comment, requesterID int64) error {
	if c.AuthorID == requesterID {
		return nil
	}
	p, err := s.polls.GetByID(ctx, c.PollID)
	if err != nil {
		return err
	}
	if p != nil && p.CreatorID == requesterID {
		return nil
	}
	return ErrNotAllowed
}

func clampWindow(offset, limit, defLimit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defLimit
	}
	if limit > 100 {
		limit = 100
	}
	return offset, limit
}
