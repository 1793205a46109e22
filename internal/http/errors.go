package api

import (
	"database/sql"
	"errors"
	"net/http"

	"pollfeed/internal/domain/comment"
	"pollfeed/internal/domain/poll"
	"pollfeed/internal/domain/user"
	"pollfeed/internal/domain/vote"
	"pollfeed/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("not_found", "resource not found", err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.BadRequest("email_taken", "email already taken", err)
	case errors.Is(err, user.ErrUserNotFound):
		return apperr.NotFound("user_not_found", "user not found", err)
	case errors.Is(err, poll.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, poll.ErrNotCreator):
		return apperr.Forbidden("not_creator", "only the poll creator may do this", err)
	case errors.Is(err, vote.ErrVoteLimit):
		return apperr.BadRequest("vote_limit_reached", "vote limit reached for this poll", err)
	case errors.Is(err, comment.ErrCommentNotFound):
		return apperr.NotFound("comment_not_found", "comment not found", err)
	case errors.Is(err, comment.ErrNotAllowed):
		return apperr.Forbidden("not_allowed", "only the author or the poll owner may do this", err)
	case errors.Is(err, comment.ErrBadParent):
		return apperr.BadRequest("bad_parent", "parent comment belongs to a different poll", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
