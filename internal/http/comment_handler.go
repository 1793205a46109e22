package api

import (
	"encoding/json"
	"net/http"

	"pollfeed/internal/platform/apperr"
	"pollfeed/internal/realtime"
)

type addCommentRequest struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id"`
}

type editCommentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) handleTopLevelComments(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	page, err := h.commentSvc.TopLevel(r.Context(), pollID, queryInt(r, "offset", 0), queryInt(r, "limit", 5))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleCommentReplies(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}
	parentID := int64(queryInt(r, "parent_id", 0))
	if parentID == 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "parent_id is required", nil))
		return
	}

	page, err := h.commentSvc.Replies(r.Context(), pollID, parentID, queryInt(r, "offset", 0), queryInt(r, "limit", 3))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.Content == "" {
		errorResponse(w, apperr.BadRequest("invalid_input", "content is required", nil))
		return
	}

	c, err := h.commentSvc.Add(r.Context(), pollID, mustUserID(r), req.Content, req.ParentID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.hub.Broadcast(realtime.CommentDelta("comment-created", pollID, c.ID, c.ParentID))
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleEditComment(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}
	commentID, err := parseIDParam(r, "commentId")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid comment id", err))
		return
	}

	var req editCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.Content == "" {
		errorResponse(w, apperr.BadRequest("invalid_input", "content is required", nil))
		return
	}

	c, err := h.commentSvc.Edit(r.Context(), commentID, mustUserID(r), req.Content)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.hub.Broadcast(realtime.CommentDelta("comment-updated", pollID, c.ID, c.ParentID))
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}
	commentID, err := parseIDParam(r, "commentId")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid comment id", err))
		return
	}

	c, err := h.commentSvc.Delete(r.Context(), commentID, mustUserID(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.hub.Broadcast(realtime.CommentDelta("comment-deleted", pollID, c.ID, c.ParentID))
	w.WriteHeader(http.StatusNoContent)
}
