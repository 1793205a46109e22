package api

import (
	"encoding/json"
	"net/http"

	"pollfeed/internal/platform/apperr"
)

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userSvc.List(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleOnlineUsers exposes the presence set: who is currently logged in
// anywhere, across all instances.
func (h *Handler) handleOnlineUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"user_ids": h.presence.ListAll(r.Context()),
	})
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid user id", err))
		return
	}
	if id != mustUserID(r) {
		errorResponse(w, apperr.Forbidden("not_allowed", "users may only update themselves", nil))
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	u, err := h.userSvc.Update(r.Context(), id, req.Username, req.Email, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid user id", err))
		return
	}
	if id != mustUserID(r) {
		errorResponse(w, apperr.Forbidden("not_allowed", "users may only delete themselves", nil))
		return
	}

	if err := h.userSvc.Delete(r.Context(), id); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
