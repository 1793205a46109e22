package api

import (
	"encoding/json"
	"net/http"

	"pollfeed/internal/domain/poll"
	"pollfeed/internal/platform/apperr"
	"pollfeed/internal/realtime"
)

type optionInput struct {
	Caption           string `json:"caption"`
	PresentationOrder int    `json:"presentation_order"`
}

type createPollRequest struct {
	Question        string        `json:"question"`
	DurationDays    int           `json:"duration_days"`
	Visibility      string        `json:"visibility"`
	MaxVotesPerUser int           `json:"max_votes_per_user"`
	InvitedUserIDs  []int64       `json:"invited_user_ids"`
	Options         []optionInput `json:"options"`
}

type updatePollRequest struct {
	ExtendDays *int    `json:"extend_days"`
	NewInvites []int64 `json:"new_invites"`
}

type addOptionsRequest struct {
	Options []optionInput `json:"options"`
}

func toOptions(in []optionInput) []poll.Option {
	opts := make([]poll.Option, 0, len(in))
	for _, o := range in {
		opts = append(opts, poll.Option{Caption: o.Caption, Order: o.PresentationOrder})
	}
	return opts
}

func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	p, err := h.pollSvc.Create(r.Context(), poll.CreateInput{
		Question:        req.Question,
		DurationDays:    req.DurationDays,
		CreatorID:       mustUserID(r),
		Visibility:      poll.Visibility(req.Visibility),
		MaxVotesPerUser: req.MaxVotesPerUser,
		InvitedUserIDs:  req.InvitedUserIDs,
		Options:         toOptions(req.Options),
	})
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", err.Error(), err))
		return
	}

	h.hub.Broadcast(realtime.PollDelta("poll-created", p.ID))
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.pollSvc.List(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, polls)
}

func (h *Handler) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	p, err := h.pollSvc.Get(r.Context(), pollID, userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdatePoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req updatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	p, err := h.pollSvc.Update(r.Context(), pollID, mustUserID(r), req.ExtendDays, req.NewInvites)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.hub.Broadcast(realtime.PollDelta("poll-updated", p.ID))
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleAddOptions(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req addOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	p, err := h.pollSvc.AddOptions(r.Context(), pollID, mustUserID(r), toOptions(req.Options))
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.hub.Broadcast(realtime.PollDelta("poll-updated", p.ID))
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	if err := h.pollSvc.Delete(r.Context(), pollID, mustUserID(r)); err != nil {
		errorResponse(w, err)
		return
	}

	h.hub.Broadcast(realtime.PollDelta("poll-deleted", pollID))
	w.WriteHeader(http.StatusNoContent)
}
