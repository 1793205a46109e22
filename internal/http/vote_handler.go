package api

import (
	"encoding/json"
	"net/http"

	"pollfeed/internal/metrics"
	"pollfeed/internal/platform/apperr"
)

type voteRequest struct {
	PresentationOrder int `json:"presentation_order"`
}

type voteResponse struct {
	Accepted bool `json:"accepted"`
}

// @Summary     Cast a vote
// @Description Anonymous votes are allowed on public polls; authenticated
// @Description votes are subject to visibility and per-user limits.
// @Tags        votes
// @Accept      json
// @Produce     json
// @Param       id       path      int64        true  "Poll ID"
// @Param       request  body      voteRequest  true  "Vote payload"
// @Success     200      {object}  voteResponse
// @Failure     400      {object}  map[string]string  "invalid body or vote limit reached"
// @Failure     429      {object}  map[string]string  "rate limited"
// @Failure     500      {object}  map[string]string  "server error"
// @Router      /api/v1/polls/{id}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.PresentationOrder <= 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "presentation_order is required", nil))
		return
	}

	accepted, err := h.voteEng.CastVote(r.Context(), pollID, userIDFromCtx(r), req.PresentationOrder)
	if err != nil {
		metrics.IncVote("error")
		errorResponse(w, err)
		return
	}

	if accepted {
		metrics.IncVote("accepted")
	} else {
		metrics.IncVote("rejected")
	}
	writeJSON(w, http.StatusOK, voteResponse{Accepted: accepted})
}

// @Summary     Poll results
// @Tags        polls
// @Produce     json
// @Param       id   path     int64  true  "Poll ID"
// @Success     200  {object} map[string]int64
// @Failure     400  {object}  map[string]string  "invalid poll id"
// @Failure     500  {object}  map[string]string  "server error"
// @Router      /api/v1/polls/{id}/results [get]
func (h *Handler) handlePollResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	res, err := h.results.Get(r.Context(), pollID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
