package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"pollfeed/internal/cache"
	"pollfeed/internal/domain/comment"
	"pollfeed/internal/domain/poll"
	"pollfeed/internal/domain/user"
	"pollfeed/internal/domain/vote"
	jwtpkg "pollfeed/internal/platform/jwt"
	"pollfeed/internal/realtime"
)

type Handler struct {
	userSvc    *user.Service
	pollSvc    *poll.Service
	voteEng    *vote.Engine
	commentSvc *comment.Service
	results    *cache.Results
	presence   *cache.Presence
	hub        *realtime.Hub
	jwtMgr     *jwtpkg.Manager
	db         *sql.DB
	rdb        *redis.Client
}

func NewRouter(
	userSvc *user.Service,
	pollSvc *poll.Service,
	voteEng *vote.Engine,
	commentSvc *comment.Service,
	results *cache.Results,
	presence *cache.Presence,
	hub *realtime.Hub,
	jwtMgr *jwtpkg.Manager,
	db *sql.DB,
	rdb *redis.Client,
) http.Handler {
	h := &Handler{
		userSvc:    userSvc,
		pollSvc:    pollSvc,
		voteEng:    voteEng,
		commentSvc: commentSvc,
		results:    results,
		presence:   presence,
		hub:        hub,
		jwtMgr:     jwtMgr,
		db:         db,
		rdb:        rdb,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/ws", hub.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)

		// Reads and voting work for anonymous clients too; identity is
		// attached when a token is present.
		r.Group(func(r chi.Router) {
			r.Use(OptionalAuthMiddleware(jwtMgr))

			r.Get("/polls", h.handleListPolls)
			r.Get("/polls/{id}", h.handleGetPoll)
			r.With(RateLimitVotes(rate.Every(time.Minute/10), 3)).Post("/polls/{id}/vote", h.handleVote)
			r.Get("/polls/{id}/results", h.handlePollResults)
			r.Get("/polls/{id}/comments", h.handleTopLevelComments)
			r.Get("/polls/{id}/comments/replies", h.handleCommentReplies)
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtMgr))

			r.Post("/auth/logout", h.handleLogout)

			r.Post("/polls", h.handleCreatePoll)
			r.Put("/polls/{id}", h.handleUpdatePoll)
			r.Delete("/polls/{id}", h.handleDeletePoll)
			r.Post("/polls/{id}/options", h.handleAddOptions)

			r.Post("/polls/{id}/comments", h.handleAddComment)
			r.Put("/polls/{id}/comments/{commentId}", h.handleEditComment)
			r.Delete("/polls/{id}/comments/{commentId}", h.handleDeleteComment)

			r.Get("/users", h.handleListUsers)
			r.Get("/users/online", h.handleOnlineUsers)
			r.Put("/users/{id}", h.handleUpdateUser)
			r.Delete("/users/{id}", h.handleDeleteUser)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	return strconv.ParseInt(idStr, 10, 64)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db == nil || h.db.PingContext(ctx) != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not ready",
		})
		return
	}

	status := map[string]string{"status": "ready"}
	// Redis being down is degraded, not unready: reads fall through to the store.
	if h.rdb == nil || h.rdb.Ping(ctx).Err() != nil {
		status["cache"] = "degraded"
	}

	writeJSON(w, http.StatusOK, status)
}
