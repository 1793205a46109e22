package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"pollfeed/internal/bus"
	"pollfeed/internal/cache"
	"pollfeed/internal/config"
	"pollfeed/internal/domain/comment"
	"pollfeed/internal/domain/poll"
	"pollfeed/internal/domain/user"
	"pollfeed/internal/domain/vote"
	api "pollfeed/internal/http"
	"pollfeed/internal/metrics"
	"pollfeed/internal/platform/database"
	jwtpkg "pollfeed/internal/platform/jwt"
	"pollfeed/internal/realtime"
	"pollfeed/internal/repository/postgres"

	_ "pollfeed/docs"
)

// @title           Pollfeed API
// @version         1.0
// @description     Polls with live results, shared caching and realtime updates
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	metrics.Register()

	db, err := database.NewPostgres(cfg.DB_DSN)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	rdb, err := database.NewRedis(cfg.RedisAddr)
	if err != nil {
		// Degraded start: results are served from the store until Redis returns.
		logger.Warn("redis unavailable, cache degraded", "addr", cfg.RedisAddr, "err", err)
	}

	// Each instance gets its own identity: the consumer group id below makes
	// the bus fan out to every instance instead of load-balancing.
	instanceID := uuid.NewString()

	userRepo := postgres.NewUserRepo(db)
	pollRepo := postgres.NewPollRepo(db)
	commentRepo := postgres.NewCommentRepo(db)
	voteStore := postgres.NewVoteStore(db, pollRepo, userRepo)

	results := cache.NewResults(rdb, voteStore, cfg.CacheTTL, logger)
	presence := cache.NewPresence(rdb, logger)

	hub := realtime.NewHub(logger)

	publisher := bus.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer publisher.Close()

	voteEng := vote.NewEngine(voteStore, logger)
	voteEng.OnAccepted(bus.PublishHook(publisher, instanceID, logger))
	voteEng.OnAccepted(realtime.VoteBroadcastHook(hub))

	invalidator := bus.NewInvalidator(results, hub, instanceID, logger)
	consumer := bus.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "pollfeed-cache-"+instanceID, invalidator, logger)

	userSvc := user.NewService(userRepo, presence)
	pollSvc := poll.NewService(pollRepo, results)
	commentSvc := comment.NewService(commentRepo, pollRepo)

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, "pollfeed")

	router := api.NewRouter(userSvc, pollSvc, voteEng, commentSvc, results, presence, hub, jwtMgr, db, rdb)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)
	go consumer.Run(ctx)

	go func() {
		logger.Info("server listening", "port", cfg.Port, "instance", instanceID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown error: %v", err)
	}

	logger.Info("server stopped")
}
