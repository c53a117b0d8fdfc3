package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"trivia-service/config"
	_ "trivia-service/docs"
	"trivia-service/internal/client"
	"trivia-service/internal/game"
	"trivia-service/internal/handlers"
	"trivia-service/internal/leaderboard"
	"trivia-service/internal/middleware"
	"trivia-service/internal/questions"
	"trivia-service/internal/registry"
	"trivia-service/internal/repository"
	"trivia-service/internal/scoring"
	"trivia-service/internal/service"
	ws "trivia-service/internal/websocket"
	"trivia-service/pkg/cache"
	"trivia-service/pkg/database"
	"trivia-service/pkg/messaging"
)

const (
	serviceName     = "trivia-service"
	shutdownTimeout = 15 * time.Second
)

// @title Trivia Service API
// @version 1.0

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg := config.Load()
	setupLogger(cfg.Log)
	log.Info().Msg("configuration loaded")

	pgClient, err := database.NewPostgresClient(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	log.Info().Msg("connected to PostgreSQL")
	defer pgClient.Close()

	sessionRepo := repository.NewSessionRepository(pgClient.GetDB())
	answerRepo := repository.NewAnswerRepository(pgClient.GetDB())
	profileRepo := repository.NewProfileRepository(pgClient.GetDB())
	leaderboardRepo := repository.NewLeaderboardRepository(pgClient.GetDB())

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := pgClient.InitSchema(initCtx); err != nil {
		log.Warn().Err(err).Msg("failed to initialize PostgreSQL schema")
	} else {
		log.Info().Msg("PostgreSQL schema initialized")
	}
	// sessions live in memory only, so anything still active belongs to a dead process
	if n, err := sessionRepo.DeactivateStale(initCtx); err != nil {
		log.Warn().Err(err).Msg("failed to deactivate stale sessions")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("deactivated stale sessions")
	}
	cancel()

	var questionCache questions.Cache
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to Redis, question cache disabled")
		redisClient = nil
	} else {
		log.Info().Msg("connected to Redis")
		questionCache = redisClient
		defer redisClient.Close()
	}

	var publisher service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err := messaging.NewRabbitMQClient(&cfg.RabbitMQ)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to RabbitMQ, game events disabled")
		} else {
			log.Info().Msg("connected to RabbitMQ")
			publisher = rabbitClient
			defer rabbitClient.Close()
		}
	}

	var fetcher questions.Fetcher
	if cfg.Questions.APIURL != "" {
		fetcher = client.NewQuestionClient(cfg.Questions.APIURL, cfg.Questions.Timeout)
	}
	questionSource := questions.NewSource(questionCache, fetcher, cfg.Questions.CacheTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	hub := ws.NewHub()
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	log.Info().Msg("websocket hub started")

	reg := registry.New[*game.Session](sessionRepo)
	g.Go(func() error {
		reg.Run(gctx, cfg.Game.JanitorInterval)
		return nil
	})

	aggregator := leaderboard.NewAggregator(leaderboardRepo)
	completion := service.NewCompletionService(profileRepo, aggregator, answerRepo, publisher)
	sessions := service.NewSessionService(reg, game.Deps{
		Emitter:   ws.NewBroadcaster(hub),
		Questions: questionSource,
		Answers:   answerRepo,
		Progress:  sessionRepo,
		Profiles:  profileRepo,
	}, completion, cfg.Game, scoring.FromConfig(cfg.Scoring))

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"service":         serviceName,
			"active_sessions": sessions.ActiveSessions(),
			"connections":     hub.ConnectionCount(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"postgres": "ok", "redis": "disabled"}
		ready := true
		if err := pgClient.Ping(pingCtx); err != nil {
			checks["postgres"] = err.Error()
			ready = false
		}
		if redisClient != nil {
			checks["redis"] = "ok"
			if err := redisClient.Ping(pingCtx); err != nil {
				// questions fall back to the API and the static set
				checks["redis"] = err.Error()
			}
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "checks": checks})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	wsHandler := handlers.NewWebSocketHandler(hub, cfg, sessions)
	router.GET("/ws", wsHandler.HandleWebSocket)

	sessionHandler := handlers.NewSessionHandler(sessions, cfg)
	leaderboardHandler := handlers.NewLeaderboardHandler(aggregator)
	profileHandler := handlers.NewProfileHandler(profileRepo)
	api := router.Group("/api")
	{
		api.POST("/sessions", sessionHandler.CreateSession)
		api.GET("/sessions/:code", sessionHandler.GetSession)
		api.GET("/leaderboards/:period", leaderboardHandler.GetLeaderboard)
		api.GET("/profiles/:id", profileHandler.GetProfile)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Server.GRPCPort).Msg("failed to listen for gRPC")
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	g.Go(func() error {
		log.Info().Str("port", cfg.Server.HTTPPort).Msg("HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("port", cfg.Server.GRPCPort).Msg("gRPC health server starting")
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown")
		}
		sessions.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("trivia service stopped")
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", serviceName).Logger()
}
