package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mealscope/backend/config"
	"github.com/mealscope/backend/internal/api"
	"github.com/mealscope/backend/internal/database"
	"github.com/mealscope/backend/internal/middleware"
	"github.com/mealscope/backend/internal/router"
	"github.com/mealscope/backend/internal/service"
)

// Server wires the capture pipeline, recovery service and HTTP surface.
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	http     *http.Server
	capture  *service.CaptureService
	recovery *service.RecoveryService
}

// New builds the full dependency graph from configuration.
func New(cfg *config.Config) (*Server, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("database setup failed: %w", err)
	}

	redisClient := database.NewRedis(cfg)

	s3Config, err := config.NewS3Config(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage setup failed: %w", err)
	}
	storage := service.NewS3ObjectStorage(s3Config)

	recognizer, err := service.NewVisionService(cfg, redisClient)
	if err != nil {
		return nil, fmt.Errorf("vision client setup failed: %w", err)
	}

	repo := service.NewGormMealRepository(db)
	capture := service.NewCaptureService(repo, recognizer, storage)
	recovery := service.NewRecoveryService(repo, recognizer, storage, cfg.RecoveryBatchSize)

	var rateLimiter *middleware.RateLimiter
	if redisClient != nil {
		rateLimiter = middleware.NewCaptureRateLimiter(redisClient)
	}

	mealHandler := api.NewMealHandler(capture, repo, rateLimiter, s3Config)
	insightsHandler := api.NewInsightsHandler(repo)
	engine := router.SetupRouter(mealHandler, insightsHandler, db)

	return &Server{
		cfg:      cfg,
		engine:   engine,
		capture:  capture,
		recovery: recovery,
	}, nil
}

// Start resolves meals interrupted by the previous run, then serves HTTP
// until Shutdown.
func (s *Server) Start() error {
	// Recovery runs once per start over a bounded batch; failures stay
	// visible in history rather than being retried forever.
	go func() {
		if err := s.recovery.RecoverPending(context.Background()); err != nil {
			log.Printf("[Server] Recovery pass failed: %v", err)
		}
	}()

	s.http = &http.Server{
		Addr:    s.cfg.ServerHost + ":" + s.cfg.ServerPort,
		Handler: s.engine,
	}

	log.Printf("[Server] Listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and drains in-flight analyses.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.capture.Wait()
	return nil
}
