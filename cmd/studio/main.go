package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/qazaqstudy/lesson-studio/internal/backend"
	"github.com/qazaqstudy/lesson-studio/internal/config"
	"github.com/qazaqstudy/lesson-studio/internal/handlers"
	"github.com/qazaqstudy/lesson-studio/internal/logger"
	"github.com/qazaqstudy/lesson-studio/internal/middleware"
	"github.com/qazaqstudy/lesson-studio/internal/services"
)

// @title QazaqStudy Lesson Studio API
// @version 1.0
// @description Backend-for-frontend for lesson authoring and the lesson player

// @contact.name API Support
// @contact.email dev@qazaqstudy.kz

// @host localhost:8086
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting QazaqStudy Lesson Studio")

	// The core API client backs every service; the studio keeps no storage
	// of its own
	client := backend.NewClient(cfg.CoreAPI.BaseURL, cfg.CoreAPI.APIKey)

	// Initialize services
	authoringService := services.NewAuthoringService(client, client, client, cfg.Authoring.AutosaveDebounce, logger.Logger)
	playerService := services.NewPlayerService(client, client, client, logger.Logger)

	// Initialize handlers
	authoringHandler := handlers.NewAuthoringHandler(authoringService, client, logger.Logger)
	playerHandler := handlers.NewPlayerHandler(playerService, logger.Logger)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger.Logger))
	r.Use(middleware.Recovery(logger.Logger))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(middleware.RequestSizeLimit(cfg.Server.MaxRequestSize))
	r.Use(middleware.TokenForwarding)

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	// Scope router to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		authoringHandler.RegisterRoutes(r)
		playerHandler.RegisterRoutes(r)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}
