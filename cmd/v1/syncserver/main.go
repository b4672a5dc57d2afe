package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/kasagi/statesync/internal/v1/config"
	"github.com/kasagi/statesync/internal/v1/handler"
	"github.com/kasagi/statesync/internal/v1/health"
	"github.com/kasagi/statesync/internal/v1/logging"
	"github.com/kasagi/statesync/internal/v1/session"
	"github.com/kasagi/statesync/internal/v1/state"
	"github.com/kasagi/statesync/internal/v1/transport"
)

func main() {
	ctx := context.Background()

	// Load .env file for local development; in production the
	// environment is set directly.
	if err := godotenv.Load(); err == nil {
		logging.Info(ctx, "Loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error(ctx, "Environment validation failed", zap.Error(err))
		os.Exit(1)
	}

	// A single positional argument overrides the configured port
	if len(os.Args) > 1 {
		cfg.ApplyPortArg(os.Args[1])
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		logging.Error(ctx, "Failed to initialize logger", zap.Error(err))
		os.Exit(1)
	}

	// --- Build the sync core ---
	sessions := session.NewRegistry()
	rooms := state.NewRegistry()
	syncHandler := handler.New(sessions, rooms)
	hub := transport.NewHub(syncHandler, cfg.AllowedOrigins, cfg.SendBufferSize)

	// --- Set up Server ---
	if !cfg.DevelopmentMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins != "" {
		corsConfig.AllowOrigins = splitOrigins(cfg.AllowedOrigins)
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// Routing
	router.GET("/sync", hub.ServeWs)

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoints
	healthHandler := health.NewHandler(sessions, rooms)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		logging.Info(ctx, "Sync server starting",
			zap.Int("port", cfg.Port),
			zap.String("endpoint", "ws://localhost"+cfg.Addr()+"/sync"))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error(ctx, "Failed to run server", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for an interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop accepting new connections, then drain the live ones; each
	// drained connection runs its room-leave semantics.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "Error during hub shutdown", zap.Error(err))
	}

	logging.Info(ctx, "Server exiting")
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
