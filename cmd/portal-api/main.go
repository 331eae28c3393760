package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/app"
	"internship-hub/project-portal/project-portal-backend/internal/auth"
	"internship-hub/project-portal/project-portal-backend/internal/config"
	"internship-hub/project-portal/project-portal-backend/internal/events"
	"internship-hub/project-portal/project-portal-backend/internal/notifications/websocket"
	"internship-hub/project-portal/project-portal-backend/internal/projects"
	"internship-hub/project-portal/project-portal-backend/internal/projects/scheduler"
	"internship-hub/project-portal/project-portal-backend/internal/provisioning"
	"internship-hub/project-portal/project-portal-backend/internal/remediation"
	"internship-hub/project-portal/project-portal-backend/internal/reports"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := app.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize stores", zap.Error(err))
	}
	defer deps.Close()

	// Live event stream for the operator UI, plus SNS/webhook when configured
	hub := websocket.NewManager(logger)
	defer hub.Close()
	var publisher events.Publisher = hub
	if deps.Publisher != nil {
		publisher = events.Fanout{hub, deps.Publisher}
	}

	// Projects and lifecycle
	controller := projects.NewController(deps.Projects, deps.Tracker, publisher, logger, time.Now)
	projectService := projects.NewProjectService(deps.Projects, deps.Validator, controller, publisher, logger)
	projectHandler := projects.NewHandler(projectService, controller, logger)

	// Position provisioning
	provisioningManager := provisioning.NewManager(deps.Projects, deps.Validator, publisher, logger)
	provisioningHandler := provisioning.NewHandler(provisioningManager, logger)

	// Remediation of suspended projects
	remediationService := remediation.NewService(deps.Projects, deps.Tracker, controller, deps.Validator, publisher, logger)
	remediationHandler := remediation.NewHandler(remediationService, logger)

	// Project sheet exports
	reportsService := reports.NewService(deps.Projects, deps.Exports, deps.Storage, reports.ArchiveConfig{
		Bucket:    cfg.Exports.Bucket,
		Prefix:    cfg.Exports.Prefix,
		URLExpiry: cfg.Exports.URLExpiry,
	}, logger)
	reportsHandler := reports.NewHandler(reportsService, logger)

	// Evaluation sweep, unless a dedicated worker runs it
	if cfg.Scheduler.Enabled {
		sweeper := scheduler.NewManager(deps.Projects, controller, logger, scheduler.Config{
			Spec:    cfg.Scheduler.Spec,
			Timeout: cfg.Scheduler.Timeout,
		})
		if err := sweeper.Start(ctx); err != nil {
			logger.Fatal("Failed to start evaluation scheduler", zap.Error(err))
		}
		defer sweeper.Stop()
	}

	go pruneSessions(ctx, provisioningManager, cfg.Server.SessionIdleTimeout)

	// Setup Router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), cors(cfg.Server.AllowedOrigins))

	// Register Routes
	api := router.Group("/api/v1")
	api.Use(auth.Middleware(auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer), logger))
	{
		auth.NewHandler().RegisterRoutes(api)
		projectHandler.RegisterRoutes(api)
		provisioningHandler.RegisterRoutes(api)
		remediationHandler.RegisterRoutes(api)
		reportsHandler.RegisterRoutes(api)
	}
	hub.RegisterRoutes(router.Group(""))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":                "healthy",
			"timestamp":             time.Now(),
			"websocket_connections": hub.GetConnectionCount(),
			"provisioning_sessions": provisioningManager.Count(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// pruneSessions drops provisioning sessions nobody touched for maxIdle
func pruneSessions(ctx context.Context, manager *provisioning.Manager, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.Prune(maxIdle)
		}
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func cors(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := allowOrigin(allowedOrigins, c.GetHeader("Origin")); origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func allowOrigin(allowed []string, origin string) string {
	for _, o := range allowed {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}
