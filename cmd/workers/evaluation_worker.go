package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/app"
	"internship-hub/project-portal/project-portal-backend/internal/config"
	"internship-hub/project-portal/project-portal-backend/internal/projects"
	"internship-hub/project-portal/project-portal-backend/internal/projects/scheduler"
)

// EvaluationWorker closes applications of STARTED projects on a cron schedule
type EvaluationWorker struct {
	manager *scheduler.Manager
	logger  *zap.Logger
}

// NewEvaluationWorker creates a new evaluation worker
func NewEvaluationWorker(deps *app.App, cfg config.SchedulerConfig, logger *zap.Logger) *EvaluationWorker {
	controller := projects.NewController(deps.Projects, deps.Tracker, deps.Publisher, logger, time.Now)
	return &EvaluationWorker{
		manager: scheduler.NewManager(deps.Projects, controller, logger, scheduler.Config{
			Spec:    cfg.Spec,
			Timeout: cfg.Timeout,
		}),
		logger: logger,
	}
}

// Start runs the schedule until ctx is cancelled
func (w *EvaluationWorker) Start(ctx context.Context) error {
	if err := w.manager.Start(ctx); err != nil {
		return err
	}
	w.logger.Info("Evaluation worker started", zap.Time("next_run", w.manager.NextRun()))

	<-ctx.Done()
	w.manager.Stop()
	return nil
}

// RunOnce performs a single sweep
func (w *EvaluationWorker) RunOnce(ctx context.Context) scheduler.SweepResult {
	return w.manager.RunOnce(ctx)
}

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	once := flag.Bool("once", false, "run a single sweep and exit")
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

	if !cfg.Database.UsesDatabase() {
		logger.Fatal("The evaluation worker requires a database")
	}

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize stores", zap.Error(err))
	}
	defer deps.Close()

	worker := NewEvaluationWorker(deps, cfg.Scheduler, logger)

	if *once {
		result := worker.RunOnce(ctx)
		logger.Info("Evaluation sweep finished",
			zap.Int("due", result.Due),
			zap.Int("closed", result.Closed),
			zap.Int("failed", result.Failed))
		return
	}

	logger.Info("Evaluation worker starting")
	if err := worker.Start(ctx); err != nil {
		logger.Error("Worker error", zap.Error(err))
	}

	logger.Info("Evaluation worker stopped")
}
