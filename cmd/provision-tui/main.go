package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/app"
	"internship-hub/project-portal/project-portal-backend/internal/config"
	"internship-hub/project-portal/project-portal-backend/internal/projects"
	"internship-hub/project-portal/project-portal-backend/internal/provisioning"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	projectID := flag.Int64("project", 0, "project to add positions to; 0 creates a demo project in memory mode")
	logPath := flag.String("log", "", "write logs to this file instead of discarding them")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := fileLogger(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *projectID, logger); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, projectID int64, logger *zap.Logger) error {
	deps, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize stores: %w", err)
	}
	defer deps.Close()

	if projectID == 0 {
		if cfg.Database.UsesDatabase() {
			return fmt.Errorf("-project is required when a database is configured")
		}
		if projectID, err = seedDemoProject(ctx, deps.Projects); err != nil {
			return err
		}
	}

	manager := provisioning.NewManager(deps.Projects, deps.Validator, deps.Publisher, logger)
	session, err := manager.Start(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to start provisioning for project %d: %w", projectID, err)
	}
	defer manager.Remove(session.ID)

	final, err := tea.NewProgram(newModel(ctx, manager, session), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("terminal session failed: %w", err)
	}

	if m, ok := final.(model); ok && m.view.Step == provisioning.StepCommitted {
		logger.Info("Positions provisioned",
			zap.Int64("project_id", projectID),
			zap.Int("positions", len(m.view.Committed)))
	}
	return nil
}

// seedDemoProject creates a project the wizard can provision when running without a database
func seedDemoProject(ctx context.Context, repo projects.Repository) (int64, error) {
	today := time.Now().Truncate(24 * time.Hour)
	open := today
	p := &projects.Project{
		Name:                  "Proyecto de demostración",
		Description:           "Proyecto creado para la carga interactiva de puestos",
		ApplicationsOpenDate:  &open,
		ApplicationsCloseDate: today.AddDate(0, 0, 30),
		ActivitiesStartDate:   today.AddDate(0, 0, 45),
		ActivitiesEndDate:     today.AddDate(0, 6, 0),
		CompanyTaxID:          "30-71234567-8",
		CompanyName:           "TechCorp SA",
		UniversityTaxID:       "30-54667890-1",
		UniversityName:        "Universidad Tecnológica Nacional",
		Status:                projects.StatusCreated,
	}
	if err := repo.CreateProject(ctx, p); err != nil {
		return 0, fmt.Errorf("failed to create demo project: %w", err)
	}
	return p.ID, nil
}

// fileLogger keeps log output off the terminal the program draws on
func fileLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}
