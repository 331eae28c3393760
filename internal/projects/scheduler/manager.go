package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/projects"
)

// DefaultSpec runs the sweep five minutes past midnight, every day.
const DefaultSpec = "0 5 0 * * *"

// ProjectSource lists STARTED projects whose applications closed before a day
type ProjectSource interface {
	ListDueForEvaluation(ctx context.Context, t time.Time) ([]*projects.Project, error)
}

// ApplicationCloser moves a project into evaluation
type ApplicationCloser interface {
	CloseApplications(ctx context.Context, projectID int64) (*projects.Project, error)
}

// Config configuration for the evaluation scheduler
type Config struct {
	Spec    string        `json:"spec"`
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Spec:    DefaultSpec,
		Timeout: 5 * time.Minute,
	}
}

// SweepResult summarizes one sweep
type SweepResult struct {
	Due    int `json:"due"`
	Closed int `json:"closed"`
	Failed int `json:"failed"`
}

// Manager periodically closes the application window of due projects
type Manager struct {
	cron    *cron.Cron
	entryID cron.EntryID
	source  ProjectSource
	closer  ApplicationCloser
	config  Config
	logger  *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
	running bool
}

// NewManager creates a new evaluation scheduler
func NewManager(source ProjectSource, closer ApplicationCloser, logger *zap.Logger, config Config) *Manager {
	if config.Spec == "" {
		config.Spec = DefaultSpec
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Manager{
		cron:   cron.New(cron.WithSeconds()),
		source: source,
		closer: closer,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules the sweep and starts the cron runner
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("evaluation scheduler already running")
	}

	id, err := m.cron.AddFunc(m.config.Spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
		m.RunOnce(runCtx)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", m.config.Spec, err)
	}
	m.entryID = id
	m.running = true

	m.logger.Info("Starting evaluation scheduler", zap.String("spec", m.config.Spec))
	m.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.logger.Info("Stopping evaluation scheduler")
	stopped := m.cron.Stop()
	<-stopped.Done()
	m.cron.Remove(m.entryID)
	m.running = false
}

// NextRun returns the next scheduled sweep, or the zero time when stopped
func (m *Manager) NextRun() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return time.Time{}
	}
	return m.cron.Entry(m.entryID).Next
}

// RunOnce closes every project whose applications closed before today.
// A failure on one project does not stop the sweep.
func (m *Manager) RunOnce(ctx context.Context) SweepResult {
	now := m.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	due, err := m.source.ListDueForEvaluation(ctx, today)
	if err != nil {
		m.logger.Error("Failed to list projects due for evaluation", zap.Error(err))
		return SweepResult{}
	}

	result := SweepResult{Due: len(due)}
	for _, p := range due {
		if ctx.Err() != nil {
			m.logger.Warn("Evaluation sweep interrupted", zap.Error(ctx.Err()))
			break
		}
		if _, err := m.closer.CloseApplications(ctx, p.ID); err != nil {
			result.Failed++
			m.logger.Error("Failed to close applications",
				zap.Int64("project_id", p.ID),
				zap.Error(err))
			continue
		}
		result.Closed++
	}

	m.logger.Info("Evaluation sweep completed",
		zap.Int("due", result.Due),
		zap.Int("closed", result.Closed),
		zap.Int("failed", result.Failed))
	return result
}
