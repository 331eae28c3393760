package provisioning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/events"
	"internship-hub/project-portal/project-portal-backend/internal/projects"
	"internship-hub/project-portal/project-portal-backend/internal/validation"
)

// Session is a registered workflow
type Session struct {
	ID   uuid.UUID `json:"session_id"`
	View View      `json:"view"`
}

// Manager keeps the provisioning workflows in progress, keyed by session id
type Manager struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*Workflow
	repo      projects.Repository
	validator *validation.Validator
	audit     *projects.Auditor
	logger    *zap.Logger
	now       func() time.Time
}

// NewManager creates a session registry
func NewManager(
	repo projects.Repository,
	validator *validation.Validator,
	publisher events.Publisher,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		sessions:  make(map[uuid.UUID]*Workflow),
		repo:      repo,
		validator: validator,
		audit:     projects.NewAuditor(repo, publisher, logger, time.Now),
		logger:    logger,
		now:       time.Now,
	}
}

// Start opens a workflow for a CREATED project
func (m *Manager) Start(ctx context.Context, projectID int64) (*Session, error) {
	project, err := m.repo.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, projects.MsgProjectNotFound)
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to get project", err)
	}
	if project.Status != projects.StatusCreated {
		return nil, apperrors.New(apperrors.CodeNotEditable, projects.MsgProjectNotEditable)
	}

	w := newWorkflow(projectID, m.repo, m.validator, m.audit, m.logger, m.now)
	id := uuid.New()

	m.mu.Lock()
	m.sessions[id] = w
	m.mu.Unlock()

	m.logger.Info("Provisioning started",
		zap.String("session_id", id.String()),
		zap.Int64("project_id", projectID))

	return &Session{ID: id, View: w.View()}, nil
}

// Get returns the current view of a session
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	w, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, View: w.View()}, nil
}

// Handle applies an event to a session
func (m *Manager) Handle(ctx context.Context, id uuid.UUID, event Event) (*Session, error) {
	w, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	view, err := w.Handle(ctx, event)
	return &Session{ID: id, View: view}, err
}

// Remove drops a session
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Prune drops sessions idle for longer than maxIdle and returns how many were removed
func (m *Manager) Prune(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, w := range m.sessions {
		if w.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("Pruned idle provisioning sessions", zap.Int("removed", removed))
	}
	return removed
}

// Count returns the number of registered sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id uuid.UUID) (*Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "provisioning session not found")
	}
	return w, nil
}
