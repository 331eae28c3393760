package projects

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

// MemoryRepository is an in-process Repository for tests and the local wizard.
type MemoryRepository struct {
	mu         sync.RWMutex
	nextID     int64
	projects   map[int64]*Project
	positions  map[int64]*Position
	history    []*StatusHistory
	activities []*Activity
	now        func() time.Time
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		projects:  map[int64]*Project{},
		positions: map[int64]*Position{},
		now:       time.Now,
	}
}

func (r *MemoryRepository) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *MemoryRepository) CreateProject(_ context.Context, project *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	project.ID = r.id()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = r.now()
	}
	project.UpdatedAt = project.CreatedAt
	r.projects[project.ID] = cloneProject(project)
	return nil
}

func (r *MemoryRepository) GetProject(_ context.Context, id int64) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProject(p), nil
}

func (r *MemoryRepository) UpdateProject(_ context.Context, project *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[project.ID]; !ok {
		return ErrNotFound
	}
	r.projects[project.ID] = cloneProject(project)
	return nil
}

func (r *MemoryRepository) ListProjects(_ context.Context, filter ProjectFilter) ([]*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sortedProjects()
	if filter.Offset > 0 {
		if filter.Offset >= len(all) {
			return []*Project{}, nil
		}
		all = all[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, nil
}

func (r *MemoryRepository) ListDueForEvaluation(_ context.Context, t time.Time) ([]*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*Project
	for _, p := range r.sortedProjects() {
		if p.Status == StatusStarted && p.ApplicationsCloseDate.Before(t) {
			due = append(due, p)
		}
	}
	return due, nil
}

func (r *MemoryRepository) ProjectNameExists(_ context.Context, name string, excludeID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// a Caser is stateful and must not be shared between readers
	fold := cases.Fold()
	folded := fold.String(strings.TrimSpace(name))
	for id, p := range r.projects {
		if id != excludeID && fold.String(strings.TrimSpace(p.Name)) == folded {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) ListPositions(_ context.Context, projectID int64) ([]*Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Position
	for _, p := range r.positions {
		if p.ProjectID == projectID {
			out = append(out, clonePosition(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) GetPosition(_ context.Context, projectID, positionID int64) (*Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.positions[positionID]
	if !ok || p.ProjectID != projectID {
		return nil, ErrNotFound
	}
	return clonePosition(p), nil
}

func (r *MemoryRepository) UpdatePosition(_ context.Context, position *Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.positions[position.ID]
	if !ok {
		return ErrNotFound
	}
	updated := clonePosition(position)
	// requirements are only written by CommitPositions
	updated.Requirements = stored.Requirements
	r.positions[position.ID] = updated
	return nil
}

func (r *MemoryRepository) CommitPositions(_ context.Context, projectID int64, positions []*Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	project, ok := r.projects[projectID]
	if !ok {
		return ErrNotFound
	}
	if project.Status != StatusCreated {
		return ErrNotEditable
	}

	now := r.now()
	for _, p := range positions {
		p.ID = r.id()
		p.ProjectID = projectID
		p.CreatedAt = now
		for i := range p.Requirements {
			p.Requirements[i].ID = r.id()
			p.Requirements[i].PositionID = p.ID
			p.Requirements[i].CreatedAt = now
		}
		r.positions[p.ID] = clonePosition(p)
	}
	return nil
}

func (r *MemoryRepository) SaveTransition(_ context.Context, project *Project, history *StatusHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[project.ID]; !ok {
		return ErrNotFound
	}
	r.projects[project.ID] = cloneProject(project)
	history.ID = r.id()
	h := *history
	r.history = append(r.history, &h)
	return nil
}

func (r *MemoryRepository) ListStatusHistory(_ context.Context, projectID int64) ([]*StatusHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*StatusHistory
	for _, h := range r.history {
		if h.ProjectID == projectID {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MemoryRepository) LogActivity(_ context.Context, activity *Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity.ID = r.id()
	a := *activity
	r.activities = append(r.activities, &a)
	return nil
}

func (r *MemoryRepository) ListActivities(_ context.Context, projectID int64) ([]*Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Activity
	for _, a := range r.activities {
		if a.ProjectID == projectID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MemoryRepository) sortedProjects() []*Project {
	out := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, cloneProject(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneProject(p *Project) *Project {
	c := *p
	if p.ApplicationsOpenDate != nil {
		open := *p.ApplicationsOpenDate
		c.ApplicationsOpenDate = &open
	}
	return &c
}

func clonePosition(p *Position) *Position {
	c := *p
	if p.WithdrawnDate != nil {
		w := *p.WithdrawnDate
		c.WithdrawnDate = &w
	}
	c.Requirements = make([]CareerRequirement, len(p.Requirements))
	for i, req := range p.Requirements {
		c.Requirements[i] = req
		if req.WithdrawnDate != nil {
			w := *req.WithdrawnDate
			c.Requirements[i].WithdrawnDate = &w
		}
	}
	return &c
}
