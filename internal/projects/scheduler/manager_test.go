package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/applications"
	"internship-hub/project-portal/project-portal-backend/internal/events"
	"internship-hub/project-portal/project-portal-backend/internal/projects"
)

// MockProjectSource is a mock implementation of ProjectSource
type MockProjectSource struct {
	mock.Mock
}

func (m *MockProjectSource) ListDueForEvaluation(ctx context.Context, t time.Time) ([]*projects.Project, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*projects.Project), args.Error(1)
}

// MockApplicationCloser is a mock implementation of ApplicationCloser
type MockApplicationCloser struct {
	mock.Mock
}

func (m *MockApplicationCloser) CloseApplications(ctx context.Context, projectID int64) (*projects.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projects.Project), args.Error(1)
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	source := new(MockProjectSource)
	closer := new(MockApplicationCloser)
	m := NewManager(source, closer, zap.NewNop(), DefaultConfig())
	m.now = func() time.Time { return time.Date(2025, 3, 1, 0, 5, 0, 0, time.UTC) }

	today := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	source.On("ListDueForEvaluation", mock.Anything, today).
		Return([]*projects.Project{{ID: 1}, {ID: 2}, {ID: 3}}, nil)
	closer.On("CloseApplications", mock.Anything, int64(1)).Return(&projects.Project{ID: 1}, nil)
	closer.On("CloseApplications", mock.Anything, int64(2)).Return(nil, errors.New("database is down"))
	closer.On("CloseApplications", mock.Anything, int64(3)).Return(&projects.Project{ID: 3}, nil)

	result := m.RunOnce(context.Background())

	assert.Equal(t, SweepResult{Due: 3, Closed: 2, Failed: 1}, result)
	source.AssertExpectations(t)
	closer.AssertExpectations(t)
}

func TestRunOnceListFailure(t *testing.T) {
	source := new(MockProjectSource)
	closer := new(MockApplicationCloser)
	m := NewManager(source, closer, zap.NewNop(), DefaultConfig())

	source.On("ListDueForEvaluation", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	result := m.RunOnce(context.Background())

	assert.Equal(t, SweepResult{}, result)
	closer.AssertNotCalled(t, "CloseApplications", mock.Anything, mock.Anything)
}

func TestRunOnceMovesDueProjectsIntoEvaluation(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 5, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	repo := projects.NewMemoryRepository()
	controller := projects.NewController(repo, applications.NewMemoryTracker(), events.NopPublisher{}, zap.NewNop(), clock)
	ctx := context.Background()

	due := &projects.Project{
		Name:                  "Cerrado",
		ApplicationsCloseDate: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		ActivitiesStartDate:   time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
		ActivitiesEndDate:     time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		Status:                projects.StatusStarted,
	}
	open := &projects.Project{
		Name:                  "Abierto",
		ApplicationsCloseDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ActivitiesStartDate:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		ActivitiesEndDate:     time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		Status:                projects.StatusStarted,
	}
	require.NoError(t, repo.CreateProject(ctx, due))
	require.NoError(t, repo.CreateProject(ctx, open))

	m := NewManager(repo, controller, zap.NewNop(), DefaultConfig())
	m.now = clock

	result := m.RunOnce(ctx)

	assert.Equal(t, SweepResult{Due: 1, Closed: 1}, result)
	stored, err := repo.GetProject(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, projects.StatusUnderEvaluation, stored.Status)
	stored, err = repo.GetProject(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, projects.StatusStarted, stored.Status)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	m := NewManager(new(MockProjectSource), new(MockApplicationCloser), zap.NewNop(), Config{Spec: "every day"})

	err := m.Start(context.Background())

	assert.Error(t, err)
	assert.True(t, m.NextRun().IsZero())
}

func TestStartAndStop(t *testing.T) {
	m := NewManager(new(MockProjectSource), new(MockApplicationCloser), zap.NewNop(), DefaultConfig())

	require.NoError(t, m.Start(context.Background()))
	assert.False(t, m.NextRun().IsZero())
	assert.Error(t, m.Start(context.Background()))

	m.Stop()
	assert.True(t, m.NextRun().IsZero())
}
