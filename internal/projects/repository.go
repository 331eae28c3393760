package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a project or position does not exist.
	ErrNotFound = errors.New("projects: not found")
	// ErrNotEditable is returned by CommitPositions when the project left CREATED.
	ErrNotEditable = errors.New("projects: project is not editable")
)

// Repository persists projects, their positions and audit trail.
// Returned entities are copies: mutating them has no effect until saved.
type Repository interface {
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id int64) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error)
	// ListDueForEvaluation returns STARTED projects whose applications closed before t.
	ListDueForEvaluation(ctx context.Context, t time.Time) ([]*Project, error)
	ProjectNameExists(ctx context.Context, name string, excludeID int64) (bool, error)

	// ListPositions returns every position of the project, withdrawn included, with requirements, by id.
	ListPositions(ctx context.Context, projectID int64) ([]*Position, error)
	GetPosition(ctx context.Context, projectID, positionID int64) (*Position, error)
	UpdatePosition(ctx context.Context, position *Position) error
	// CommitPositions inserts positions and their requirements in one transaction,
	// only while the project is CREATED.
	CommitPositions(ctx context.Context, projectID int64, positions []*Position) error

	// SaveTransition persists the project's new status together with its history row.
	SaveTransition(ctx context.Context, project *Project, history *StatusHistory) error
	ListStatusHistory(ctx context.Context, projectID int64) ([]*StatusHistory, error)
	LogActivity(ctx context.Context, activity *Activity) error
	ListActivities(ctx context.Context, projectID int64) ([]*Activity, error)
}

// GormRepository implements Repository using gorm
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new gorm backed repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the project tables
func (r *GormRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&Project{},
		&Position{},
		&CareerRequirement{},
		&StatusHistory{},
		&Activity{},
	)
}

func (r *GormRepository) CreateProject(ctx context.Context, project *Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *GormRepository) GetProject(ctx context.Context, id int64) (*Project, error) {
	var project Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, notFound(err, "project")
	}
	return &project, nil
}

func (r *GormRepository) UpdateProject(ctx context.Context, project *Project) error {
	if err := r.db.WithContext(ctx).Save(project).Error; err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

func (r *GormRepository) ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	query := r.db.WithContext(ctx).Order("id")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var projects []*Project
	if err := query.Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (r *GormRepository) ListDueForEvaluation(ctx context.Context, t time.Time) ([]*Project, error) {
	var projects []*Project
	err := r.db.WithContext(ctx).
		Where("status = ? AND applications_close_date < ?", StatusStarted, t).
		Order("id").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list projects due for evaluation: %w", err)
	}
	return projects, nil
}

func (r *GormRepository) ProjectNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Project{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", strings.TrimSpace(name), excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check project name: %w", err)
	}
	return count > 0, nil
}

func (r *GormRepository) ListPositions(ctx context.Context, projectID int64) ([]*Position, error) {
	var positions []*Position
	err := r.db.WithContext(ctx).
		Preload("Requirements", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("project_id = ?", projectID).
		Order("id").
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return positions, nil
}

func (r *GormRepository) GetPosition(ctx context.Context, projectID, positionID int64) (*Position, error) {
	var position Position
	err := r.db.WithContext(ctx).
		Preload("Requirements", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("project_id = ?", projectID).
		First(&position, positionID).Error
	if err != nil {
		return nil, notFound(err, "position")
	}
	return &position, nil
}

func (r *GormRepository) UpdatePosition(ctx context.Context, position *Position) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(position).Error
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	return nil
}

func (r *GormRepository) CommitPositions(ctx context.Context, projectID int64, positions []*Position) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project Project
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&project, projectID).Error
		if err != nil {
			return notFound(err, "project")
		}
		if project.Status != StatusCreated {
			return ErrNotEditable
		}

		for _, p := range positions {
			p.ProjectID = projectID
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("failed to create position %s: %w", p.Code, err)
			}
		}
		return nil
	})
}

func (r *GormRepository) SaveTransition(ctx context.Context, project *Project, history *StatusHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(project).Error; err != nil {
			return fmt.Errorf("failed to update project status: %w", err)
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to record status history: %w", err)
		}
		return nil
	})
}

func (r *GormRepository) ListStatusHistory(ctx context.Context, projectID int64) ([]*StatusHistory, error) {
	var history []*StatusHistory
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id").Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	return history, nil
}

func (r *GormRepository) LogActivity(ctx context.Context, activity *Activity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}

func (r *GormRepository) ListActivities(ctx context.Context, projectID int64) ([]*Activity, error) {
	var activities []*Activity
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}
