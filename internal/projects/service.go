package projects

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/events"
	"internship-hub/project-portal/project-portal-backend/internal/validation"
)

// ProjectDetail is a project together with its positions, status history,
// activity trail and the actions an operator may request next.
type ProjectDetail struct {
	Project        *Project         `json:"project"`
	Positions      []*Position      `json:"positions"`
	History        []*StatusHistory `json:"history"`
	Activities     []*Activity      `json:"activities"`
	AllowedActions []Action         `json:"allowed_actions"`
}

// Service interface
type ProjectService interface {
	CreateProject(ctx context.Context, form validation.ProjectForm) (*Project, error)
	GetProject(ctx context.Context, id int64) (*ProjectDetail, error)
	UpdateProject(ctx context.Context, id int64, form validation.ProjectForm) (*Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error)
	ListPositions(ctx context.Context, projectID int64, includeWithdrawn bool) ([]*Position, error)
	WithdrawPosition(ctx context.Context, projectID, positionID int64) (*Position, error)
}

// Implementation
type projectService struct {
	repo       Repository
	validator  *validation.Validator
	controller *Controller
	audit      *Auditor
	logger     *zap.Logger
	now        func() time.Time
}

func NewProjectService(
	repo Repository,
	validator *validation.Validator,
	controller *Controller,
	publisher events.Publisher,
	logger *zap.Logger,
) ProjectService {
	now := controller.now
	return &projectService{
		repo:       repo,
		validator:  validator,
		controller: controller,
		audit:      NewAuditor(repo, publisher, logger, now),
		logger:     logger,
		now:        now,
	}
}

func (s *projectService) CreateProject(ctx context.Context, form validation.ProjectForm) (*Project, error) {
	input, result, err := s.validator.ValidateProject(ctx, form, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to validate project", err)
	}
	if !result.Valid() {
		return nil, result.Err()
	}

	project := &Project{Status: StatusCreated, CreatedAt: s.now()}
	applyInput(project, input)

	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to create project", err)
	}

	s.logger.Info("Project created",
		zap.Int64("project_id", project.ID),
		zap.String("name", project.Name),
		zap.String("company_tax_id", project.CompanyTaxID))

	s.audit.Record(ctx, project.ID, ActivityCreated,
		fmt.Sprintf("Project '%s' created", project.Name),
		events.TypeProjectCreated,
		map[string]any{"name": project.Name})

	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, id int64) (*ProjectDetail, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}
	positions, err := s.repo.ListPositions(ctx, id)
	if err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}
	history, err := s.repo.ListStatusHistory(ctx, id)
	if err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}
	activities, err := s.repo.ListActivities(ctx, id)
	if err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}

	return &ProjectDetail{
		Project:        project,
		Positions:      positions,
		History:        history,
		Activities:     activities,
		AllowedActions: s.controller.AllowedActions(project.Status),
	}, nil
}

func (s *projectService) UpdateProject(ctx context.Context, id int64, form validation.ProjectForm) (*Project, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}
	if !project.Status.Editable() {
		return nil, apperrors.New(apperrors.CodeNotEditable,
			fmt.Sprintf("El proyecto no puede modificarse en estado %s", project.Status.Label()))
	}

	input, result, err := s.validator.ValidateProject(ctx, form, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to validate project", err)
	}
	if !result.Valid() {
		return nil, result.Err()
	}

	applyInput(project, input)
	if project.ApplicationsOpenDate != nil {
		open := validation.OpenDateFor(project.ApplicationsCloseDate)
		project.ApplicationsOpenDate = &open
	}
	project.UpdatedAt = s.now()

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}

	s.logger.Info("Project updated", zap.Int64("project_id", project.ID))
	s.audit.Record(ctx, project.ID, ActivityUpdated,
		fmt.Sprintf("Project '%s' updated", project.Name),
		events.TypeProjectUpdated, nil)

	return project, nil
}

func (s *projectService) ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	projects, err := s.repo.ListProjects(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to list projects", err)
	}
	return projects, nil
}

func (s *projectService) ListPositions(ctx context.Context, projectID int64, includeWithdrawn bool) ([]*Position, error) {
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}
	positions, err := s.repo.ListPositions(ctx, projectID)
	if err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}
	if includeWithdrawn {
		return positions, nil
	}
	return ActivePositions(positions), nil
}

// WithdrawPosition withdraws a position while its project is still CREATED.
// Suspended projects withdraw positions through remediation instead.
func (s *projectService) WithdrawPosition(ctx context.Context, projectID, positionID int64) (*Position, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}
	if project.Status != StatusCreated {
		return nil, apperrors.New(apperrors.CodeNotEditable,
			fmt.Sprintf("Solo se pueden dar de baja puestos de proyectos en estado %s", StatusCreated.Label()))
	}

	position, err := s.repo.GetPosition(ctx, projectID, positionID)
	if err != nil {
		return nil, repoError(err, MsgPositionNotFound)
	}
	if !position.Active() {
		return nil, apperrors.New(apperrors.CodeNotEditable, "El puesto ya fue dado de baja")
	}

	now := s.now()
	position.WithdrawnDate = &now
	if err := s.repo.UpdatePosition(ctx, position); err != nil {
		return nil, repoError(err, MsgPositionNotFound)
	}

	s.logger.Info("Position withdrawn",
		zap.Int64("project_id", projectID),
		zap.Int64("position_id", positionID),
		zap.String("code", position.Code))

	s.audit.Record(ctx, projectID, ActivityPositionWithdrawn,
		fmt.Sprintf("Position %s withdrawn", position.Code),
		events.TypePositionWithdrawn,
		map[string]any{"position_id": positionID, "code": position.Code})

	return position, nil
}

func applyInput(p *Project, in *validation.ProjectInput) {
	p.Name = in.Name
	p.Description = in.Description
	p.ApplicationsCloseDate = in.Schedule.ApplicationsCloseDate
	p.ActivitiesStartDate = in.Schedule.ActivitiesStartDate
	p.ActivitiesEndDate = in.Schedule.ActivitiesEndDate
	p.CompanyTaxID = in.CompanyTaxID
	p.CompanyName = in.CompanyName
	p.UniversityTaxID = in.UniversityTaxID
	p.UniversityName = in.UniversityName
}
