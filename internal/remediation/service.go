package remediation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/applications"
	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/events"
	"internship-hub/project-portal/project-portal-backend/internal/projects"
	"internship-hub/project-portal/project-portal-backend/internal/validation"
)

// MsgPositionHasApplications is returned when withdrawing a position that received applications
const MsgPositionHasApplications = "No se puede dar de baja al puesto con postulaciones"

// Action is one of the mutually exclusive remedies
type Action string

const (
	ActionWithdrawPosition Action = "withdraw_position"
	ActionAdjustVacancies  Action = "adjust_vacancies"
	ActionModifySchedule   Action = "modify_schedule"
)

// Candidate is an active position with fewer applications than vacancies
type Candidate struct {
	Position         *projects.Position `json:"position"`
	ApplicationCount int                `json:"application_count"`
}

// Request selects a remedy. PositionID is required by withdraw and adjust,
// Schedule by modify_schedule.
type Request struct {
	Action     Action                   `json:"action" binding:"required"`
	PositionID int64                    `json:"position_id"`
	Schedule   *validation.ScheduleForm `json:"schedule,omitempty"`
}

// Result is the state after a remedy was applied
type Result struct {
	Action   Action             `json:"action"`
	Project  *projects.Project  `json:"project"`
	Position *projects.Position `json:"position,omitempty"`
}

// SuspensionResolver moves a suspended project into evaluation
type SuspensionResolver interface {
	ResolveSuspension(ctx context.Context, projectID int64) (*projects.Project, error)
}

// Service remedies SUSPENDED projects whose positions are under-subscribed
type Service struct {
	repo      projects.Repository
	tracker   applications.Tracker
	resolver  SuspensionResolver
	validator *validation.Validator
	audit     *projects.Auditor
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a remediation service
func NewService(
	repo projects.Repository,
	tracker applications.Tracker,
	resolver SuspensionResolver,
	validator *validation.Validator,
	publisher events.Publisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		tracker:   tracker,
		resolver:  resolver,
		validator: validator,
		audit:     projects.NewAuditor(repo, publisher, logger, time.Now),
		logger:    logger,
		now:       time.Now,
	}
}

// Candidates lists the under-subscribed positions of a SUSPENDED project.
// A project that is not suspended or has none is not eligible.
func (s *Service) Candidates(ctx context.Context, projectID int64) ([]Candidate, error) {
	_, candidates, err := s.eligible(ctx, projectID)
	return candidates, err
}

// Apply runs exactly one remedy
func (s *Service) Apply(ctx context.Context, projectID int64, req Request) (*Result, error) {
	project, candidates, err := s.eligible(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var result *Result
	switch req.Action {
	case ActionWithdrawPosition:
		candidate, err := pick(candidates, req.PositionID)
		if err != nil {
			return nil, err
		}
		result, err = s.withdraw(ctx, project, candidate)
		if err != nil {
			return nil, err
		}
	case ActionAdjustVacancies:
		candidate, err := pick(candidates, req.PositionID)
		if err != nil {
			return nil, err
		}
		result, err = s.adjust(ctx, project, candidate)
		if err != nil {
			return nil, err
		}
	case ActionModifySchedule:
		result, err = s.modifySchedule(ctx, project, req.Schedule)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("unknown remediation action %q", req.Action))
	}

	details := map[string]any{"action": req.Action}
	if result.Position != nil {
		details["position_id"] = result.Position.ID
		details["code"] = result.Position.Code
	}
	s.audit.Record(ctx, projectID, activityFor(req.Action),
		fmt.Sprintf("Remediation %s applied", req.Action),
		events.TypeRemediationApplied, details)

	return result, nil
}

func (s *Service) withdraw(ctx context.Context, project *projects.Project, c Candidate) (*Result, error) {
	if c.ApplicationCount != 0 {
		return nil, apperrors.New(apperrors.CodePositionHasApplications, MsgPositionHasApplications)
	}

	position := c.Position
	now := s.now()
	position.WithdrawnDate = &now
	if err := s.repo.UpdatePosition(ctx, position); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to withdraw position", err)
	}

	s.logger.Info("Suspended project position withdrawn",
		zap.Int64("project_id", project.ID),
		zap.Int64("position_id", position.ID))
	return &Result{Action: ActionWithdrawPosition, Project: project, Position: position}, nil
}

// adjust lowers the vacancies to the applications received and moves the
// project into evaluation. The position is restored if the transition fails.
func (s *Service) adjust(ctx context.Context, project *projects.Project, c Candidate) (*Result, error) {
	position := c.Position
	previous := position.VacancyCount
	position.VacancyCount = max(c.ApplicationCount, 0)
	if err := s.repo.UpdatePosition(ctx, position); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to adjust vacancies", err)
	}

	updated, err := s.resolver.ResolveSuspension(ctx, project.ID)
	if err != nil {
		position.VacancyCount = previous
		if restoreErr := s.repo.UpdatePosition(ctx, position); restoreErr != nil {
			s.logger.Error("Failed to restore vacancies",
				zap.Int64("position_id", position.ID),
				zap.Error(restoreErr))
		}
		return nil, err
	}

	s.logger.Info("Vacancies adjusted",
		zap.Int64("project_id", project.ID),
		zap.Int64("position_id", position.ID),
		zap.Int("from", previous),
		zap.Int("to", position.VacancyCount))
	return &Result{Action: ActionAdjustVacancies, Project: updated, Position: position}, nil
}

func (s *Service) modifySchedule(ctx context.Context, project *projects.Project, form *validation.ScheduleForm) (*Result, error) {
	if form == nil {
		return nil, apperrors.New(apperrors.CodeValidation, validation.MsgInvalidData)
	}
	schedule, result := s.validator.ValidateSchedule(*form)
	if !result.Valid() {
		return nil, result.Err()
	}

	project.ApplicationsCloseDate = schedule.ApplicationsCloseDate
	project.ActivitiesStartDate = schedule.ActivitiesStartDate
	project.ActivitiesEndDate = schedule.ActivitiesEndDate
	if project.ApplicationsOpenDate != nil {
		open := validation.OpenDateFor(project.ApplicationsCloseDate)
		project.ApplicationsOpenDate = &open
	}
	project.UpdatedAt = s.now()
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to update schedule", err)
	}

	s.logger.Info("Suspended project schedule modified",
		zap.Int64("project_id", project.ID),
		zap.Time("applications_close_date", project.ApplicationsCloseDate))
	return &Result{Action: ActionModifySchedule, Project: project}, nil
}

func (s *Service) eligible(ctx context.Context, projectID int64) (*projects.Project, []Candidate, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			return nil, nil, apperrors.New(apperrors.CodeNotFound, projects.MsgProjectNotFound)
		}
		return nil, nil, apperrors.Wrap(apperrors.CodeInternal, "failed to get project", err)
	}
	if project.Status != projects.StatusSuspended {
		return nil, nil, apperrors.New(apperrors.CodeNotEligible,
			fmt.Sprintf("project is %s, only suspended projects can be remedied", project.Status.Label()))
	}

	positions, err := s.repo.ListPositions(ctx, projectID)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeInternal, "failed to list positions", err)
	}

	var candidates []Candidate
	for _, p := range projects.ActivePositions(positions) {
		count, err := s.tracker.ApplicationCount(ctx, p.ID)
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.CodeInternal, "failed to count applications", err)
		}
		if count < p.VacancyCount {
			candidates = append(candidates, Candidate{Position: p, ApplicationCount: count})
		}
	}
	if len(candidates) == 0 {
		return nil, nil, apperrors.New(apperrors.CodeNotEligible, "project has no under-subscribed positions")
	}
	return project, candidates, nil
}

func pick(candidates []Candidate, positionID int64) (Candidate, error) {
	for _, c := range candidates {
		if c.Position.ID == positionID {
			return c, nil
		}
	}
	return Candidate{}, apperrors.New(apperrors.CodeNotEligible,
		fmt.Sprintf("position %d is not an under-subscribed position of the project", positionID))
}

func activityFor(action Action) string {
	switch action {
	case ActionWithdrawPosition:
		return projects.ActivityPositionWithdrawn
	case ActionAdjustVacancies:
		return projects.ActivityVacanciesAdjusted
	default:
		return projects.ActivityScheduleModified
	}
}
