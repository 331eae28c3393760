package projects

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/applications"
	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/events"
	"internship-hub/project-portal/project-portal-backend/internal/validation"
	"internship-hub/project-portal/project-portal-backend/pkg/workflows"
)

// Messages shown to the operator
const (
	MsgProjectNotFound      = "No se encontró el proyecto"
	MsgPositionNotFound     = "No se encontró el puesto en el proyecto"
	MsgProjectNotEditable   = "El proyecto no puede modificarse en su estado actual"
	MsgNoPositions          = "El proyecto no tiene puestos activos. Debe dar de alta al menos un puesto"
	MsgNoContracts          = "No se han emitido contratos para el proyecto"
	MsgScheduleInconsistent = "La fecha de cierre de postulaciones debe ser menor a la fecha de inicio del proyecto."
)

// OutcomeKind tags an Outcome
type OutcomeKind string

const (
	OutcomeApplied OutcomeKind = "APPLIED"
	OutcomeBlocked OutcomeKind = "BLOCKED"
)

// BlockReason explains why a guard rejected a transition
type BlockReason string

const (
	BlockNoPositions BlockReason = "NO_POSITIONS"
	BlockNoContracts BlockReason = "NO_CONTRACTS"
)

// DetailScheduleInconsistent refines BlockNoContracts when contracts exist but
// the project's dates are inconsistent.
const DetailScheduleInconsistent = "SCHEDULE_INCONSISTENT"

// Outcome is the result of a transition request: either Applied with the
// updated project, or Blocked with a reason. A blocked request changes nothing.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Project *Project    `json:"project"`
	Reason  BlockReason `json:"reason,omitempty"`
	Detail  string      `json:"detail,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Applied reports whether the transition took place
func (o *Outcome) Applied() bool {
	return o.Kind == OutcomeApplied
}

func applied(p *Project) *Outcome {
	return &Outcome{Kind: OutcomeApplied, Project: p}
}

func blocked(p *Project, reason BlockReason, detail, message string) *Outcome {
	return &Outcome{Kind: OutcomeBlocked, Project: p, Reason: reason, Detail: detail, Message: message}
}

// NewLifecycleMachine returns the project status machine.
// evaluate and remediate are fired by the system, never by an operator.
func NewLifecycleMachine() *workflows.StateMachine {
	return workflows.NewStateMachine(map[string][]workflows.Transition{
		string(StatusCreated): {
			{Action: string(ActionStart), To: string(StatusStarted)},
			{Action: string(ActionCancel), To: string(StatusCancelled)},
		},
		string(StatusStarted): {
			{Action: string(ActionSuspend), To: string(StatusSuspended)},
			{Action: string(ActionCancel), To: string(StatusCancelled)},
			{Action: string(ActionEvaluate), To: string(StatusUnderEvaluation)},
		},
		string(StatusUnderEvaluation): {
			{Action: string(ActionFinalize), To: string(StatusFinished)},
			{Action: string(ActionCancel), To: string(StatusCancelled)},
		},
		string(StatusSuspended): {
			{Action: string(ActionStart), To: string(StatusStarted)},
			{Action: string(ActionCancel), To: string(StatusCancelled)},
			{Action: string(ActionRemediate), To: string(StatusUnderEvaluation)},
		},
		string(StatusFinished):  {},
		string(StatusCancelled): {},
	}, string(ActionEvaluate), string(ActionRemediate))
}

// Controller owns project status changes. Every change goes through the
// lifecycle machine and its guards.
type Controller struct {
	repo    Repository
	tracker applications.Tracker
	machine *workflows.StateMachine
	audit   *Auditor
	logger  *zap.Logger
	now     func() time.Time
}

// NewController creates a lifecycle controller. A nil now defaults to time.Now.
func NewController(
	repo Repository,
	tracker applications.Tracker,
	publisher events.Publisher,
	logger *zap.Logger,
	now func() time.Time,
) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		repo:    repo,
		tracker: tracker,
		machine: NewLifecycleMachine(),
		audit:   NewAuditor(repo, publisher, logger, now),
		logger:  logger,
		now:     now,
	}
}

// AllowedActions lists the operator actions available from status
func (c *Controller) AllowedActions(status Status) []Action {
	raw := c.machine.GetAllowedActions(string(status))
	actions := make([]Action, len(raw))
	for i, a := range raw {
		actions[i] = Action(a)
	}
	return actions
}

// RequestTransition applies an operator action to a project. Pairs outside the
// lifecycle table, including system-only actions, fail with INVALID_TRANSITION.
func (c *Controller) RequestTransition(ctx context.Context, projectID int64, action Action) (*Outcome, error) {
	project, err := c.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}

	if c.machine.IsTerminal(string(project.Status)) {
		return nil, closedProject(project.Status, action)
	}
	if c.machine.IsInternal(string(action)) {
		return nil, invalidTransition(project.Status, action)
	}
	to, ok := c.machine.Resolve(string(project.Status), string(action))
	if !ok {
		return nil, invalidTransition(project.Status, action)
	}

	switch action {
	case ActionStart:
		outcome, err := c.guardActivePositions(ctx, project)
		if err != nil || outcome != nil {
			return outcome, err
		}
	case ActionFinalize:
		outcome, err := c.guardFinalize(ctx, project)
		if err != nil || outcome != nil {
			return outcome, err
		}
	}

	updated, err := c.apply(ctx, project, action, Status(to))
	if err != nil {
		return nil, err
	}
	return applied(updated), nil
}

// CloseApplications moves a STARTED project whose application window has
// closed into UNDER_EVALUATION. Called by the scheduler.
func (c *Controller) CloseApplications(ctx context.Context, projectID int64) (*Project, error) {
	project, err := c.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}
	if !project.ApplicationsCloseDate.Before(startOfDay(c.now())) {
		return nil, apperrors.New(apperrors.CodeInvalidTransition,
			fmt.Sprintf("applications of project %d are still open", projectID))
	}
	return c.applyInternal(ctx, project, ActionEvaluate)
}

// ResolveSuspension moves a SUSPENDED project into UNDER_EVALUATION once its
// under-subscribed positions have been adjusted.
func (c *Controller) ResolveSuspension(ctx context.Context, projectID int64) (*Project, error) {
	project, err := c.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}
	return c.applyInternal(ctx, project, ActionRemediate)
}

func (c *Controller) applyInternal(ctx context.Context, project *Project, action Action) (*Project, error) {
	if c.machine.IsTerminal(string(project.Status)) {
		return nil, closedProject(project.Status, action)
	}
	to, ok := c.machine.Resolve(string(project.Status), string(action))
	if !ok {
		return nil, invalidTransition(project.Status, action)
	}
	return c.apply(ctx, project, action, Status(to))
}

func (c *Controller) guardActivePositions(ctx context.Context, project *Project) (*Outcome, error) {
	positions, err := c.repo.ListPositions(ctx, project.ID)
	if err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}
	if len(ActivePositions(positions)) == 0 {
		c.logger.Info("Project transition blocked",
			zap.Int64("project_id", project.ID),
			zap.String("reason", string(BlockNoPositions)))
		return blocked(project, BlockNoPositions, "", MsgNoPositions), nil
	}
	return nil, nil
}

func (c *Controller) guardFinalize(ctx context.Context, project *Project) (*Outcome, error) {
	issued, err := c.tracker.HasIssuedContracts(ctx, project.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to check issued contracts", err)
	}
	if !issued {
		c.logger.Info("Project transition blocked",
			zap.Int64("project_id", project.ID),
			zap.String("reason", string(BlockNoContracts)))
		return blocked(project, BlockNoContracts, "", MsgNoContracts), nil
	}

	if !validation.CheckSchedule(ScheduleOf(project)).Valid() {
		c.logger.Info("Project transition blocked",
			zap.Int64("project_id", project.ID),
			zap.String("reason", string(BlockNoContracts)),
			zap.String("detail", DetailScheduleInconsistent))
		return blocked(project, BlockNoContracts, DetailScheduleInconsistent, MsgScheduleInconsistent), nil
	}
	return nil, nil
}

func (c *Controller) apply(ctx context.Context, project *Project, action Action, to Status) (*Project, error) {
	from := project.Status
	now := c.now()

	updated := cloneProject(project)
	updated.Status = to
	updated.UpdatedAt = now
	if action == ActionStart {
		open := validation.OpenDateFor(updated.ApplicationsCloseDate)
		updated.ApplicationsOpenDate = &open
	}

	history := &StatusHistory{
		ProjectID:  updated.ID,
		FromStatus: from,
		ToStatus:   to,
		Action:     action,
		ChangedAt:  now,
		ChangedBy:  actorOf(ctx),
	}
	if err := c.repo.SaveTransition(ctx, updated, history); err != nil {
		return nil, repoError(err, MsgProjectNotFound)
	}

	c.logger.Info("Project status changed",
		zap.Int64("project_id", updated.ID),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	c.audit.Record(ctx, updated.ID, ActivityStatusChanged,
		fmt.Sprintf("Status changed from %s to %s", from.Label(), to.Label()),
		events.TypeProjectTransitioned,
		map[string]any{"action": action, "from": from, "to": to})

	return updated, nil
}

// ScheduleOf extracts the project's calendar for the date consistency rule
func ScheduleOf(p *Project) validation.Schedule {
	return validation.Schedule{
		ApplicationsCloseDate: p.ApplicationsCloseDate,
		ActivitiesStartDate:   p.ActivitiesStartDate,
		ActivitiesEndDate:     p.ActivitiesEndDate,
	}
}

func invalidTransition(status Status, action Action) error {
	return apperrors.New(apperrors.CodeInvalidTransition,
		fmt.Sprintf("action %q is not allowed for a project in status %s", action, status))
}

func closedProject(status Status, action Action) error {
	return apperrors.New(apperrors.CodeInvalidTransition,
		fmt.Sprintf("action %q is not allowed: project is %s and no transitions leave it", action, status.Label()))
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
