package provisioning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/events"
	"internship-hub/project-portal/project-portal-backend/internal/projects"
	"internship-hub/project-portal/project-portal-backend/internal/validation"
	"internship-hub/project-portal/project-portal-backend/pkg/workflows"
)

// Step is a screen of the provisioning workflow
type Step string

const (
	StepPositionForm       Step = "POSITION_FORM"
	StepPositionConfirm    Step = "POSITION_CONFIRM"
	StepRequirementIntro   Step = "REQUIREMENT_INTRO"
	StepRequirementForm    Step = "REQUIREMENT_FORM"
	StepRequirementConfirm Step = "REQUIREMENT_CONFIRM"
	StepMoreRequirements   Step = "MORE_REQUIREMENTS"
	StepMorePositions      Step = "MORE_POSITIONS"
	StepCommitted          Step = "COMMITTED"
	StepCancelled          Step = "CANCELLED"
)

// Terminal reports whether the workflow has ended
func (s Step) Terminal() bool {
	return stepMachine.IsTerminal(string(s))
}

// EventKind is an operator input
type EventKind string

const (
	EventSubmit  EventKind = "submit"
	EventBack    EventKind = "back"
	EventCancel  EventKind = "cancel"
	EventConfirm EventKind = "confirm"
	EventYes     EventKind = "yes"
	EventNo      EventKind = "no"
)

// Event is an operator input. Submit events carry the form of the current step.
type Event struct {
	Kind        EventKind                   `json:"kind" binding:"required"`
	Position    *validation.PositionForm    `json:"position,omitempty"`
	Requirement *validation.RequirementForm `json:"requirement,omitempty"`
}

// PendingPosition is a confirmed position and the requirements confirmed for it so far
type PendingPosition struct {
	Position     validation.PositionInput      `json:"position"`
	Requirements []validation.RequirementInput `json:"requirements"`
}

// View is a snapshot of the workflow for display
type View struct {
	ProjectID            int64                        `json:"project_id"`
	Step                 Step                         `json:"step"`
	AllowedEvents        []EventKind                  `json:"allowed_events"`
	PositionForm         validation.PositionForm      `json:"position_form"`
	RequirementForm      validation.RequirementForm   `json:"requirement_form"`
	Errors               *validation.Result           `json:"errors,omitempty"`
	CandidatePosition    *validation.PositionInput    `json:"candidate_position,omitempty"`
	CandidateRequirement *validation.RequirementInput `json:"candidate_requirement,omitempty"`
	Pending              []PendingPosition            `json:"pending"`
	Committed            []*projects.Position         `json:"committed,omitempty"`
}

var stepMachine = newStepMachine()

func newStepMachine() *workflows.StateMachine {
	t := func(e EventKind, to Step) workflows.Transition {
		return workflows.Transition{Action: string(e), To: string(to)}
	}
	return workflows.NewStateMachine(map[string][]workflows.Transition{
		string(StepPositionForm): {
			t(EventSubmit, StepPositionConfirm),
			t(EventCancel, StepCancelled),
		},
		string(StepPositionConfirm): {
			t(EventBack, StepPositionForm),
			t(EventCancel, StepCancelled),
			t(EventConfirm, StepRequirementIntro),
		},
		string(StepRequirementIntro): {
			t(EventConfirm, StepRequirementForm),
			t(EventCancel, StepCancelled),
		},
		string(StepRequirementForm): {
			t(EventSubmit, StepRequirementConfirm),
			t(EventBack, StepRequirementIntro),
			t(EventCancel, StepCancelled),
		},
		string(StepRequirementConfirm): {
			t(EventBack, StepRequirementForm),
			t(EventCancel, StepCancelled),
			t(EventConfirm, StepMoreRequirements),
		},
		string(StepMoreRequirements): {
			t(EventYes, StepRequirementForm),
			t(EventNo, StepMorePositions),
			t(EventCancel, StepCancelled),
		},
		string(StepMorePositions): {
			t(EventYes, StepPositionForm),
			t(EventNo, StepCommitted),
			t(EventCancel, StepCancelled),
		},
		string(StepCommitted): {},
		string(StepCancelled): {},
	})
}

// Workflow creates one or more positions for a CREATED project, each with one
// or more career requirements. Nothing is written before the final commit.
type Workflow struct {
	mu        sync.Mutex
	projectID int64
	repo      projects.Repository
	validator *validation.Validator
	audit     *projects.Auditor
	logger    *zap.Logger
	machine   *workflows.StateMachine

	step                 Step
	positionForm         validation.PositionForm
	requirementForm      validation.RequirementForm
	errors               *validation.Result
	candidatePosition    *validation.PositionInput
	candidateRequirement *validation.RequirementInput
	pending              []*PendingPosition
	committed            []*projects.Position
	lastActivity         time.Time
	now                  func() time.Time
}

func newWorkflow(
	projectID int64,
	repo projects.Repository,
	validator *validation.Validator,
	audit *projects.Auditor,
	logger *zap.Logger,
	now func() time.Time,
) *Workflow {
	return &Workflow{
		projectID:    projectID,
		repo:         repo,
		validator:    validator,
		audit:        audit,
		logger:       logger,
		machine:      stepMachine,
		step:         StepPositionForm,
		lastActivity: now(),
		now:          now,
	}
}

// Handle applies one event. On error nothing changes except, for a rejected
// submit, the entered values and the validation result kept for display.
func (w *Workflow) Handle(ctx context.Context, event Event) (View, error) {
	view, committed, err := w.apply(ctx, event)
	if committed != nil {
		w.recordCommit(ctx, committed)
	}
	return view, err
}

// apply runs the event under the lock and returns the positions it committed, if any
func (w *Workflow) apply(ctx context.Context, event Event) (View, []*projects.Position, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastActivity = w.now()

	if w.step.Terminal() {
		return w.view(), nil, apperrors.New(apperrors.CodeWorkflowClosed,
			fmt.Sprintf("provisioning workflow already %s", w.step))
	}
	next, ok := w.machine.Resolve(string(w.step), string(event.Kind))
	if !ok || !w.eventAllowed(event.Kind) {
		return w.view(), nil, w.invalidEvent(event.Kind)
	}

	var err error
	switch event.Kind {
	case EventSubmit:
		err = w.submit(ctx, event, Step(next))
	case EventCancel:
		w.cancel()
	case EventNo:
		if w.step == StepMorePositions {
			err = w.commit(ctx)
			if err == nil {
				return w.view(), w.committed, nil
			}
		} else {
			w.step = Step(next)
		}
	default:
		w.advance(event.Kind, Step(next))
	}
	return w.view(), nil, err
}

// View returns the current snapshot
func (w *Workflow) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view()
}

func (w *Workflow) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActivity
}

// eventAllowed applies the guards the step table cannot express
func (w *Workflow) eventAllowed(kind EventKind) bool {
	if w.step == StepRequirementForm && kind == EventBack {
		return len(w.current().Requirements) == 0
	}
	return true
}

func (w *Workflow) submit(ctx context.Context, event Event, next Step) error {
	switch w.step {
	case StepPositionForm:
		if event.Position == nil {
			return apperrors.New(apperrors.CodeInvalidEvent, "submit requires a position form")
		}
		taken, err := w.takenCodes(ctx)
		if err != nil {
			return err
		}
		input, result, err := w.validator.ValidatePosition(ctx, *event.Position, taken)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, "failed to validate position", err)
		}
		w.positionForm = *event.Position
		if !result.Valid() {
			w.errors = result
			return nil
		}
		w.errors = nil
		w.candidatePosition = input
		w.step = next

	case StepRequirementForm:
		if event.Requirement == nil {
			return apperrors.New(apperrors.CodeInvalidEvent, "submit requires a requirement form")
		}
		input, result, err := w.validator.ValidateRequirement(ctx, *event.Requirement)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, "failed to validate requirement", err)
		}
		w.requirementForm = *event.Requirement
		if !result.Valid() {
			w.errors = result
			return nil
		}
		w.errors = nil
		w.candidateRequirement = input
		w.step = next
	}
	return nil
}

func (w *Workflow) advance(kind EventKind, next Step) {
	switch {
	case w.step == StepPositionConfirm && kind == EventConfirm:
		w.pending = append(w.pending, &PendingPosition{Position: *w.candidatePosition})
		w.candidatePosition = nil
	case w.step == StepRequirementConfirm && kind == EventConfirm:
		current := w.current()
		current.Requirements = append(current.Requirements, *w.candidateRequirement)
		w.candidateRequirement = nil
	case w.step == StepPositionConfirm && kind == EventBack:
		w.candidatePosition = nil
	case w.step == StepRequirementConfirm && kind == EventBack:
		w.candidateRequirement = nil
	case w.step == StepMoreRequirements && kind == EventYes:
		w.requirementForm = validation.RequirementForm{}
	case w.step == StepMorePositions && kind == EventYes:
		w.positionForm = validation.PositionForm{}
		w.requirementForm = validation.RequirementForm{}
	}
	w.errors = nil
	w.step = next
}

func (w *Workflow) cancel() {
	w.logger.Info("Provisioning cancelled",
		zap.Int64("project_id", w.projectID),
		zap.Int("discarded_positions", len(w.pending)))
	w.candidatePosition = nil
	w.candidateRequirement = nil
	w.pending = nil
	w.errors = nil
	w.step = StepCancelled
}

// commit writes every pending position in one transaction. The repository
// re-checks that the project is still CREATED.
func (w *Workflow) commit(ctx context.Context) error {
	positions := make([]*projects.Position, 0, len(w.pending))
	for _, p := range w.pending {
		position := &projects.Position{
			Code:                p.Position.Code,
			Name:                p.Position.Name,
			VacancyCount:        p.Position.VacancyCount,
			MaxApplicationCount: p.Position.MaxApplicationCount,
			WeeklyHours:         p.Position.WeeklyHours,
		}
		for _, r := range p.Requirements {
			position.Requirements = append(position.Requirements, projects.CareerRequirement{
				CareerCode:                r.CareerCode,
				CareerName:                r.CareerName,
				RequiredApprovedCourses:   r.RequiredApprovedCourses,
				RequiredInProgressCourses: r.RequiredInProgressCourses,
				StudyPlanCode:             r.StudyPlanCode,
			})
		}
		positions = append(positions, position)
	}

	if err := w.repo.CommitPositions(ctx, w.projectID, positions); err != nil {
		w.logger.Warn("Failed to commit positions",
			zap.Int64("project_id", w.projectID),
			zap.Error(err))
		return commitError(err)
	}

	w.committed = positions
	w.step = StepCommitted
	return nil
}

// recordCommit logs and audits a commit. It runs without the workflow lock.
func (w *Workflow) recordCommit(ctx context.Context, positions []*projects.Position) {
	codes := make([]string, len(positions))
	for i, p := range positions {
		codes[i] = p.Code
	}
	w.logger.Info("Positions committed",
		zap.Int64("project_id", w.projectID),
		zap.Strings("codes", codes))
	w.audit.Record(ctx, w.projectID, projects.ActivityPositionsCommitted,
		fmt.Sprintf("%d positions added", len(positions)),
		events.TypePositionsCommitted,
		map[string]any{"codes": codes})
}

// takenCodes returns the codes of the project's active positions plus the pending ones
func (w *Workflow) takenCodes(ctx context.Context) ([]string, error) {
	existing, err := w.repo.ListPositions(ctx, w.projectID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to list positions", err)
	}
	var codes []string
	for _, p := range projects.ActivePositions(existing) {
		codes = append(codes, p.Code)
	}
	for _, p := range w.pending {
		codes = append(codes, p.Position.Code)
	}
	return codes, nil
}

func (w *Workflow) current() *PendingPosition {
	if len(w.pending) == 0 {
		return &PendingPosition{}
	}
	return w.pending[len(w.pending)-1]
}

func (w *Workflow) allowedEvents() []EventKind {
	var kinds []EventKind
	for _, a := range w.machine.GetAllowedActions(string(w.step)) {
		if w.eventAllowed(EventKind(a)) {
			kinds = append(kinds, EventKind(a))
		}
	}
	return kinds
}

func (w *Workflow) invalidEvent(kind EventKind) error {
	return apperrors.New(apperrors.CodeInvalidEvent,
		fmt.Sprintf("event %q is not valid at step %s", kind, w.step))
}

func (w *Workflow) view() View {
	v := View{
		ProjectID:       w.projectID,
		Step:            w.step,
		AllowedEvents:   w.allowedEvents(),
		PositionForm:    w.positionForm,
		RequirementForm: w.requirementForm,
		Errors:          w.errors,
		Pending:         make([]PendingPosition, len(w.pending)),
		Committed:       w.committed,
	}
	if w.candidatePosition != nil {
		c := *w.candidatePosition
		v.CandidatePosition = &c
	}
	if w.candidateRequirement != nil {
		c := *w.candidateRequirement
		v.CandidateRequirement = &c
	}
	for i, p := range w.pending {
		v.Pending[i] = PendingPosition{
			Position:     p.Position,
			Requirements: append([]validation.RequirementInput(nil), p.Requirements...),
		}
	}
	return v
}

func commitError(err error) error {
	switch {
	case errors.Is(err, projects.ErrNotEditable):
		return apperrors.New(apperrors.CodeNotEditable, projects.MsgProjectNotEditable)
	case errors.Is(err, projects.ErrNotFound):
		return apperrors.New(apperrors.CodeNotFound, projects.MsgProjectNotFound)
	default:
		return apperrors.Wrap(apperrors.CodeInternal, "failed to commit positions", err)
	}
}
