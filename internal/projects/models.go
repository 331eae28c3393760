package projects

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the lifecycle status of a project
type Status string

const (
	StatusCreated         Status = "CREATED"
	StatusStarted         Status = "STARTED"
	StatusUnderEvaluation Status = "UNDER_EVALUATION"
	StatusSuspended       Status = "SUSPENDED"
	StatusFinished        Status = "FINISHED"
	StatusCancelled       Status = "CANCELLED"
)

// Label returns the status name shown to operators
func (s Status) Label() string {
	switch s {
	case StatusCreated:
		return "Creado"
	case StatusStarted:
		return "Iniciado"
	case StatusUnderEvaluation:
		return "En evaluación"
	case StatusSuspended:
		return "Suspendido"
	case StatusFinished:
		return "Finalizado"
	case StatusCancelled:
		return "Cancelado"
	default:
		return string(s)
	}
}

// Editable reports whether the project data may still be modified
func (s Status) Editable() bool {
	switch s {
	case StatusUnderEvaluation, StatusFinished, StatusCancelled:
		return false
	default:
		return true
	}
}

// Action triggers a lifecycle transition
type Action string

const (
	ActionStart    Action = "start"
	ActionCancel   Action = "cancel"
	ActionSuspend  Action = "suspend"
	ActionFinalize Action = "finalize"
	// ActionEvaluate is fired by the scheduler once applications close.
	ActionEvaluate Action = "evaluate"
	// ActionRemediate is fired when a suspended project's vacancies are adjusted.
	ActionRemediate Action = "remediate"
)

// Project represents an internship placement project between a company and a university
type Project struct {
	ID                    int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                  string     `gorm:"not null;size:200" json:"name"`
	Description           string     `gorm:"size:2000" json:"description"`
	ApplicationsOpenDate  *time.Time `gorm:"type:date" json:"applications_open_date"`
	ApplicationsCloseDate time.Time  `gorm:"type:date;not null" json:"applications_close_date"`
	ActivitiesStartDate   time.Time  `gorm:"type:date;not null" json:"activities_start_date"`
	ActivitiesEndDate     time.Time  `gorm:"type:date;not null" json:"activities_end_date"`
	CompanyTaxID          string     `gorm:"size:13;not null;index" json:"company_tax_id"`
	CompanyName           string     `json:"company_name"`
	UniversityTaxID       string     `gorm:"size:13;not null;index" json:"university_tax_id"`
	UniversityName        string     `json:"university_name"`
	Status                Status     `gorm:"not null;default:'CREATED';index" json:"status"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Position is a role with vacancies offered under a project
type Position struct {
	ID                  int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID           int64               `gorm:"not null;index" json:"project_id"`
	Code                string              `gorm:"not null;size:20" json:"code"`
	Name                string              `gorm:"not null" json:"name"`
	VacancyCount        int                 `gorm:"not null" json:"vacancy_count"`
	MaxApplicationCount int                 `gorm:"not null" json:"max_application_count"`
	WeeklyHours         int                 `gorm:"not null" json:"weekly_hours"`
	WithdrawnDate       *time.Time          `json:"withdrawn_date,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	Requirements        []CareerRequirement `gorm:"foreignKey:PositionID" json:"requirements"`
}

// Active reports whether the position has not been withdrawn
func (p *Position) Active() bool {
	return p.WithdrawnDate == nil
}

// CareerRequirement is the academic eligibility criteria attached to a position
type CareerRequirement struct {
	ID                        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PositionID                int64      `gorm:"not null;index" json:"position_id"`
	CareerCode                string     `gorm:"not null;size:20" json:"career_code"`
	CareerName                string     `json:"career_name"`
	RequiredApprovedCourses   int        `gorm:"not null" json:"required_approved_courses"`
	RequiredInProgressCourses int        `gorm:"not null" json:"required_in_progress_courses"`
	StudyPlanCode             int        `gorm:"not null" json:"study_plan_code"`
	WithdrawnDate             *time.Time `json:"withdrawn_date,omitempty"`
	CreatedAt                 time.Time  `json:"created_at"`
}

// StatusHistory tracks status changes
type StatusHistory struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID  int64     `gorm:"not null;index" json:"project_id"`
	FromStatus Status    `gorm:"not null" json:"from_status"`
	ToStatus   Status    `gorm:"not null" json:"to_status"`
	Action     Action    `gorm:"not null" json:"action"`
	ChangedAt  time.Time `json:"changed_at"`
	ChangedBy  string    `gorm:"not null" json:"changed_by"`
}

func (StatusHistory) TableName() string { return "project_status_history" }

// Activity logs activities on the project
type Activity struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID    int64          `gorm:"not null;index" json:"project_id"`
	ActivityType string         `gorm:"not null" json:"activity_type"`
	Description  string         `json:"description"`
	Details      datatypes.JSON `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UserID       string         `gorm:"not null" json:"user_id"`
}

func (Activity) TableName() string { return "project_activities" }

// Activity types
const (
	ActivityCreated            = "CREATED"
	ActivityUpdated            = "UPDATED"
	ActivityStatusChanged      = "STATUS_CHANGED"
	ActivityPositionsCommitted = "POSITIONS_COMMITTED"
	ActivityPositionWithdrawn  = "POSITION_WITHDRAWN"
	ActivityVacanciesAdjusted  = "VACANCIES_ADJUSTED"
	ActivityScheduleModified   = "SCHEDULE_MODIFIED"
)

// ProjectFilter pages ListProjects
type ProjectFilter struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ActivePositions filters out withdrawn positions
func ActivePositions(positions []*Position) []*Position {
	active := make([]*Position, 0, len(positions))
	for _, p := range positions {
		if p.Active() {
			active = append(active, p)
		}
	}
	return active
}
