package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"internship-hub/project-portal/project-portal-backend/internal/directory"
)

var (
	integerPattern   = regexp.MustCompile(`^[-+]?\d+$`)
	studyPlanPattern = regexp.MustCompile(`^(?i:PE)?[-+]?\d+$`)
)

// NameChecker reports whether a project name is already taken, ignoring excludeID.
type NameChecker interface {
	ProjectNameExists(ctx context.Context, name string, excludeID int64) (bool, error)
}

// Validator validates the project, position, requirement and schedule forms.
//
// Struct tags only express presence and parseability. Any tag failure collapses
// into the single MsgInvalidData general error and no further check runs.
// Range, format, existence and uniqueness checks follow and produce field errors.
type Validator struct {
	directory directory.Repository
	names     NameChecker
	structs   *validator.Validate
}

// ProjectForm is the raw project form as typed by the operator
type ProjectForm struct {
	Name                  string `json:"name" validate:"required,max=200"`
	Description           string `json:"description" validate:"max=2000"`
	ApplicationsCloseDate string `json:"applications_close_date" validate:"required,datetime=2006-01-02"`
	ActivitiesStartDate   string `json:"activities_start_date" validate:"omitempty,datetime=2006-01-02"`
	ActivitiesEndDate     string `json:"activities_end_date" validate:"required,datetime=2006-01-02"`
	CompanyTaxID          string `json:"company_tax_id" validate:"required"`
	UniversityTaxID       string `json:"university_tax_id" validate:"required"`
}

// PositionForm is the raw position form
type PositionForm struct {
	Code                string `json:"code" validate:"required,max=20"`
	VacancyCount        string `json:"vacancy_count" validate:"required,integer"`
	MaxApplicationCount string `json:"max_application_count" validate:"required,integer"`
	WeeklyHours         string `json:"weekly_hours" validate:"required,integer"`
}

// RequirementForm is the raw career requirement form
type RequirementForm struct {
	CareerCode                string `json:"career_code" validate:"required,max=20"`
	RequiredApprovedCourses   string `json:"required_approved_courses" validate:"required,integer"`
	RequiredInProgressCourses string `json:"required_in_progress_courses" validate:"required,integer"`
	StudyPlanCode             string `json:"study_plan_code" validate:"required,studyplan"`
}

// ScheduleForm is the raw schedule form used when a project's dates are modified
type ScheduleForm struct {
	ApplicationsCloseDate string `json:"applications_close_date" validate:"required,datetime=2006-01-02"`
	ActivitiesStartDate   string `json:"activities_start_date" validate:"omitempty,datetime=2006-01-02"`
	ActivitiesEndDate     string `json:"activities_end_date" validate:"required,datetime=2006-01-02"`
}

// ProjectInput is a validated project form
type ProjectInput struct {
	Name            string
	Description     string
	Schedule        Schedule
	CompanyTaxID    string
	CompanyName     string
	UniversityTaxID string
	UniversityName  string
}

// PositionInput is a validated position form
type PositionInput struct {
	Code                string `json:"code"`
	Name                string `json:"name"`
	VacancyCount        int    `json:"vacancy_count"`
	MaxApplicationCount int    `json:"max_application_count"`
	WeeklyHours         int    `json:"weekly_hours"`
}

// RequirementInput is a validated career requirement form
type RequirementInput struct {
	CareerCode                string `json:"career_code"`
	CareerName                string `json:"career_name"`
	RequiredApprovedCourses   int    `json:"required_approved_courses"`
	RequiredInProgressCourses int    `json:"required_in_progress_courses"`
	StudyPlanCode             int    `json:"study_plan_code"`
}

// New creates a validator backed by the directory and a project name checker
func New(dir directory.Repository, names NameChecker) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	custom := map[string]validator.Func{
		"integer": func(fl validator.FieldLevel) bool {
			return integerPattern.MatchString(fl.Field().String())
		},
		"studyplan": func(fl validator.FieldLevel) bool {
			return studyPlanPattern.MatchString(fl.Field().String())
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}

	return &Validator{
		directory: dir,
		names:     names,
		structs:   v,
	}
}

// ValidateProject validates a project form. excludeID is the project being
// edited (0 on create) and is ignored by the name uniqueness check.
func (v *Validator) ValidateProject(ctx context.Context, form ProjectForm, excludeID int64) (*ProjectInput, *Result, error) {
	form = ProjectForm{
		Name:                  strings.TrimSpace(form.Name),
		Description:           strings.TrimSpace(form.Description),
		ApplicationsCloseDate: strings.TrimSpace(form.ApplicationsCloseDate),
		ActivitiesStartDate:   strings.TrimSpace(form.ActivitiesStartDate),
		ActivitiesEndDate:     strings.TrimSpace(form.ActivitiesEndDate),
		CompanyTaxID:          FormatTaxID(form.CompanyTaxID),
		UniversityTaxID:       FormatTaxID(form.UniversityTaxID),
	}
	if !v.passesStructRules(form) {
		return nil, invalidData(), nil
	}

	schedule, ok := parseSchedule(form.ApplicationsCloseDate, form.ActivitiesStartDate, form.ActivitiesEndDate)
	if !ok {
		return nil, invalidData(), nil
	}

	result := newResult()
	if !IsTaxID(form.CompanyTaxID) {
		result.addFieldError(FieldCompanyTaxID, MsgTaxIDFormat)
	}
	if !IsTaxID(form.UniversityTaxID) {
		result.addFieldError(FieldUniversityTaxID, MsgTaxIDFormat)
	}
	result.Merge(CheckSchedule(schedule))

	input := &ProjectInput{
		Name:            form.Name,
		Description:     form.Description,
		Schedule:        schedule,
		CompanyTaxID:    form.CompanyTaxID,
		UniversityTaxID: form.UniversityTaxID,
	}

	if !result.hasFieldError(FieldCompanyTaxID) {
		company, err := v.directory.FindCompanyByTaxID(ctx, form.CompanyTaxID)
		switch {
		case errors.Is(err, directory.ErrNotFound):
			result.addFieldError(FieldCompanyTaxID, MsgCompanyNotFound)
		case err != nil:
			return nil, nil, fmt.Errorf("failed to look up company: %w", err)
		default:
			input.CompanyName = company.Name
		}
	}
	if !result.hasFieldError(FieldUniversityTaxID) {
		university, err := v.directory.FindUniversityByTaxID(ctx, form.UniversityTaxID)
		switch {
		case errors.Is(err, directory.ErrNotFound):
			result.addFieldError(FieldUniversityTaxID, MsgUniversityNotFound)
		case err != nil:
			return nil, nil, fmt.Errorf("failed to look up university: %w", err)
		default:
			input.UniversityName = university.Name
		}
	}

	taken, err := v.names.ProjectNameExists(ctx, form.Name, excludeID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check project name: %w", err)
	}
	if taken {
		result.addFieldError(FieldName, MsgProjectNameTaken)
	}

	if !result.Valid() {
		return nil, result, nil
	}
	return input, result, nil
}

// ValidatePosition validates a position form. takenCodes are the codes of the
// project's active positions plus those pending in the current workflow.
func (v *Validator) ValidatePosition(ctx context.Context, form PositionForm, takenCodes []string) (*PositionInput, *Result, error) {
	form = PositionForm{
		Code:                strings.TrimSpace(form.Code),
		VacancyCount:        strings.TrimSpace(form.VacancyCount),
		MaxApplicationCount: strings.TrimSpace(form.MaxApplicationCount),
		WeeklyHours:         strings.TrimSpace(form.WeeklyHours),
	}
	if !v.passesStructRules(form) {
		return nil, invalidData(), nil
	}

	vacancies, ok1 := parseInt(form.VacancyCount)
	maxApplications, ok2 := parseInt(form.MaxApplicationCount)
	hours, ok3 := parseInt(form.WeeklyHours)
	if !ok1 || !ok2 || !ok3 {
		return nil, invalidData(), nil
	}

	result := newResult()
	if vacancies <= 0 {
		result.addFieldError(FieldVacancyCount, MsgVacanciesPositive)
	}
	if hours <= 0 {
		result.addFieldError(FieldWeeklyHours, MsgHoursPositive)
	}
	if maxApplications < 0 {
		result.addFieldError(FieldMaxApplicationCount, MsgApplicationsNotNeg)
	}

	input := &PositionInput{
		Code:                form.Code,
		VacancyCount:        vacancies,
		MaxApplicationCount: maxApplications,
		WeeklyHours:         hours,
	}

	catalog, err := v.directory.FindPositionByCode(ctx, form.Code)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		result.addFieldError(FieldPositionCode, MsgPositionNotFound)
	case err != nil:
		return nil, nil, fmt.Errorf("failed to look up position: %w", err)
	default:
		input.Name = catalog.Name
	}

	for _, code := range takenCodes {
		if code == form.Code {
			result.addFieldError(FieldPositionCode, MsgPositionDuplicate)
			break
		}
	}

	if !result.Valid() {
		return nil, result, nil
	}
	return input, result, nil
}

// ValidateRequirement validates a career requirement form
func (v *Validator) ValidateRequirement(ctx context.Context, form RequirementForm) (*RequirementInput, *Result, error) {
	form = RequirementForm{
		CareerCode:                strings.TrimSpace(form.CareerCode),
		RequiredApprovedCourses:   strings.TrimSpace(form.RequiredApprovedCourses),
		RequiredInProgressCourses: strings.TrimSpace(form.RequiredInProgressCourses),
		StudyPlanCode:             strings.TrimSpace(form.StudyPlanCode),
	}
	if !v.passesStructRules(form) {
		return nil, invalidData(), nil
	}

	approved, ok1 := parseInt(form.RequiredApprovedCourses)
	inProgress, ok2 := parseInt(form.RequiredInProgressCourses)
	plan, ok3 := parseInt(trimStudyPlanPrefix(form.StudyPlanCode))
	if !ok1 || !ok2 || !ok3 || approved < 0 || inProgress < 0 || plan <= 0 {
		return nil, invalidData(), nil
	}

	result := newResult()

	input := &RequirementInput{
		CareerCode:                form.CareerCode,
		RequiredApprovedCourses:   approved,
		RequiredInProgressCourses: inProgress,
		StudyPlanCode:             plan,
	}

	career, err := v.directory.FindCareerByCode(ctx, form.CareerCode)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		result.addFieldError(FieldCareerCode, MsgCareerNotFound)
	case err != nil:
		return nil, nil, fmt.Errorf("failed to look up career: %w", err)
	default:
		input.CareerName = career.Name
	}

	_, err = v.directory.FindStudyPlanByCode(ctx, plan)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		result.addFieldError(FieldStudyPlanCode, MsgStudyPlanNotFound)
	case err != nil:
		return nil, nil, fmt.Errorf("failed to look up study plan: %w", err)
	}

	if !result.Valid() {
		return nil, result, nil
	}
	return input, result, nil
}

// ValidateSchedule validates a standalone schedule form with the same rule as ValidateProject
func (v *Validator) ValidateSchedule(form ScheduleForm) (*Schedule, *Result) {
	form = ScheduleForm{
		ApplicationsCloseDate: strings.TrimSpace(form.ApplicationsCloseDate),
		ActivitiesStartDate:   strings.TrimSpace(form.ActivitiesStartDate),
		ActivitiesEndDate:     strings.TrimSpace(form.ActivitiesEndDate),
	}
	if !v.passesStructRules(form) {
		return nil, invalidData()
	}

	schedule, ok := parseSchedule(form.ApplicationsCloseDate, form.ActivitiesStartDate, form.ActivitiesEndDate)
	if !ok {
		return nil, invalidData()
	}

	result := CheckSchedule(schedule)
	if !result.Valid() {
		return nil, result
	}
	return &schedule, result
}

func (v *Validator) passesStructRules(form any) bool {
	return v.structs.Struct(form) == nil
}

// parseSchedule parses the three dates; an empty start is derived from the close date.
func parseSchedule(closeDate, startDate, endDate string) (Schedule, bool) {
	var s Schedule
	var err error

	if s.ApplicationsCloseDate, err = parseDate(closeDate); err != nil {
		return s, false
	}
	if s.ActivitiesEndDate, err = parseDate(endDate); err != nil {
		return s, false
	}
	if startDate == "" {
		s.ActivitiesStartDate = EarliestStart(s.ApplicationsCloseDate)
		return s, true
	}
	if s.ActivitiesStartDate, err = parseDate(startDate); err != nil {
		return s, false
	}
	return s, true
}

func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func trimStudyPlanPrefix(s string) string {
	if len(s) >= 2 && strings.EqualFold(s[:2], "PE") {
		return s[2:]
	}
	return s
}
