package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/directory"
)

// MockNameChecker is a mock implementation of NameChecker
type MockNameChecker struct {
	mock.Mock
}

func (m *MockNameChecker) ProjectNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func testDirectory() *directory.MemoryRepository {
	return directory.NewMemoryRepository(&directory.Seed{
		Companies:    []directory.Company{{TaxID: "30-71234567-8", Name: "TechCorp SA"}},
		Universities: []directory.University{{TaxID: "30-54667890-1", Name: "Universidad Tecnológica Nacional"}},
		Careers:      []directory.Career{{Code: "C0001", Name: "Ingeniería en Sistemas"}},
		StudyPlans:   []directory.StudyPlan{{Code: 1, Name: "PE1"}},
		Positions:    []directory.CatalogPosition{{Code: "P0001", Name: "Desarrollador Full Stack"}},
	})
}

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func validProjectForm() ProjectForm {
	return ProjectForm{
		Name:                  "Sistema de Gestión Académica",
		Description:           "Gestión de estudiantes y materias",
		ApplicationsCloseDate: "2025-02-15",
		ActivitiesEndDate:     "2025-12-15",
		CompanyTaxID:          "30-71234567-8",
		UniversityTaxID:       "30-54667890-1",
	}
}

func TestValidateProjectDerivesStartDate(t *testing.T) {
	names := new(MockNameChecker)
	names.On("ProjectNameExists", mock.Anything, "Sistema de Gestión Académica", int64(0)).Return(false, nil)
	v := New(testDirectory(), names)

	input, result, err := v.ValidateProject(context.Background(), validProjectForm(), 0)

	require.NoError(t, err)
	assert.True(t, result.Valid())
	require.NotNil(t, input)
	assert.Equal(t, date("2025-03-15"), input.Schedule.ActivitiesStartDate)
	assert.Equal(t, "TechCorp SA", input.CompanyName)
	assert.Equal(t, "Universidad Tecnológica Nacional", input.UniversityName)
	names.AssertExpectations(t)
}

func TestValidateProjectEndBeforeDerivedStart(t *testing.T) {
	names := new(MockNameChecker)
	names.On("ProjectNameExists", mock.Anything, mock.Anything, int64(0)).Return(false, nil)
	v := New(testDirectory(), names)

	form := validProjectForm()
	form.ActivitiesEndDate = "2025-03-01"

	input, result, err := v.ValidateProject(context.Background(), form, 0)

	require.NoError(t, err)
	assert.Nil(t, input)
	assert.Equal(t, []string{MsgEndAfterStart}, result.GeneralErrors)
	assert.Equal(t, MsgEndAfterStart, result.FieldErrors[FieldActivitiesStartDate])
	assert.Equal(t, MsgEndAfterStart, result.FieldErrors[FieldActivitiesEndDate])
}

func TestValidateProjectStartTooEarly(t *testing.T) {
	names := new(MockNameChecker)
	names.On("ProjectNameExists", mock.Anything, mock.Anything, int64(0)).Return(false, nil)
	v := New(testDirectory(), names)

	form := validProjectForm()
	form.ActivitiesStartDate = "2025-03-14"

	_, result, err := v.ValidateProject(context.Background(), form, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{MsgCloseBeforeStart}, result.GeneralErrors)
	assert.Contains(t, result.FieldErrors, FieldApplicationsCloseDate)
	assert.Contains(t, result.FieldErrors, FieldActivitiesStartDate)
}

func TestValidateProjectMissingFieldIsGeneric(t *testing.T) {
	names := new(MockNameChecker)
	v := New(testDirectory(), names)

	form := validProjectForm()
	form.UniversityTaxID = "  "

	input, result, err := v.ValidateProject(context.Background(), form, 0)

	require.NoError(t, err)
	assert.Nil(t, input)
	assert.Equal(t, []string{MsgInvalidData}, result.GeneralErrors)
	assert.Empty(t, result.FieldErrors)
	names.AssertNotCalled(t, "ProjectNameExists", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateProjectUnparseableDateIsGeneric(t *testing.T) {
	v := New(testDirectory(), new(MockNameChecker))

	form := validProjectForm()
	form.ApplicationsCloseDate = "15/02/2025"

	_, result, err := v.ValidateProject(context.Background(), form, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{MsgInvalidData}, result.GeneralErrors)
}

func TestValidateProjectTaxIDAndLookups(t *testing.T) {
	names := new(MockNameChecker)
	names.On("ProjectNameExists", mock.Anything, mock.Anything, int64(4)).Return(true, nil)
	v := New(testDirectory(), names)

	form := validProjectForm()
	form.CompanyTaxID = "201234567"
	form.UniversityTaxID = "20-12345678-9"

	_, result, err := v.ValidateProject(context.Background(), form, 4)

	require.NoError(t, err)
	assert.Equal(t, MsgTaxIDFormat, result.FieldErrors[FieldCompanyTaxID])
	assert.Equal(t, MsgUniversityNotFound, result.FieldErrors[FieldUniversityTaxID])
	assert.Equal(t, MsgProjectNameTaken, result.FieldErrors[FieldName])
	assert.Empty(t, result.GeneralErrors)
}

func TestValidateProjectRepositoryFailure(t *testing.T) {
	names := new(MockNameChecker)
	names.On("ProjectNameExists", mock.Anything, mock.Anything, int64(0)).Return(false, errors.New("db down"))
	v := New(testDirectory(), names)

	_, _, err := v.ValidateProject(context.Background(), validProjectForm(), 0)
	assert.Error(t, err)
}

func TestValidatePosition(t *testing.T) {
	v := New(testDirectory(), new(MockNameChecker))
	ctx := context.Background()

	input, result, err := v.ValidatePosition(ctx, PositionForm{
		Code: "P0001", VacancyCount: "3", MaxApplicationCount: "10", WeeklyHours: "20",
	}, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Equal(t, &PositionInput{
		Code: "P0001", Name: "Desarrollador Full Stack", VacancyCount: 3, MaxApplicationCount: 10, WeeklyHours: 20,
	}, input)

	_, result, err = v.ValidatePosition(ctx, PositionForm{
		Code: "P1111", VacancyCount: "0", MaxApplicationCount: "-1", WeeklyHours: "0",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, MsgPositionNotFound, result.FieldErrors[FieldPositionCode])
	assert.Equal(t, MsgVacanciesPositive, result.FieldErrors[FieldVacancyCount])
	assert.Equal(t, MsgHoursPositive, result.FieldErrors[FieldWeeklyHours])
	assert.Equal(t, MsgApplicationsNotNeg, result.FieldErrors[FieldMaxApplicationCount])

	_, result, err = v.ValidatePosition(ctx, PositionForm{
		Code: "P0001", VacancyCount: "1", MaxApplicationCount: "0", WeeklyHours: "4",
	}, []string{"P0002", "P0001"})
	require.NoError(t, err)
	assert.Equal(t, MsgPositionDuplicate, result.FieldErrors[FieldPositionCode])

	_, result, err = v.ValidatePosition(ctx, PositionForm{
		Code: "P0001", VacancyCount: "tres", MaxApplicationCount: "0", WeeklyHours: "4",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{MsgInvalidData}, result.GeneralErrors)
}

func TestValidateRequirement(t *testing.T) {
	v := New(testDirectory(), new(MockNameChecker))
	ctx := context.Background()

	input, result, err := v.ValidateRequirement(ctx, RequirementForm{
		CareerCode: "C0001", RequiredApprovedCourses: "12", RequiredInProgressCourses: "0", StudyPlanCode: "PE1",
	})
	require.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Equal(t, "Ingeniería en Sistemas", input.CareerName)
	assert.Equal(t, 1, input.StudyPlanCode)

	_, result, err = v.ValidateRequirement(ctx, RequirementForm{
		CareerCode: "C9999", RequiredApprovedCourses: "1", RequiredInProgressCourses: "1", StudyPlanCode: "PE1",
	})
	require.NoError(t, err)
	assert.Equal(t, MsgCareerNotFound, result.FieldErrors[FieldCareerCode])

	outOfRange := []RequirementForm{
		{CareerCode: "C0001", RequiredApprovedCourses: "-1", RequiredInProgressCourses: "3", StudyPlanCode: "1"},
		{CareerCode: "C0001", RequiredApprovedCourses: "1", RequiredInProgressCourses: "-2", StudyPlanCode: "1"},
		{CareerCode: "C0001", RequiredApprovedCourses: "1", RequiredInProgressCourses: "3", StudyPlanCode: "0"},
		{CareerCode: "C9999", RequiredApprovedCourses: "-1", RequiredInProgressCourses: "-2", StudyPlanCode: "0"},
	}
	for _, form := range outOfRange {
		input, result, err := v.ValidateRequirement(ctx, form)
		require.NoError(t, err)
		assert.Nil(t, input)
		assert.Equal(t, []string{MsgInvalidData}, result.GeneralErrors, "form %+v", form)
		assert.Empty(t, result.FieldErrors, "form %+v", form)
	}

	_, result, err = v.ValidateRequirement(ctx, RequirementForm{
		CareerCode: "C0001", RequiredApprovedCourses: "1", RequiredInProgressCourses: "1", StudyPlanCode: "7",
	})
	require.NoError(t, err)
	assert.Equal(t, MsgStudyPlanNotFound, result.FieldErrors[FieldStudyPlanCode])

	_, result, err = v.ValidateRequirement(ctx, RequirementForm{CareerCode: "C0001"})
	require.NoError(t, err)
	assert.Equal(t, []string{MsgInvalidData}, result.GeneralErrors)
}

func TestValidateSchedule(t *testing.T) {
	v := New(testDirectory(), new(MockNameChecker))

	schedule, result := v.ValidateSchedule(ScheduleForm{
		ApplicationsCloseDate: "2025-02-15",
		ActivitiesStartDate:   "2025-03-15",
		ActivitiesEndDate:     "2025-12-15",
	})
	assert.True(t, result.Valid())
	assert.Equal(t, date("2025-03-15"), schedule.ActivitiesStartDate)

	schedule, result = v.ValidateSchedule(ScheduleForm{ApplicationsCloseDate: "2025-02-15"})
	assert.Nil(t, schedule)
	assert.Equal(t, []string{MsgInvalidData}, result.GeneralErrors)
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, newResult().Err())

	err := invalidData().Err()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, []string{MsgInvalidData}, appErr.Details.(*Result).GeneralErrors)
}
