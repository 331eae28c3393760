package validation

// User-facing messages, in the product's language.
const (
	MsgInvalidData = "Los datos ingresados no son válidos. Intente nuevamente"

	MsgTaxIDFormat        = "El CUIT debe tener el formato XX-XXXXXXXX-X"
	MsgCompanyNotFound    = "No se encontró la empresa con el CUIT ingresado"
	MsgUniversityNotFound = "No se encontró la universidad con el CUIT ingresado"
	MsgProjectNameTaken   = "Ya existe un proyecto con este nombre"
	MsgCloseBeforeStart   = "La fecha de cierre de postulaciones + 1 mes debe ser menor o igual a la fecha de inicio de actividades"
	MsgEndAfterStart      = "La fecha de fin proyecto debe ser mayor a la fecha de inicio de actividades"
	MsgVacanciesPositive  = "La cantidad de vacantes debe ser mayor a 0"
	MsgHoursPositive      = "Las horas dedicadas deben ser mayor a 0"
	MsgApplicationsNotNeg = "La cantidad de postulaciones no puede ser negativa"
	MsgPositionNotFound   = "No se encontró el puesto con el código ingresado"
	MsgPositionDuplicate  = "Ya existe un puesto con este código en el proyecto"
	MsgCareerNotFound     = "No se encontró la carrera con el código ingresado"
	MsgStudyPlanNotFound  = "No se encontró el plan de estudios con el código ingresado"
)

// Field names used as keys of Result.FieldErrors.
const (
	FieldName                      = "name"
	FieldApplicationsCloseDate     = "applications_close_date"
	FieldActivitiesStartDate       = "activities_start_date"
	FieldActivitiesEndDate         = "activities_end_date"
	FieldCompanyTaxID              = "company_tax_id"
	FieldUniversityTaxID           = "university_tax_id"
	FieldPositionCode              = "code"
	FieldVacancyCount              = "vacancy_count"
	FieldMaxApplicationCount       = "max_application_count"
	FieldWeeklyHours               = "weekly_hours"
	FieldCareerCode                = "career_code"
	FieldRequiredApprovedCourses   = "required_approved_courses"
	FieldRequiredInProgressCourses = "required_in_progress_courses"
	FieldStudyPlanCode             = "study_plan_code"
)
