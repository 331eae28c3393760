package validation

import "time"

// DateLayout is the wire format of every calendar date.
const DateLayout = "2006-01-02"

// Schedule holds the three dates that drive a project's calendar.
type Schedule struct {
	ApplicationsCloseDate time.Time `json:"applications_close_date"`
	ActivitiesStartDate   time.Time `json:"activities_start_date"`
	ActivitiesEndDate     time.Time `json:"activities_end_date"`
}

// AddMonths shifts t by n calendar months, normalising overflowing days
// the same way time.AddDate does (Jan 31 + 1 month = Mar 3 on non-leap years).
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// EarliestStart returns the first valid activities start date for a close date.
func EarliestStart(applicationsClose time.Time) time.Time {
	return AddMonths(applicationsClose, 1)
}

// OpenDateFor returns the date applications open for a close date.
func OpenDateFor(applicationsClose time.Time) time.Time {
	return AddMonths(applicationsClose, -1)
}

// CheckSchedule applies the date consistency rule shared by project forms,
// suspended-project remediation and the finalize guard:
//
//	activities start >= applications close + 1 month
//	activities start <  activities end
//
// Each violation yields a general error and marks both implicated fields.
func CheckSchedule(s Schedule) *Result {
	result := newResult()

	if s.ActivitiesStartDate.Before(EarliestStart(s.ApplicationsCloseDate)) {
		result.addGeneralError(MsgCloseBeforeStart)
		result.addFieldError(FieldApplicationsCloseDate, MsgCloseBeforeStart)
		result.addFieldError(FieldActivitiesStartDate, MsgCloseBeforeStart)
	}

	if !s.ActivitiesStartDate.Before(s.ActivitiesEndDate) {
		result.addGeneralError(MsgEndAfterStart)
		result.addFieldError(FieldActivitiesStartDate, MsgEndAfterStart)
		result.addFieldError(FieldActivitiesEndDate, MsgEndAfterStart)
	}

	return result
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}
