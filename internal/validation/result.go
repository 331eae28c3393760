package validation

import "internship-hub/project-portal/project-portal-backend/internal/apperrors"

// Result is the outcome of validating one form. Field errors are attributable
// to a single input; general errors are cross-cutting.
type Result struct {
	FieldErrors   map[string]string `json:"field_errors,omitempty"`
	GeneralErrors []string          `json:"general_errors,omitempty"`
}

func newResult() *Result {
	return &Result{FieldErrors: map[string]string{}}
}

// Valid reports whether no error was recorded.
func (r *Result) Valid() bool {
	return r == nil || (len(r.FieldErrors) == 0 && len(r.GeneralErrors) == 0)
}

// Err converts an invalid result into a VALIDATION domain error carrying the result.
func (r *Result) Err() error {
	if r.Valid() {
		return nil
	}
	return apperrors.WithDetails(apperrors.CodeValidation, "validation failed", r)
}

// Merge copies the errors of other into r, keeping r's messages on conflicts.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	for field, msg := range other.FieldErrors {
		r.addFieldError(field, msg)
	}
	for _, msg := range other.GeneralErrors {
		r.addGeneralError(msg)
	}
}

// addFieldError records the first message for a field.
func (r *Result) addFieldError(field, message string) {
	if r.FieldErrors == nil {
		r.FieldErrors = map[string]string{}
	}
	if _, exists := r.FieldErrors[field]; !exists {
		r.FieldErrors[field] = message
	}
}

func (r *Result) addGeneralError(message string) {
	for _, existing := range r.GeneralErrors {
		if existing == message {
			return
		}
	}
	r.GeneralErrors = append(r.GeneralErrors, message)
}

func (r *Result) hasFieldError(field string) bool {
	_, ok := r.FieldErrors[field]
	return ok
}

func invalidData() *Result {
	return &Result{FieldErrors: map[string]string{}, GeneralErrors: []string{MsgInvalidData}}
}
