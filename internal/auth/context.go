package auth

import "context"

type subjectKey struct{}

// SystemSubject identifies changes made by the service itself, e.g. the scheduler.
const SystemSubject = "system"

// WithSubject stores the authenticated operator in ctx.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFrom returns the operator stored in ctx, or SystemSubject.
func SubjectFrom(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok && s != "" {
		return s
	}
	return SystemSubject
}
