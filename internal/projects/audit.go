package projects

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/auth"
	"internship-hub/project-portal/project-portal-backend/internal/events"
)

// Auditor writes activity rows and publishes events. Both are best effort and
// only logged on failure: the change they describe is already persisted.
type Auditor struct {
	repo      Repository
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuditor creates an auditor. A nil publisher discards events.
func NewAuditor(repo Repository, publisher events.Publisher, logger *zap.Logger, now func() time.Time) *Auditor {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if now == nil {
		now = time.Now
	}
	return &Auditor{repo: repo, publisher: publisher, logger: logger, now: now}
}

// Record logs an activity on the project and publishes the matching event
func (a *Auditor) Record(ctx context.Context, projectID int64, activityType, description string, eventType events.Type, details map[string]any) {
	actor := actorOf(ctx)

	activity := &Activity{
		ProjectID:    projectID,
		ActivityType: activityType,
		Description:  description,
		CreatedAt:    a.now(),
		UserID:       actor,
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			activity.Details = datatypes.JSON(raw)
		}
	}
	if err := a.repo.LogActivity(ctx, activity); err != nil {
		a.logger.Warn("Failed to log project activity",
			zap.Int64("project_id", projectID),
			zap.String("activity_type", activityType),
			zap.Error(err))
	}

	if err := a.publisher.Publish(ctx, events.New(eventType, projectID, actor, details)); err != nil {
		a.logger.Warn("Failed to publish project event",
			zap.Int64("project_id", projectID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

func actorOf(ctx context.Context) string {
	return auth.SubjectFrom(ctx)
}

// repoError maps repository sentinels onto domain errors.
func repoError(err error, notFoundMessage string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperrors.New(apperrors.CodeNotFound, notFoundMessage)
	case errors.Is(err, ErrNotEditable):
		return apperrors.New(apperrors.CodeNotEditable, MsgProjectNotEditable)
	default:
		return apperrors.Wrap(apperrors.CodeInternal, "repository failure", err)
	}
}
