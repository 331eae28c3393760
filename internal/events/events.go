package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened to a project
type Type string

const (
	TypeProjectCreated      Type = "project.created"
	TypeProjectUpdated      Type = "project.updated"
	TypeProjectTransitioned Type = "project.transitioned"
	TypePositionsCommitted  Type = "positions.committed"
	TypePositionWithdrawn   Type = "position.withdrawn"
	TypeRemediationApplied  Type = "remediation.applied"
)

// Event is a notification emitted after a change has been persisted
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       Type           `json:"type"`
	ProjectID  int64          `json:"project_id"`
	Actor      string         `json:"actor"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// New creates an event with a fresh id
func New(eventType Type, projectID int64, actor string, data map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		ProjectID:  projectID,
		Actor:      actor,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events to interested parties. Delivery is best effort:
// a failed publish never rolls back the change that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every publisher and joins their errors
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory; used by tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.Events = append(r.Events, event)
	return nil
}

// Types returns the types of the recorded events in order
func (r *Recorder) Types() []Type {
	types := make([]Type, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.Type)
	}
	return types
}
