package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("event queue is full")
	ErrQueueClosed = errors.New("event queue is closed")
)

const (
	defaultQueueSize    = 256
	defaultDrainTimeout = 10 * time.Second
)

// Queue hands events to a slower publisher from a single goroutine, so
// Publish returns as soon as the event is buffered. Events that do not fit
// in the buffer are dropped.
type Queue struct {
	next   Publisher
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}

	ctx          context.Context
	cancel       context.CancelFunc
	drainTimeout time.Duration
}

// NewQueue starts the delivery goroutine. Close must be called to stop it.
func NewQueue(next Publisher, size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		next:         next,
		logger:       logger,
		events:       make(chan Event, size),
		done:         make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		drainTimeout: defaultDrainTimeout,
	}
	go q.run()
	return q
}

// Publish buffers the event without waiting for delivery
func (q *Queue) Publish(_ context.Context, event Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the buffered ones. Deliveries
// still running after the drain timeout are cancelled.
func (q *Queue) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
	case <-time.After(q.drainTimeout):
		q.logger.Warn("Event queue drain timed out, cancelling deliveries",
			zap.Int("pending", len(q.events)))
		q.cancel()
		<-q.done
	}
	q.cancel()
	return nil
}

func (q *Queue) run() {
	defer close(q.done)
	for event := range q.events {
		if err := q.next.Publish(q.ctx, event); err != nil {
			q.logger.Warn("Failed to deliver event",
				zap.String("event_id", event.ID.String()),
				zap.String("event_type", string(event.Type)),
				zap.Int64("project_id", event.ProjectID),
				zap.Error(err))
		}
	}
}
