package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingPublisher holds every delivery until release is closed
type blockingPublisher struct {
	release chan struct{}

	mu        sync.Mutex
	delivered []Event
}

func (b *blockingPublisher) Publish(ctx context.Context, event Event) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delivered = append(b.delivered, event)
	return nil
}

func (b *blockingPublisher) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.delivered)
}

func TestQueuePublishDoesNotWaitForDelivery(t *testing.T) {
	next := &blockingPublisher{release: make(chan struct{})}
	q := NewQueue(next, 4, zap.NewNop())

	start := time.Now()
	require.NoError(t, q.Publish(context.Background(), New(TypeProjectTransitioned, 1, "op", nil)))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 0, next.count())

	close(next.release)
	require.NoError(t, q.Close())
	assert.Equal(t, 1, next.count())
}

func TestQueueDropsWhenFull(t *testing.T) {
	next := &blockingPublisher{release: make(chan struct{})}
	q := NewQueue(next, 1, zap.NewNop())

	// the first event is taken by the delivery goroutine, the second fills the buffer
	require.NoError(t, q.Publish(context.Background(), New(TypeProjectCreated, 1, "op", nil)))
	require.Eventually(t, func() bool { return len(q.events) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Publish(context.Background(), New(TypeProjectCreated, 2, "op", nil)))

	err := q.Publish(context.Background(), New(TypeProjectCreated, 3, "op", nil))
	assert.ErrorIs(t, err, ErrQueueFull)

	close(next.release)
	require.NoError(t, q.Close())
	assert.Equal(t, 2, next.count())
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q := NewQueue(NopPublisher{}, 1, zap.NewNop())
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	err := q.Publish(context.Background(), New(TypeProjectCreated, 1, "op", nil))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueCloseCancelsStuckDelivery(t *testing.T) {
	next := &blockingPublisher{release: make(chan struct{})}
	q := NewQueue(next, 1, zap.NewNop())
	q.drainTimeout = 10 * time.Millisecond

	require.NoError(t, q.Publish(context.Background(), New(TypeProjectCreated, 1, "op", nil)))

	done := make(chan struct{})
	go func() {
		_ = q.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close did not return")
	}
	assert.Equal(t, 0, next.count())
}

func TestQueueInFrontOfFailingWebhook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	q := NewQueue(NewWebhookPublisher(WebhookConfig{URL: server.URL}, zap.NewNop()), 4, zap.NewNop())
	defer q.Close()

	start := time.Now()
	err := q.Publish(context.Background(), New(TypeProjectTransitioned, 9, "op", nil))

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
