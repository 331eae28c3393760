package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/events"
)

func newTestServer(t *testing.T) (*Manager, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := NewManager(zap.NewNop())
	router := gin.New()
	m.RegisterRoutes(router.Group(""))
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		m.Close()
		srv.Close()
	})
	return m, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForConnections(t *testing.T, m *Manager, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return m.GetConnectionCount() == n }, time.Second, 10*time.Millisecond)
}

func TestPublishReachesSubscribedConnection(t *testing.T) {
	m, srv := newTestServer(t)
	conn := dial(t, srv, "?project_id=7")
	waitForConnections(t, m, 1)

	require.NoError(t, m.Publish(context.Background(), events.New(events.TypeProjectUpdated, 8, "op", nil)))
	require.NoError(t, m.Publish(context.Background(), events.New(events.TypeProjectTransitioned, 7, "op", nil)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.TypeProjectTransitioned, got.Type)
	assert.Equal(t, int64(7), got.ProjectID)
}

func TestPublishWithoutSubscriptionReceivesEverything(t *testing.T) {
	m, srv := newTestServer(t)
	conn := dial(t, srv, "")
	waitForConnections(t, m, 1)

	require.NoError(t, m.Publish(context.Background(), events.New(events.TypePositionsCommitted, 3, "op", nil)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, int64(3), got.ProjectID)
}

func TestPublishAfterClose(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Close()

	err := m.Publish(context.Background(), events.New(events.TypeProjectCreated, 1, "op", nil))
	assert.ErrorIs(t, err, ErrManagerClosed)
}
