package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/auth"
	"internship-hub/project-portal/project-portal-backend/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// ErrManagerClosed is returned by Publish after Close.
var ErrManagerClosed = errors.New("websocket manager closed")

// Manager streams project events to connected operator consoles.
// A connection receives every event unless it subscribed to specific projects.
type Manager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
	closed      bool
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID           string
	Subject      string
	Conn         *websocket.Conn
	Send         chan events.Event
	LastActivity time.Time

	mu         sync.Mutex
	projectIDs map[int64]bool
}

// subscription is the only message clients send
type subscription struct {
	ProjectIDs []int64 `json:"project_ids"`
}

// NewManager creates a new WebSocket manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		connections: make(map[string]*Connection),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers the event stream endpoint
func (m *Manager) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", m.handle)
}

func (m *Manager) handle(c *gin.Context) {
	conn, err := m.HandleConnection(c.Writer, c.Request)
	if err != nil {
		m.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	m.logger.Info("WebSocket connected", zap.String("connection_id", conn.ID), zap.String("subject", conn.Subject))
}

// HandleConnection upgrades the request and starts the read and write pumps.
// Repeated project_id query parameters pre-subscribe the connection.
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrManagerClosed
	}

	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:           uuid.New().String(),
		Subject:      auth.SubjectFrom(r.Context()),
		Conn:         ws,
		Send:         make(chan events.Event, sendBuffer),
		LastActivity: time.Now(),
		projectIDs:   map[int64]bool{},
	}
	for _, raw := range r.URL.Query()["project_id"] {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			connection.projectIDs[id] = true
		}
	}

	m.mu.Lock()
	m.connections[connection.ID] = connection
	m.mu.Unlock()

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

// Publish delivers the event to every interested connection. Slow consumers
// whose buffer is full are disconnected.
func (m *Manager) Publish(_ context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}

	for id, conn := range m.connections {
		if !conn.wants(event.ProjectID) {
			continue
		}
		select {
		case conn.Send <- event:
		default:
			m.logger.Warn("Dropping slow websocket consumer", zap.String("connection_id", id))
			m.removeLocked(conn)
		}
	}
	return nil
}

// GetConnectionCount returns the number of active connections
func (m *Manager) GetConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Close disconnects every client
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for _, conn := range m.connections {
		m.removeLocked(conn)
	}
}

func (m *Manager) remove(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(conn)
}

func (m *Manager) removeLocked(conn *Connection) {
	if _, ok := m.connections[conn.ID]; !ok {
		return
	}
	delete(m.connections, conn.ID)
	close(conn.Send)
}

// readPump reads subscription updates until the client goes away
func (m *Manager) readPump(conn *Connection) {
	defer func() {
		m.remove(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(4096)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg subscription
		if err := conn.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("WebSocket read failed", zap.String("connection_id", conn.ID), zap.Error(err))
			}
			return
		}
		conn.subscribe(msg.ProjectIDs)
	}
}

// writePump pumps events to the WebSocket connection
func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) subscribe(projectIDs []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastActivity = time.Now()
	c.projectIDs = make(map[int64]bool, len(projectIDs))
	for _, id := range projectIDs {
		c.projectIDs[id] = true
	}
}

func (c *Connection) wants(projectID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.projectIDs) == 0 || c.projectIDs[projectID]
}
