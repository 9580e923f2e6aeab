// Package live pushes task and category change events to connected
// WebSocket clients so open dashboards refresh without polling.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/taskdeck/taskdeck/internal/types"
)

// EventType defines the type of live event.
type EventType string

const (
	// EventTaskUpdate indicates a task was created, updated, toggled, or
	// deleted.
	EventTaskUpdate EventType = "task_update"

	// EventCategoryUpdate indicates a category was created, updated, or
	// deleted.
	EventCategoryUpdate EventType = "category_update"

	// EventStats carries refreshed aggregate counts.
	EventStats EventType = "stats"
)

// Event is one live broadcast message.
type Event struct {
	Type      EventType       `json:"type"`
	UserID    string          `json:"user_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// TaskUpdateData describes a task change.
type TaskUpdateData struct {
	TaskID    int    `json:"task_id"`
	Action    string `json:"action"` // created, updated, toggled, deleted
	Title     string `json:"title,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

// CategoryUpdateData describes a category change.
type CategoryUpdateData struct {
	CategoryID int    `json:"category_id"`
	Action     string `json:"action"` // created, updated, deleted
	Name       string `json:"name,omitempty"`
}

// Hub manages WebSocket connections and broadcasts live events.
type Hub struct {
	addr     string
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds hub configuration.
type Config struct {
	// Port to listen on (default: 8090)
	Port int

	// Logger for hub activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:   8090,
		Logger: log.Default(),
	}
}

// NewHub creates a live event hub.
func NewHub(config *Config) *Hub {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		addr:      fmt.Sprintf(":%d", config.Port),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Event, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Start begins the HTTP server and WebSocket handler.
func (h *Hub) Start() error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	h.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/health", h.handleHealth)

	h.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	h.wg.Add(1)
	go h.broadcastLoop()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.logger.Printf("Live event hub listening on %s", h.addr)
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Printf("Hub server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the hub.
func (h *Hub) Stop() error {
	h.cancel()

	h.clientsMu.Lock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(h.clients, conn)
	}
	h.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("hub shutdown error: %w", err)
	}

	h.wg.Wait()
	return nil
}

// Broadcast queues an event for delivery to all connected clients.
func (h *Hub) Broadcast(evt Event) {
	select {
	case h.broadcast <- evt:
	case <-h.ctx.Done():
		return
	default:
		h.logger.Println("Warning: broadcast channel full, dropping event")
	}
}

// BroadcastTaskUpdate announces a task change.
func (h *Hub) BroadcastTaskUpdate(userID string, action string, task types.Task) {
	data, err := json.Marshal(TaskUpdateData{
		TaskID:    task.ID,
		Action:    action,
		Title:     task.Title,
		Completed: task.Completed,
	})
	if err != nil {
		h.logger.Printf("Failed to marshal task update: %v", err)
		return
	}
	h.Broadcast(Event{Type: EventTaskUpdate, UserID: userID, Data: data})
}

// BroadcastCategoryUpdate announces a category change.
func (h *Hub) BroadcastCategoryUpdate(userID string, action string, categoryID int, name string) {
	data, err := json.Marshal(CategoryUpdateData{
		CategoryID: categoryID,
		Action:     action,
		Name:       name,
	})
	if err != nil {
		h.logger.Printf("Failed to marshal category update: %v", err)
		return
	}
	h.Broadcast(Event{Type: EventCategoryUpdate, UserID: userID, Data: data})
}

// BroadcastStats announces refreshed aggregate counts.
func (h *Hub) BroadcastStats(userID string, stats types.TaskStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}
	h.Broadcast(Event{Type: EventStats, UserID: userID, Data: data})
}

// broadcastLoop fans queued events out to all clients.
func (h *Hub) broadcastLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return

		case evt := <-h.broadcast:
			if evt.Timestamp.IsZero() {
				evt.Timestamp = time.Now().UTC()
			}

			data, err := json.Marshal(evt)
			if err != nil {
				h.logger.Printf("Failed to marshal event: %v", err)
				continue
			}

			h.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				clients = append(clients, conn)
			}
			h.clientsMu.RUnlock()

			// Write outside the read lock so a slow client cannot stall
			// new broadcasts.
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					h.removeClient(conn)
				}
			}
		}
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = true
	clientCount := len(h.clients)
	h.clientsMu.Unlock()

	h.logger.Printf("Client connected (total: %d)", clientCount)

	go h.readLoop(conn)
}

// readLoop drains client frames so pings are answered and disconnects are
// noticed.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.removeClient(conn)

	for {
		_, _, err := conn.Read(h.ctx)
		if err != nil {
			return
		}
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	if _, exists := h.clients[conn]; exists {
		delete(h.clients, conn)
		clientCount := len(h.clients)
		h.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		h.clientsMu.Unlock()
	}
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.clientsMu.RLock()
	clientCount := len(h.clients)
	h.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": clientCount,
	})
}

// Addr returns the hub's listening address.
func (h *Hub) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return h.addr
}

// ClientCount returns the current number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
