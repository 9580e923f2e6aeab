package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/taskdeck/taskdeck/internal/types"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub(&Config{
		Port:   0, // random available port
		Logger: log.New(os.Stderr, "[test] ", log.LstdFlags),
	})
	if err := hub.Start(); err != nil {
		t.Fatalf("Failed to start hub: %v", err)
	}
	t.Cleanup(func() { _ = hub.Stop() })

	time.Sleep(100 * time.Millisecond)
	return hub
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+hub.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func TestHubStartStop(t *testing.T) {
	hub := newTestHub(t)
	if hub.Addr() == "" {
		t.Fatal("Hub address is empty")
	}
}

func TestTaskUpdateBroadcast(t *testing.T) {
	hub := newTestHub(t)
	conn := dialHub(t, hub)

	if count := hub.ClientCount(); count != 1 {
		t.Fatalf("Expected 1 client, got %d", count)
	}

	hub.BroadcastTaskUpdate("u1", "created", types.Task{
		ID: 7, Title: "buy milk",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}

	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("Failed to parse event: %v", err)
	}
	if evt.Type != EventTaskUpdate || evt.UserID != "u1" {
		t.Errorf("Unexpected event: %+v", evt)
	}
	if evt.Timestamp.IsZero() {
		t.Error("Event missing timestamp")
	}

	var payload TaskUpdateData
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		t.Fatalf("Failed to parse payload: %v", err)
	}
	if payload.TaskID != 7 || payload.Action != "created" || payload.Title != "buy milk" {
		t.Errorf("Unexpected payload: %+v", payload)
	}
}

func TestStatsAndCategoryBroadcasts(t *testing.T) {
	hub := newTestHub(t)
	conn := dialHub(t, hub)

	hub.BroadcastStats("u1", types.TaskStats{Total: 3, Completed: 1, Pending: 2})
	hub.BroadcastCategoryUpdate("u1", "deleted", 4, "Work")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, want := range []EventType{EventStats, EventCategoryUpdate} {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Failed to read event: %v", err)
		}
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("Failed to parse event: %v", err)
		}
		if evt.Type != want {
			t.Errorf("Expected %s, got %s", want, evt.Type)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	hub := newTestHub(t)
	dialHub(t, hub)

	resp, err := http.Get("http://" + hub.Addr() + "/health")
	if err != nil {
		t.Fatalf("Failed to fetch health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to parse health body: %v", err)
	}
	if body.Status != "ok" || body.Clients != 1 {
		t.Errorf("Unexpected health body: %+v", body)
	}
}
