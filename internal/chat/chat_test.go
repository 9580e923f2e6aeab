package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/taskdeck/taskdeck/internal/cache"
	"github.com/taskdeck/taskdeck/internal/client"
	"github.com/taskdeck/taskdeck/internal/coordinator"
	"github.com/taskdeck/taskdeck/internal/types"
)

// chatBackend fakes the chat routes plus the task routes the coordinator
// refetches after a tool-call replay.
type chatBackend struct {
	mu            sync.Mutex
	tasks         []types.Task
	conversations []types.Conversation
	messages      map[int][]types.Message
	nextConvID    int
	nextMsgID     int

	chatResponse types.ChatResponse
	failChat     bool
	lastChatReq  types.ChatRequest
}

func newChatBackend() *chatBackend {
	return &chatBackend{
		messages:   map[int][]types.Message{},
		nextConvID: 1,
		nextMsgID:  1,
	}
}

func (b *chatBackend) addConversation(summary string) types.Conversation {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := types.Conversation{ID: b.nextConvID, UserID: "u1", Summary: summary}
	b.nextConvID++
	b.conversations = append(b.conversations, c)
	return c
}

func (b *chatBackend) addMessage(convID int, role, content string) types.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := types.Message{
		ID: b.nextMsgID, ConversationID: convID, UserID: "u1",
		Role: role, Content: content,
	}
	b.nextMsgID++
	b.messages[convID] = append(b.messages[convID], m)
	return m
}

func (b *chatBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		writeJSON := func(v any) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(v)
		}
		path := r.URL.Path

		switch {
		case path == "/chat/chat" && r.Method == http.MethodPost:
			if b.failChat {
				http.Error(w, `{"error":"assistant unavailable"}`, http.StatusBadGateway)
				return
			}
			json.NewDecoder(r.Body).Decode(&b.lastChatReq)
			writeJSON(b.chatResponse)

		case path == "/chat/conversations" && r.Method == http.MethodGet:
			writeJSON(append([]types.Conversation{}, b.conversations...))

		case path == "/chat/conversations" && r.Method == http.MethodPost:
			c := types.Conversation{ID: b.nextConvID, UserID: "u1"}
			b.nextConvID++
			b.conversations = append(b.conversations, c)
			w.WriteHeader(http.StatusCreated)
			writeJSON(c)

		case strings.HasPrefix(path, "/chat/conversations/") && strings.HasSuffix(path, "/messages") && r.Method == http.MethodGet:
			id, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(path, "/chat/conversations/"), "/messages"))
			writeJSON(append([]types.Message{}, b.messages[id]...))

		case strings.HasPrefix(path, "/chat/conversations/") && r.Method == http.MethodDelete:
			id, _ := strconv.Atoi(strings.TrimPrefix(path, "/chat/conversations/"))
			out := b.conversations[:0:0]
			for _, c := range b.conversations {
				if c.ID != id {
					out = append(out, c)
				}
			}
			b.conversations = out
			delete(b.messages, id)
			w.WriteHeader(http.StatusNoContent)

		case strings.HasPrefix(path, "/chat/conversations/") && r.Method == http.MethodPatch:
			id, _ := strconv.Atoi(strings.TrimPrefix(path, "/chat/conversations/"))
			var req struct {
				Summary string `json:"summary"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			for i := range b.conversations {
				if b.conversations[i].ID == id {
					b.conversations[i].Summary = req.Summary
					writeJSON(b.conversations[i])
					return
				}
			}
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)

		case path == "/api/u1/tasks" && r.Method == http.MethodGet:
			writeJSON(append([]types.Task{}, b.tasks...))

		case path == "/api/tasks/stats" && r.Method == http.MethodGet:
			var s types.TaskStats
			for _, t := range b.tasks {
				s.Total++
				if t.Completed {
					s.Completed++
				} else {
					s.Pending++
				}
			}
			writeJSON(s)

		case path == "/api/tasks/today" && r.Method == http.MethodGet:
			writeJSON(types.TodayTasks{Tasks: append([]types.Task{}, b.tasks...), Count: len(b.tasks)})

		case path == "/api/categories" && r.Method == http.MethodGet:
			writeJSON([]types.Category{})

		case path == "/api/tasks/stats/categories" && r.Method == http.MethodGet:
			writeJSON([]types.CategoryStat{})

		default:
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		}
	})
}

func newTestSession(t *testing.T, backend *chatBackend) (*Session, *cache.Store) {
	t.Helper()

	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	store := cache.New()
	api := client.New(srv.URL, client.StaticToken("tok"))
	coord := coordinator.New(store, api, "u1")
	return NewSession(store, api, coord, "u1"), store
}

func TestSendAdoptsServerConversationAndReplaysTools(t *testing.T) {
	backend := newChatBackend()
	conv := backend.addConversation("Added a task")
	backend.addMessage(conv.ID, "user", "add milk")
	backend.addMessage(conv.ID, "assistant", "Added \"buy milk\".")
	backend.mu.Lock()
	backend.tasks = []types.Task{{ID: 1, Title: "buy milk", UserID: "u1", Version: 1}}
	backend.chatResponse = types.ChatResponse{
		ConversationID: conv.ID,
		Response:       "Added \"buy milk\".",
		ToolCalls: []types.ToolCall{{
			Name:   coordinator.ToolAddTask,
			Output: map[string]any{"id": float64(1), "title": "buy milk", "completed": false},
		}},
	}
	backend.mu.Unlock()

	session, store := newTestSession(t, backend)

	resp, err := session.Send(context.Background(), "add milk")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	store.Wait()

	if resp.ConversationID != conv.ID || session.Active() != conv.ID {
		t.Errorf("conversation not adopted: resp=%d active=%d", resp.ConversationID, session.Active())
	}

	// The replayed add_task converged the task cache on server truth.
	tasks, err := session.coord.Tasks().Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Title != "buy milk" {
		t.Errorf("task cache after replay: %+v", tasks)
	}

	msgs, err := session.Messages().Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[1].Role != "assistant" {
		t.Errorf("messages did not converge: %+v", msgs)
	}
}

func TestSendIncludesActiveConversationID(t *testing.T) {
	backend := newChatBackend()
	conv := backend.addConversation("ongoing")
	backend.mu.Lock()
	backend.chatResponse = types.ChatResponse{ConversationID: conv.ID, Response: "ok"}
	backend.mu.Unlock()

	session, store := newTestSession(t, backend)
	session.Select(conv.ID)

	if _, err := session.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	store.Wait()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.lastChatReq.ConversationID == nil || *backend.lastChatReq.ConversationID != conv.ID {
		t.Errorf("request did not carry the active conversation: %+v", backend.lastChatReq)
	}
}

func TestSendFailureRevalidatesMessages(t *testing.T) {
	backend := newChatBackend()
	conv := backend.addConversation("broken")
	serverMsg := backend.addMessage(conv.ID, "user", "earlier message")
	backend.failChat = true

	session, store := newTestSession(t, backend)
	session.Select(conv.ID)

	// Load the history, then fail a send.
	if _, err := session.Messages().Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := session.Send(context.Background(), "doomed"); err == nil {
		t.Fatal("expected send failure")
	}
	store.Wait()

	msgs := session.Messages().Peek()
	if len(msgs) != 1 || msgs[0].ID != serverMsg.ID {
		t.Errorf("optimistic message not rolled back: %+v", msgs)
	}
}

func TestStartConversationSelectsAndPrepends(t *testing.T) {
	backend := newChatBackend()
	backend.addConversation("old")

	session, store := newTestSession(t, backend)
	if _, err := session.Conversations().Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	conv, err := session.StartConversation(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	store.Wait()

	if session.Active() != conv.ID {
		t.Errorf("new conversation not selected: %d != %d", session.Active(), conv.ID)
	}
	convs := session.Conversations().Peek()
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %+v", convs)
	}
}

func TestDeleteConversationDeselects(t *testing.T) {
	backend := newChatBackend()
	conv := backend.addConversation("temp")

	session, store := newTestSession(t, backend)
	session.Select(conv.ID)
	if _, err := session.Conversations().Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := session.DeleteConversation(context.Background(), conv.ID); err != nil {
		t.Fatal(err)
	}
	store.Wait()

	if session.Active() != 0 {
		t.Errorf("deleted conversation still active: %d", session.Active())
	}
	if session.Messages() != nil {
		t.Error("Messages should be nil with no active conversation")
	}
	if convs := session.Conversations().Peek(); len(convs) != 0 {
		t.Errorf("conversation still cached: %+v", convs)
	}
}

func TestRenameConversation(t *testing.T) {
	backend := newChatBackend()
	conv := backend.addConversation("old summary")

	session, store := newTestSession(t, backend)
	if _, err := session.Conversations().Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := session.RenameConversation(context.Background(), conv.ID, "new summary"); err != nil {
		t.Fatal(err)
	}
	store.Wait()

	convs := session.Conversations().Peek()
	if len(convs) != 1 || convs[0].Summary != "new summary" {
		t.Errorf("summary not updated: %+v", convs)
	}
}

func TestSendWithoutToken(t *testing.T) {
	store := cache.New()
	api := client.New("http://localhost:0", client.StaticToken(""))
	coord := coordinator.New(store, api, "")
	session := NewSession(store, api, coord, "")

	if _, err := session.Send(context.Background(), "hi"); !errors.Is(err, client.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}
