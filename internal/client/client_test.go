package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskdeck/taskdeck/internal/types"
)

func TestBearerHeaderAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]types.Task{})
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("tok-123"))
	if _, err := c.Tasks(context.Background(), "u1"); err != nil {
		t.Fatalf("Tasks failed: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
}

func TestNoTokenAbortsPreFlight(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken(""))
	_, err := c.Stats(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if called {
		t.Error("no network call should be made without a token")
	}
}

func TestConflictMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Task was modified by another user. Please refresh and try again.",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("tok"))
	v := 1
	_, err := c.UpdateTask(context.Background(), "u1", 5, types.UpdateTaskRequest{Version: &v})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Errorf("expected APIError with status 409, got %v", err)
	}
}

func TestNonOKStatusIsAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"error":"Task not found"}`},
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`},
		{"unauthorized", http.StatusUnauthorized, `{"error":"token expired"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL, StaticToken("tok"))
			err := c.DeleteTask(context.Background(), "u1", 1)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if apiErr.Message == "" {
				t.Error("expected extracted error message")
			}
		})
	}
}

func TestUnauthorizedSentinel(t *testing.T) {
	err := &APIError{StatusCode: http.StatusUnauthorized}
	if !errors.Is(err, ErrUnauthorized) {
		t.Error("401 should match ErrUnauthorized")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("401 should not match ErrConflict")
	}
}

func TestTypedDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tasks/stats":
			json.NewEncoder(w).Encode(types.TaskStats{Total: 5, Completed: 2, Pending: 3})
		case "/api/tasks/today":
			if got := r.URL.Query().Get("limit"); got != "5" {
				t.Errorf("expected limit=5, got %q", got)
			}
			json.NewEncoder(w).Encode(types.TodayTasks{
				Tasks: []types.Task{{ID: 1, Title: "A"}},
				Count: 7,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("tok"))

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 5 || stats.Completed != 2 || stats.Pending != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	today, err := c.TodayTasks(context.Background(), 5)
	if err != nil {
		t.Fatalf("TodayTasks failed: %v", err)
	}
	if len(today.Tasks) != 1 || today.Count != 7 {
		t.Errorf("unexpected today view: %+v", today)
	}
}

func TestUnauthenticatedEndpointsSkipToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not send Authorization header")
		}
		json.NewEncoder(w).Encode(AuthResponse{Token: "fresh", User: types.User{ID: "u1"}})
	}))
	defer srv.Close()

	// Login works even with no token source credential.
	c := New(srv.URL, StaticToken(""))
	resp, err := c.Login(context.Background(), "a@b.c", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Token != "fresh" || resp.User.ID != "u1" {
		t.Errorf("unexpected auth response: %+v", resp)
	}
}
