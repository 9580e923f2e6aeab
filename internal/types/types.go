// Package types defines the core data structures shared between the taskdeck
// client, server, and agent layers.
//
// All wire formats use snake_case JSON field names matching the REST API.
package types

import (
	"fmt"
	"time"
)

// Task is a single to-do item owned by exactly one user.
//
// Version is an optimistic-concurrency token: the server increments it on
// every successful update and rejects writes presenting a stale value with
// HTTP 409.
type Task struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Completed    bool      `json:"completed"`
	UserID       string    `json:"user_id"`
	CategoryID   *int      `json:"category_id,omitempty"`
	CategoryName string    `json:"category_name,omitempty"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks field constraints enforced by the API.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(t.Title) > 200 {
		return fmt.Errorf("title must be 200 characters or less (got %d)", len(t.Title))
	}
	if len(t.Description) > 1000 {
		return fmt.Errorf("description must be 1000 characters or less (got %d)", len(t.Description))
	}
	return nil
}

// CreateTaskRequest is the body of POST /api/{user_id}/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CategoryID  *int   `json:"category_id,omitempty"`
}

// UpdateTaskRequest is the body of PUT /api/{user_id}/tasks/{id}.
// Nil fields are left unchanged. Version enables optimistic locking.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
	CategoryID  *int    `json:"category_id,omitempty"`
	Version     *int    `json:"version,omitempty"`
}

// Category groups tasks. Deleting a category never deletes its tasks; they
// become uncategorized.
type Category struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks field constraints enforced by the API.
func (c *Category) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(c.Name) > 50 {
		return fmt.Errorf("name must be 50 characters or less (got %d)", len(c.Name))
	}
	if len(c.Icon) > 10 {
		return fmt.Errorf("icon must be 10 characters or less (got %d)", len(c.Icon))
	}
	return nil
}

// TaskStats is the aggregate counts shown on the dashboard.
// Invariant: Total == Completed + Pending.
type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// CategoryStat is one entry of the per-category task counts.
type CategoryStat struct {
	CategoryID int    `json:"category_id"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Count      int    `json:"count"`
}

// TodayTasks holds tasks created within the current day (UTC). Tasks is
// truncated to the caller-specified limit; Count is the true total for today
// and may exceed len(Tasks).
type TodayTasks struct {
	Tasks []Task `json:"tasks"`
	Count int    `json:"count"`
}

// UserPreferences is the per-user settings record, created lazily with
// defaults and never deleted.
type UserPreferences struct {
	Theme              string `json:"theme"`
	ShowCompletedTasks bool   `json:"show_completed_tasks"`
	DateFormat         string `json:"date_format"`
}

// DefaultPreferences returns the values assigned when a user has no stored
// preferences yet.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Theme:              "light",
		ShowCompletedTasks: true,
		DateFormat:         "MM/DD/YYYY",
	}
}

// Conversation is a chat session between a user and the assistant.
type Conversation struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one chat message within a conversation.
// Role is "user", "assistant", or "system".
type Message struct {
	ID             int       `json:"id"`
	ConversationID int       `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Summary        string    `json:"summary,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChatRequest is the body of POST /chat/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID *int   `json:"conversation_id,omitempty"`
}

// ToolCall records one tool the agent invoked while handling a chat message.
// Output carries the tool's JSON result so the client can patch its caches
// without re-issuing the mutation.
type ToolCall struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
	Output map[string]any `json:"output,omitempty"`
}

// ChatResponse is the assistant's reply plus the ordered tool calls it made.
type ChatResponse struct {
	ConversationID int        `json:"conversation_id"`
	Response       string     `json:"response"`
	ToolCalls      []ToolCall `json:"tool_calls,omitempty"`
}

// User is the account record managed by the auth endpoints.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}
