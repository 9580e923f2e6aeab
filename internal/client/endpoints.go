package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/taskdeck/taskdeck/internal/types"
)

// Tasks returns the full task list for userID.
func (c *Client) Tasks(ctx context.Context, userID string) ([]types.Task, error) {
	var tasks []types.Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/%s/tasks", userID), nil, &tasks)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask creates a new task for userID.
func (c *Client) CreateTask(ctx context.Context, userID string, req types.CreateTaskRequest) (types.Task, error) {
	var task types.Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/%s/tasks", userID), req, &task)
	return task, err
}

// UpdateTask performs a full-content update of one task. The server rejects
// a stale Version with ErrConflict.
func (c *Client) UpdateTask(ctx context.Context, userID string, taskID int, req types.UpdateTaskRequest) (types.Task, error) {
	var task types.Task
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/%s/tasks/%d", userID, taskID), req, &task)
	return task, err
}

// ToggleTask flips the completion status of one task.
func (c *Client) ToggleTask(ctx context.Context, userID string, taskID int) (types.Task, error) {
	var task types.Task
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/%s/tasks/%d/complete", userID, taskID), nil, &task)
	return task, err
}

// DeleteTask removes one task permanently.
func (c *Client) DeleteTask(ctx context.Context, userID string, taskID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/%s/tasks/%d", userID, taskID), nil, nil)
}

// TodayTasks returns tasks created today, truncated to limit, plus the true
// total for the day.
func (c *Client) TodayTasks(ctx context.Context, limit int) (types.TodayTasks, error) {
	var today types.TodayTasks
	err := c.do(ctx, http.MethodGet, "/api/tasks/today"+queryInt("limit", limit), nil, &today)
	return today, err
}

// Stats returns the aggregate task counts for the authenticated user.
func (c *Client) Stats(ctx context.Context) (types.TaskStats, error) {
	var stats types.TaskStats
	err := c.do(ctx, http.MethodGet, "/api/tasks/stats", nil, &stats)
	return stats, err
}

// Categories returns the category list for the authenticated user.
func (c *Client) Categories(ctx context.Context) ([]types.Category, error) {
	var categories []types.Category
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &categories)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateCategory creates a new category.
func (c *Client) CreateCategory(ctx context.Context, name, icon string) (types.Category, error) {
	var category types.Category
	body := map[string]string{"name": name, "icon": icon}
	err := c.do(ctx, http.MethodPost, "/api/categories", body, &category)
	return category, err
}

// UpdateCategory renames a category or changes its icon.
func (c *Client) UpdateCategory(ctx context.Context, id int, name, icon string) (types.Category, error) {
	var category types.Category
	body := map[string]string{"name": name, "icon": icon}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/categories/%d", id), body, &category)
	return category, err
}

// DeleteCategory removes a category. Its tasks become uncategorized on the
// server, never deleted.
func (c *Client) DeleteCategory(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/categories/%d", id), nil, nil)
}

// CategoryStats returns per-category task counts, ordered by count.
func (c *Client) CategoryStats(ctx context.Context) ([]types.CategoryStat, error) {
	var stats []types.CategoryStat
	err := c.do(ctx, http.MethodGet, "/api/tasks/stats/categories", nil, &stats)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Preferences returns the authenticated user's preferences, created lazily
// with defaults by the server.
func (c *Client) Preferences(ctx context.Context) (types.UserPreferences, error) {
	var prefs types.UserPreferences
	err := c.do(ctx, http.MethodGet, "/api/user/preferences", nil, &prefs)
	return prefs, err
}

// UpdatePreferences replaces the authenticated user's preferences.
func (c *Client) UpdatePreferences(ctx context.Context, prefs types.UserPreferences) (types.UserPreferences, error) {
	var updated types.UserPreferences
	err := c.do(ctx, http.MethodPut, "/api/user/preferences", prefs, &updated)
	return updated, err
}

// UpdateProfile changes the authenticated user's display name.
func (c *Client) UpdateProfile(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPut, "/api/user/profile", map[string]string{"name": name}, nil)
}

// Conversations returns the authenticated user's chat conversations.
func (c *Client) Conversations(ctx context.Context) ([]types.Conversation, error) {
	var conversations []types.Conversation
	err := c.do(ctx, http.MethodGet, "/chat/conversations", nil, &conversations)
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

// CreateConversation starts a new chat conversation.
func (c *Client) CreateConversation(ctx context.Context) (types.Conversation, error) {
	var conversation types.Conversation
	err := c.do(ctx, http.MethodPost, "/chat/conversations", nil, &conversation)
	return conversation, err
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/chat/conversations/%d", id), nil, nil)
}

// RenameConversation updates a conversation's summary line.
func (c *Client) RenameConversation(ctx context.Context, id int, summary string) (types.Conversation, error) {
	var conversation types.Conversation
	body := map[string]string{"summary": summary}
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/chat/conversations/%d", id), body, &conversation)
	return conversation, err
}

// Messages returns the messages of one conversation.
func (c *Client) Messages(ctx context.Context, conversationID int) ([]types.Message, error) {
	var messages []types.Message
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chat/conversations/%d/messages", conversationID), nil, &messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// SendChat sends one user message to the assistant and returns its reply
// plus the ordered tool calls it made.
func (c *Client) SendChat(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error) {
	var resp types.ChatResponse
	err := c.do(ctx, http.MethodPost, "/chat/chat", req, &resp)
	return resp, err
}

// AuthResponse is returned by the register and login endpoints.
type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// Register creates a new account and returns its first bearer token.
func (c *Client) Register(ctx context.Context, name, email, password string) (AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	err := c.doUnauthenticated(ctx, http.MethodPost, "/api/auth/register", body, &resp)
	return resp, err
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"email": email, "password": password}
	err := c.doUnauthenticated(ctx, http.MethodPost, "/api/auth/login", body, &resp)
	return resp, err
}

// Me returns the account behind the current bearer token.
func (c *Client) Me(ctx context.Context) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user)
	return user, err
}

// ChangePassword updates the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"current_password": current, "new_password": next}
	return c.do(ctx, http.MethodPost, "/api/auth/change-password", body, nil)
}

// VerifyEmail confirms an email-verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	body := map[string]string{"token": token}
	return c.doUnauthenticated(ctx, http.MethodPost, "/api/auth/verify-email", body, nil)
}

// ResendVerification requests a fresh verification email. The server applies
// its own rate limit; the CLI additionally keeps a local cooldown.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.doUnauthenticated(ctx, http.MethodPost, "/api/auth/resend-verification", body, nil)
}
