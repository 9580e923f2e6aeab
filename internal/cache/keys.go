package cache

import "fmt"

// Cache keys are derived deterministically from resource type + user id
// (+ query parameters). An empty user id yields an empty key, which the
// store treats as "do not fetch", so an unauthenticated session produces no
// network traffic and can never observe another session's cached data.

// TasksKey addresses the full task list for one user.
func TasksKey(userID string) string {
	if userID == "" {
		return ""
	}
	return "tasks:" + userID
}

// TodayKey addresses the today's-tasks view for one user and display limit.
func TodayKey(userID string, limit int) string {
	if userID == "" {
		return ""
	}
	return fmt.Sprintf("today:%s:limit=%d", userID, limit)
}

// StatsKey addresses the aggregate task counts for one user.
func StatsKey(userID string) string {
	if userID == "" {
		return ""
	}
	return "stats:" + userID
}

// CategoriesKey addresses the category list for one user.
func CategoriesKey(userID string) string {
	if userID == "" {
		return ""
	}
	return "categories:" + userID
}

// CategoryStatsKey addresses the per-category task counts for one user.
func CategoryStatsKey(userID string) string {
	if userID == "" {
		return ""
	}
	return "catstats:" + userID
}

// PreferencesKey addresses the preferences record for one user.
func PreferencesKey(userID string) string {
	if userID == "" {
		return ""
	}
	return "prefs:" + userID
}

// ConversationsKey addresses the conversation list for one user.
func ConversationsKey(userID string) string {
	if userID == "" {
		return ""
	}
	return "conversations:" + userID
}

// MessagesKey addresses the message list of one conversation.
func MessagesKey(userID string, conversationID int) string {
	if userID == "" || conversationID <= 0 {
		return ""
	}
	return fmt.Sprintf("messages:%s:%d", userID, conversationID)
}
