package cache

import "testing"

func TestKeyDerivation(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"tasks", TasksKey("u1"), "tasks:u1"},
		{"tasks empty user", TasksKey(""), ""},
		{"today", TodayKey("u1", 5), "today:u1:limit=5"},
		{"today other limit", TodayKey("u1", 10), "today:u1:limit=10"},
		{"today empty user", TodayKey("", 5), ""},
		{"stats", StatsKey("u1"), "stats:u1"},
		{"stats empty user", StatsKey(""), ""},
		{"categories", CategoriesKey("u1"), "categories:u1"},
		{"category stats", CategoryStatsKey("u1"), "catstats:u1"},
		{"preferences", PreferencesKey("u1"), "prefs:u1"},
		{"conversations", ConversationsKey("u1"), "conversations:u1"},
		{"messages", MessagesKey("u1", 7), "messages:u1:7"},
		{"messages no conversation", MessagesKey("u1", 0), ""},
		{"messages empty user", MessagesKey("", 7), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestKeysDistinguishUsers(t *testing.T) {
	if TasksKey("u1") == TasksKey("u2") {
		t.Error("task keys must differ per user")
	}
	if TodayKey("u1", 5) == TodayKey("u1", 10) {
		t.Error("today keys must differ per limit")
	}
}
