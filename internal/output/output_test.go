package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

func TestFormatDate(t *testing.T) {
	when := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		format string
		want   string
	}{
		{"MM/DD/YYYY", "03/09/2026"},
		{"DD/MM/YYYY", "09/03/2026"},
		{"YYYY-MM-DD", "2026-03-09"},
		{"", "2026-03-09"},
	}
	for _, tt := range tests {
		if got := FormatDate(when, tt.format); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestCheckbox(t *testing.T) {
	if Checkbox(true) != "[x]" || Checkbox(false) != "[ ]" {
		t.Error("unexpected checkbox markers")
	}
}

func TestFormatTaskNormalizesTitle(t *testing.T) {
	var buf bytes.Buffer
	FormatTask(&buf, types.Task{ID: 3, Title: "buy\nmilk", CreatedAt: time.Now()}, "")
	if !strings.Contains(buf.String(), "buy milk") {
		t.Errorf("newline not normalized: %q", buf.String())
	}

	buf.Reset()
	FormatTask(&buf, types.Task{ID: 4, Title: "   ", CreatedAt: time.Now()}, "")
	if !strings.Contains(buf.String(), "(untitled)") {
		t.Errorf("blank title not replaced: %q", buf.String())
	}
}

func TestFormatTodayShowsHiddenCount(t *testing.T) {
	var buf bytes.Buffer
	today := types.TodayTasks{
		Tasks: []types.Task{{ID: 1, Title: "a", CreatedAt: time.Now()}},
		Count: 7,
	}
	FormatToday(&buf, today, "")
	out := buf.String()
	if !strings.Contains(out, "Today (7)") {
		t.Errorf("missing uncapped count: %q", out)
	}
	if !strings.Contains(out, "and 6 more") {
		t.Errorf("missing hidden-count line: %q", out)
	}
}

func TestFormatCategoriesMergesCounts(t *testing.T) {
	var buf bytes.Buffer
	cats := []types.Category{
		{ID: 1, Name: "Work", Icon: "💼"},
		{ID: 2, Name: "Home", Icon: "🏠"},
	}
	counts := []types.CategoryStat{{CategoryID: 1, Count: 4}}
	FormatCategories(&buf, cats, counts)
	out := buf.String()
	if !strings.Contains(out, "Work") || !strings.Contains(out, "4 tasks") {
		t.Errorf("missing merged count: %q", out)
	}
	if !strings.Contains(out, "Home") {
		t.Errorf("missing category without count: %q", out)
	}
}

func TestFormatTaskListEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTaskList(&buf, nil, "")
	if !strings.Contains(buf.String(), "No tasks.") {
		t.Errorf("missing empty placeholder: %q", buf.String())
	}
}
