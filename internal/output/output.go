// Package output renders CLI output: adaptive terminal styles plus plain
// formatters for tasks, stats, and categories.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/taskdeck/taskdeck/internal/types"
)

var (
	accentStyle lipgloss.Style
	passStyle   lipgloss.Style
	warnStyle   lipgloss.Style
	errorStyle  lipgloss.Style
	mutedStyle  lipgloss.Style
	headerStyle lipgloss.Style
)

func init() {
	if termenv.HasDarkBackground() {
		accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
		passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
		warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
		errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	} else {
		accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("30"))
		passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("28"))
		warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("130"))
		errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("124"))
		mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	}
	headerStyle = accentStyle.Bold(true)
}

// RenderAccent styles highlighted text.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderPass styles success markers.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn styles warnings.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderError styles error markers.
func RenderError(s string) string { return errorStyle.Render(s) }

// RenderMuted styles secondary text.
func RenderMuted(s string) string { return mutedStyle.Render(s) }

// RenderHeader styles section headers.
func RenderHeader(s string) string { return headerStyle.Render(s) }

// Checkbox returns the completion marker for a task.
func Checkbox(completed bool) string {
	if completed {
		return "[x]"
	}
	return "[ ]"
}

// FormatDate renders t in the user's preferred date format. Unknown formats
// fall back to ISO.
func FormatDate(t time.Time, format string) string {
	switch format {
	case "MM/DD/YYYY":
		return t.Format("01/02/2006")
	case "DD/MM/YYYY":
		return t.Format("02/01/2006")
	default:
		return t.Format("2006-01-02")
	}
}

// FormatTask writes one task line: id, checkbox, title, and optionally the
// category name.
func FormatTask(w io.Writer, task types.Task, dateFormat string) {
	title := normalizeTitle(task.Title)
	line := fmt.Sprintf("%4d  %s %s", task.ID, Checkbox(task.Completed), title)
	if task.CategoryName != "" {
		line += "  " + RenderMuted("("+task.CategoryName+")")
	}
	line += "  " + RenderMuted(FormatDate(task.CreatedAt, dateFormat))
	fmt.Fprintln(w, line)
}

// FormatTaskList writes a task list, or a placeholder when empty.
func FormatTaskList(w io.Writer, tasks []types.Task, dateFormat string) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, RenderMuted("No tasks."))
		return
	}
	for _, t := range tasks {
		FormatTask(w, t, dateFormat)
	}
}

// FormatToday writes the capped today list with the uncapped total.
func FormatToday(w io.Writer, today types.TodayTasks, dateFormat string) {
	fmt.Fprintln(w, RenderHeader(fmt.Sprintf("Today (%d)", today.Count)))
	FormatTaskList(w, today.Tasks, dateFormat)
	if hidden := today.Count - len(today.Tasks); hidden > 0 {
		fmt.Fprintln(w, RenderMuted(fmt.Sprintf("... and %d more", hidden)))
	}
}

// FormatStats writes the overall completion counters.
func FormatStats(w io.Writer, stats types.TaskStats) {
	fmt.Fprintln(w, RenderHeader("Task stats"))
	fmt.Fprintf(w, "  Total:     %d\n", stats.Total)
	fmt.Fprintf(w, "  Completed: %d\n", stats.Completed)
	fmt.Fprintf(w, "  Pending:   %d\n", stats.Pending)
}

// FormatCategories writes the category list with per-category counts merged
// in when available.
func FormatCategories(w io.Writer, cats []types.Category, counts []types.CategoryStat) {
	if len(cats) == 0 {
		fmt.Fprintln(w, RenderMuted("No categories."))
		return
	}
	byID := make(map[int]int, len(counts))
	for _, c := range counts {
		byID[c.CategoryID] = c.Count
	}
	for _, c := range cats {
		line := fmt.Sprintf("%4d  %s %s", c.ID, c.Icon, c.Name)
		if n, ok := byID[c.ID]; ok {
			line += "  " + RenderMuted(fmt.Sprintf("%d tasks", n))
		}
		fmt.Fprintln(w, line)
	}
}

// FormatPreferences writes the user's settings.
func FormatPreferences(w io.Writer, prefs types.UserPreferences) {
	fmt.Fprintln(w, RenderHeader("Preferences"))
	fmt.Fprintf(w, "  Theme:           %s\n", prefs.Theme)
	fmt.Fprintf(w, "  Show completed:  %t\n", prefs.ShowCompletedTasks)
	fmt.Fprintf(w, "  Date format:     %s\n", prefs.DateFormat)
}

func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
