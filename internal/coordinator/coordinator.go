// Package coordinator applies each logical task/category operation across
// every cache key whose materialized value depends on the mutated entity.
//
// Every operation follows the same shape: apply optimistic patches with no
// revalidation, issue the authoritative network call, then reconcile by
// forcing revalidation of every key the operation touched. Because a forced
// refetch always replaces the optimistic guess with server truth, the failure
// branch needs no explicit undo: revalidation is the rollback.
//
// The patch set of each operation lives in one applyXxxPatches method so the
// keys an operation touches are auditable in one place and the chat
// assistant's tool calls can replay through the identical patch code path.
package coordinator

import (
	"context"
	"errors"
	"log"

	"github.com/taskdeck/taskdeck/internal/cache"
	"github.com/taskdeck/taskdeck/internal/client"
	"github.com/taskdeck/taskdeck/internal/resource"
	"github.com/taskdeck/taskdeck/internal/types"
)

// DefaultTodayLimit is the display limit of the today's-tasks widget.
const DefaultTodayLimit = 5

// Notifier receives user-visible outcome notifications (toasts).
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Error(string)   {}

// Coordinator owns the cross-cache mutation protocol for one user session.
type Coordinator struct {
	api    *client.Client
	store  *cache.Store
	userID string
	limit  int
	notify Notifier
	logger *log.Logger

	tasks      *resource.Resource[[]types.Task]
	today      *resource.Resource[types.TodayTasks]
	stats      *resource.Resource[types.TaskStats]
	categories *resource.Resource[[]types.Category]
	catStats   *resource.Resource[[]types.CategoryStat]
	prefs      *resource.Resource[types.UserPreferences]
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTodayLimit sets the display limit used for the today's-tasks cache key.
func WithTodayLimit(n int) Option {
	return func(c *Coordinator) { c.limit = n }
}

// WithNotifier sets the notification sink for operation outcomes.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notify = n }
}

// WithLogger sets the logger for operation diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a coordinator for userID on the given store and API client.
func New(store *cache.Store, api *client.Client, userID string, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:    api,
		store:  store,
		userID: userID,
		limit:  DefaultTodayLimit,
		notify: NopNotifier{},
		logger: log.New(log.Writer(), "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.tasks = resource.Tasks(store, api, userID)
	c.today = resource.Today(store, api, userID, c.limit)
	c.stats = resource.Stats(store, api, userID)
	c.categories = resource.Categories(store, api, userID)
	c.catStats = resource.CategoryStats(store, api, userID)
	c.prefs = resource.Preferences(store, api, userID)
	return c
}

// Resource accessors for consumers rendering cache contents.

// Tasks returns the task list resource.
func (c *Coordinator) Tasks() *resource.Resource[[]types.Task] { return c.tasks }

// Today returns the today's-tasks resource.
func (c *Coordinator) Today() *resource.Resource[types.TodayTasks] { return c.today }

// Stats returns the aggregate counts resource.
func (c *Coordinator) Stats() *resource.Resource[types.TaskStats] { return c.stats }

// Categories returns the category list resource.
func (c *Coordinator) Categories() *resource.Resource[[]types.Category] { return c.categories }

// CategoryStats returns the per-category counts resource.
func (c *Coordinator) CategoryStats() *resource.Resource[[]types.CategoryStat] { return c.catStats }

// Preferences returns the preferences resource.
func (c *Coordinator) Preferences() *resource.Resource[types.UserPreferences] { return c.prefs }

// Wait blocks until all pending revalidations have settled.
func (c *Coordinator) Wait() { c.store.Wait() }

// RefreshAll forces revalidation of every task-derived cache key.
func (c *Coordinator) RefreshAll() {
	c.tasks.Revalidate()
	c.stats.Revalidate()
	c.today.Revalidate()
	c.catStats.Revalidate()
}

// CreateTask optimistically inserts newTask into every affected view, then
// creates it on the server. Newly created tasks are assumed to belong to
// today; the closing revalidation corrects any drift from that heuristic
// (timezone differences, limit truncation).
func (c *Coordinator) CreateTask(ctx context.Context, newTask types.Task) (types.Task, error) {
	if c.userID == "" {
		return types.Task{}, client.ErrNoToken
	}

	c.applyCreatePatches(newTask)

	created, err := c.api.CreateTask(ctx, c.userID, types.CreateTaskRequest{
		Title:       newTask.Title,
		Description: newTask.Description,
		CategoryID:  newTask.CategoryID,
	})
	if err != nil {
		c.logger.Printf("create task failed: %v", err)
		c.RefreshAll()
		c.notify.Error("Failed to create task")
		return types.Task{}, err
	}

	// Converge every touched view on server truth.
	c.RefreshAll()
	return created, nil
}

// applyCreatePatches is the optimistic patch set of CreateTask: prepend to
// the task list, prepend to today's tasks (deduplicated, list capped at the
// limit, count uncapped), bump stats, bump the matching category count.
func (c *Coordinator) applyCreatePatches(t types.Task) {
	c.tasks.Mutate(func(cur []types.Task) []types.Task {
		return append([]types.Task{t}, cur...)
	}, false)

	c.today.Mutate(func(cur types.TodayTasks) types.TodayTasks {
		for _, existing := range cur.Tasks {
			if existing.ID == t.ID {
				return cur
			}
		}
		tasks := append([]types.Task{t}, cur.Tasks...)
		if len(tasks) > c.limit {
			tasks = tasks[:c.limit]
		}
		return types.TodayTasks{Tasks: tasks, Count: cur.Count + 1}
	}, false)

	c.stats.Mutate(func(cur types.TaskStats) types.TaskStats {
		cur.Total++
		cur.Pending++ // new tasks default to incomplete
		return cur
	}, false)

	if t.CategoryID != nil {
		// No-op if the category is absent from the cache; never fabricate
		// an entry.
		c.catStats.Mutate(func(cur []types.CategoryStat) []types.CategoryStat {
			out := make([]types.CategoryStat, len(cur))
			copy(out, cur)
			for i := range out {
				if out[i].CategoryID == *t.CategoryID {
					out[i].Count++
				}
			}
			return out
		}, false)
	}
}

// UpdateTask performs a full-content update. Stats are deliberately not
// patched here: a generic update carries no reliable completion delta, so a
// caller that changed completion revalidates stats explicitly (or uses
// UpdateTaskCompletion).
func (c *Coordinator) UpdateTask(ctx context.Context, task types.Task) (types.Task, error) {
	if c.userID == "" {
		return types.Task{}, client.ErrNoToken
	}

	c.applyUpdatePatches(task)

	req := types.UpdateTaskRequest{
		Title:       &task.Title,
		Description: &task.Description,
		Completed:   &task.Completed,
		CategoryID:  task.CategoryID,
		Version:     &task.Version,
	}
	updated, err := c.api.UpdateTask(ctx, c.userID, task.ID, req)
	if err != nil {
		c.tasks.Revalidate()
		c.today.Revalidate()
		if errors.Is(err, client.ErrConflict) {
			// Distinct user-facing conflict; no auto-merge.
			c.notify.Error("Task was modified elsewhere. Please refresh and try again.")
		} else {
			c.logger.Printf("update task %d failed: %v", task.ID, err)
			c.notify.Error("Failed to update task")
		}
		return types.Task{}, err
	}

	c.tasks.Revalidate()
	c.today.Revalidate()
	return updated, nil
}

// applyUpdatePatches replaces the matching entry in the task list and the
// today view.
func (c *Coordinator) applyUpdatePatches(task types.Task) {
	c.tasks.Mutate(func(cur []types.Task) []types.Task {
		out := make([]types.Task, len(cur))
		for i, t := range cur {
			if t.ID == task.ID {
				out[i] = task
			} else {
				out[i] = t
			}
		}
		return out
	}, false)

	c.today.Mutate(func(cur types.TodayTasks) types.TodayTasks {
		tasks := make([]types.Task, len(cur.Tasks))
		for i, t := range cur.Tasks {
			if t.ID == task.ID {
				tasks[i] = task
			} else {
				tasks[i] = t
			}
		}
		return types.TodayTasks{Tasks: tasks, Count: cur.Count}
	}, false)
}

// UpdateTaskCompletion toggles one task's completion across the task list,
// stats, and today view, then confirms with the server.
func (c *Coordinator) UpdateTaskCompletion(ctx context.Context, taskID int, completed bool) error {
	if c.userID == "" {
		return client.ErrNoToken
	}

	c.applyTogglePatches(taskID, completed)

	_, err := c.api.ToggleTask(ctx, c.userID, taskID)

	// Success and failure both converge on server truth; on failure the
	// refetch doubles as rollback of the optimistic guess.
	c.tasks.Revalidate()
	c.stats.Revalidate()
	c.today.Revalidate()

	if err != nil {
		c.logger.Printf("toggle task %d failed: %v", taskID, err)
		c.notify.Error("Failed to update task")
		return err
	}
	return nil
}

// applyTogglePatches is the optimistic patch set of UpdateTaskCompletion.
// Toggling does not change today-membership, so the today count is left
// unchanged.
func (c *Coordinator) applyTogglePatches(taskID int, completed bool) {
	c.tasks.Mutate(func(cur []types.Task) []types.Task {
		out := make([]types.Task, len(cur))
		for i, t := range cur {
			if t.ID == taskID {
				t.Completed = completed
			}
			out[i] = t
		}
		return out
	}, false)

	c.stats.Mutate(func(cur types.TaskStats) types.TaskStats {
		if completed {
			cur.Completed++
			cur.Pending--
		} else {
			cur.Completed--
			cur.Pending++
		}
		return cur
	}, false)

	c.today.Mutate(func(cur types.TodayTasks) types.TodayTasks {
		tasks := make([]types.Task, len(cur.Tasks))
		for i, t := range cur.Tasks {
			if t.ID == taskID {
				t.Completed = completed
			}
			tasks[i] = t
		}
		return types.TodayTasks{Tasks: tasks, Count: cur.Count}
	}, false)
}

// DeleteTask removes one task from the task list and today view, deletes it
// on the server, and refetches stats (a deletion's effect on the
// completed/pending split is not locally inferable).
func (c *Coordinator) DeleteTask(ctx context.Context, taskID int) error {
	if c.userID == "" {
		return client.ErrNoToken
	}

	c.applyDeletePatches(taskID)

	err := c.api.DeleteTask(ctx, c.userID, taskID)

	c.stats.Revalidate()
	c.tasks.Revalidate()
	c.today.Revalidate()

	if err != nil {
		c.logger.Printf("delete task %d failed: %v", taskID, err)
		c.notify.Error("Failed to delete task")
		return err
	}
	return nil
}

// applyDeletePatches removes the task from the list and today views; the
// today count is decremented and floored at zero.
func (c *Coordinator) applyDeletePatches(taskID int) {
	c.tasks.Mutate(func(cur []types.Task) []types.Task {
		out := cur[:0:0]
		for _, t := range cur {
			if t.ID != taskID {
				out = append(out, t)
			}
		}
		return out
	}, false)

	c.today.Mutate(func(cur types.TodayTasks) types.TodayTasks {
		tasks := cur.Tasks[:0:0]
		for _, t := range cur.Tasks {
			if t.ID != taskID {
				tasks = append(tasks, t)
			}
		}
		count := cur.Count - 1
		if count < 0 {
			count = 0
		}
		return types.TodayTasks{Tasks: tasks, Count: count}
	}, false)
}

// AddCategory optimistically appends the new category and a zero-count
// category-stats entry, then creates it on the server.
func (c *Coordinator) AddCategory(ctx context.Context, name, icon string) (types.Category, error) {
	if c.userID == "" {
		return types.Category{}, client.ErrNoToken
	}

	provisional := types.Category{Name: name, Icon: icon, UserID: c.userID}
	c.applyCategoryAddPatches(provisional)

	created, err := c.api.CreateCategory(ctx, name, icon)

	c.categories.Revalidate()
	c.catStats.Revalidate()

	if err != nil {
		c.logger.Printf("add category failed: %v", err)
		c.notify.Error("Failed to add category")
		return types.Category{}, err
	}
	return created, nil
}

func (c *Coordinator) applyCategoryAddPatches(cat types.Category) {
	c.categories.Mutate(func(cur []types.Category) []types.Category {
		return append(append([]types.Category{}, cur...), cat)
	}, false)

	c.catStats.Mutate(func(cur []types.CategoryStat) []types.CategoryStat {
		return append(append([]types.CategoryStat{}, cur...), types.CategoryStat{
			CategoryID: cat.ID,
			Name:       cat.Name,
			Icon:       cat.Icon,
			Count:      0,
		})
	}, false)
}

// DeleteCategory optimistically removes the category and its stats entry,
// deletes it on the server, and revalidates the task list as well: the
// server uncategorizes the category's tasks rather than deleting them, and
// their cached category fields must converge.
func (c *Coordinator) DeleteCategory(ctx context.Context, categoryID int) error {
	if c.userID == "" {
		return client.ErrNoToken
	}

	c.applyCategoryRemovePatches(categoryID)

	err := c.api.DeleteCategory(ctx, categoryID)

	c.categories.Revalidate()
	c.catStats.Revalidate()
	c.tasks.Revalidate()

	if err != nil {
		c.logger.Printf("delete category %d failed: %v", categoryID, err)
		c.notify.Error("Failed to delete category")
		return err
	}
	return nil
}

func (c *Coordinator) applyCategoryRemovePatches(categoryID int) {
	c.categories.Mutate(func(cur []types.Category) []types.Category {
		out := cur[:0:0]
		for _, cat := range cur {
			if cat.ID != categoryID {
				out = append(out, cat)
			}
		}
		return out
	}, false)

	c.catStats.Mutate(func(cur []types.CategoryStat) []types.CategoryStat {
		out := cur[:0:0]
		for _, s := range cur {
			if s.CategoryID != categoryID {
				out = append(out, s)
			}
		}
		return out
	}, false)
}

// UpdatePreferences optimistically replaces the preferences record, writes
// it to the server, and reconciles.
func (c *Coordinator) UpdatePreferences(ctx context.Context, prefs types.UserPreferences) error {
	if c.userID == "" {
		return client.ErrNoToken
	}

	c.prefs.Mutate(func(types.UserPreferences) types.UserPreferences {
		return prefs
	}, false)

	_, err := c.api.UpdatePreferences(ctx, prefs)

	c.prefs.Revalidate()

	if err != nil {
		c.logger.Printf("update preferences failed: %v", err)
		c.notify.Error("Failed to update preferences")
		return err
	}
	c.notify.Success("Preferences saved successfully!")
	return nil
}
