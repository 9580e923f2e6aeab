package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/output"
	"github.com/taskdeck/taskdeck/internal/types"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	GroupID: "tasks",
	Short:   "List and manage tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your tasks",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		tasks, err := a.coord.Tasks().Get(ctx)
		if err != nil {
			fatalf("%v", err)
		}

		all, _ := cmd.Flags().GetBool("all")
		if !all {
			prefs, err := a.coord.Preferences().Get(ctx)
			if err == nil && !prefs.ShowCompletedTasks {
				pending := tasks[:0:0]
				for _, t := range tasks {
					if !t.Completed {
						pending = append(pending, t)
					}
				}
				tasks = pending
			}
		}

		output.FormatTaskList(os.Stdout, tasks, a.dateFormat(ctx))
	},
}

var tasksAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a task",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		var title string
		if len(args) == 1 {
			title = args[0]
		}
		description, _ := cmd.Flags().GetString("desc")
		categoryName, _ := cmd.Flags().GetString("category")

		var categoryID *int
		if title == "" {
			title, description, categoryID = promptNewTask(a, ctx)
		} else if categoryName != "" {
			categoryID = resolveCategory(a, ctx, categoryName)
		}

		task, err := a.coord.CreateTask(ctx, types.Task{
			Title:       strings.TrimSpace(title),
			Description: description,
			CategoryID:  categoryID,
		})
		if err != nil {
			a.finish()
			fatalf("%v", err)
		}
		a.finish()
		fmt.Printf("%s Created task %d: %s\n", output.RenderPass("✓"), task.ID, task.Title)
	},
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		id := parseTaskID(args[0])
		undo, _ := cmd.Flags().GetBool("undo")

		if err := a.coord.UpdateTaskCompletion(ctx, id, !undo); err != nil {
			a.finish()
			fatalf("%v", err)
		}
		a.finish()
		if undo {
			fmt.Printf("%s Task %d reopened\n", output.RenderPass("✓"), id)
		} else {
			fmt.Printf("%s Task %d completed\n", output.RenderPass("✓"), id)
		}
	},
}

var tasksRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		id := parseTaskID(args[0])
		if err := a.coord.DeleteTask(ctx, id); err != nil {
			a.finish()
			fatalf("%v", err)
		}
		a.finish()
		fmt.Printf("%s Task %d deleted\n", output.RenderPass("✓"), id)
	},
}

var tasksEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a task's title, description, or category",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		id := parseTaskID(args[0])
		tasks, err := a.coord.Tasks().Get(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		var task *types.Task
		for i := range tasks {
			if tasks[i].ID == id {
				task = &tasks[i]
				break
			}
		}
		if task == nil {
			fatalf("task %d not found", id)
		}

		updated := *task
		if cmd.Flags().Changed("title") {
			updated.Title, _ = cmd.Flags().GetString("title")
		}
		if cmd.Flags().Changed("desc") {
			updated.Description, _ = cmd.Flags().GetString("desc")
		}
		if cmd.Flags().Changed("category") {
			name, _ := cmd.Flags().GetString("category")
			if name == "" {
				updated.CategoryID = nil
				updated.CategoryName = ""
			} else {
				updated.CategoryID = resolveCategory(a, ctx, name)
			}
		}

		result, err := a.coord.UpdateTask(ctx, updated)
		if err != nil {
			a.finish()
			fatalf("%v", err)
		}
		a.finish()
		fmt.Printf("%s Task %d updated: %s\n", output.RenderPass("✓"), result.ID, result.Title)
	},
}

// promptNewTask collects task fields interactively, offering the user's
// categories as choices.
func promptNewTask(a *app, ctx context.Context) (title, description string, categoryID *int) {
	options := []huh.Option[int]{huh.NewOption("None", 0)}
	if cats, err := a.coord.Categories().Get(ctx); err == nil {
		for _, c := range cats {
			options = append(options, huh.NewOption(fmt.Sprintf("%s %s", c.Icon, c.Name), c.ID))
		}
	}

	var chosen int
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Title").Value(&title),
		huh.NewText().Title("Description").Value(&description),
		huh.NewSelect[int]().Title("Category").Options(options...).Value(&chosen),
	))
	if err := form.Run(); err != nil {
		fatalf("%v", err)
	}
	if chosen != 0 {
		categoryID = &chosen
	}
	return title, description, categoryID
}

// resolveCategory maps a category name (case-insensitive) to its ID.
func resolveCategory(a *app, ctx context.Context, name string) *int {
	cats, err := a.coord.Categories().Get(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, name) {
			id := c.ID
			return &id
		}
	}
	fatalf("unknown category %q (see 'taskdeck categories')", name)
	return nil
}

func parseTaskID(arg string) int {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		fatalf("invalid task id %q", arg)
	}
	return id
}

func init() {
	tasksAddCmd.Flags().String("desc", "", "task description")
	tasksAddCmd.Flags().String("category", "", "category name")
	tasksDoneCmd.Flags().Bool("undo", false, "mark the task pending again")
	tasksEditCmd.Flags().String("title", "", "new title")
	tasksEditCmd.Flags().String("desc", "", "new description")
	tasksEditCmd.Flags().String("category", "", "new category name (empty clears it)")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksAddCmd)
	tasksCmd.AddCommand(tasksDoneCmd)
	tasksCmd.AddCommand(tasksRmCmd)
	tasksCmd.AddCommand(tasksEditCmd)
	rootCmd.AddCommand(tasksCmd)
}
