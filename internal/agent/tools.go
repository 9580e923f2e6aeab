package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/taskdeck/taskdeck/internal/types"
)

// toolDefinitions declares the task tools offered to the model.
func toolDefinitions() []anthropic.ToolUnionParam {
	params := []anthropic.ToolParam{
		{
			Name:        "add_task",
			Description: anthropic.String("Create a new task. Returns the created task."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{
					"title":       map[string]any{"type": "string", "description": "Task title"},
					"description": map[string]any{"type": "string", "description": "Optional details"},
					"category_id": map[string]any{"type": "integer", "description": "Optional category id"},
				},
			},
		},
		{
			Name:        "list_tasks",
			Description: anthropic.String("List all of the user's tasks."),
			InputSchema: anthropic.ToolInputSchemaParam{Properties: map[string]any{}},
		},
		{
			Name:        "complete_task",
			Description: anthropic.String("Toggle a task's completion state. Returns the new state."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{
					"id": map[string]any{"type": "integer", "description": "Task id"},
				},
			},
		},
		{
			Name:        "delete_task",
			Description: anthropic.String("Delete a task permanently."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{
					"id": map[string]any{"type": "integer", "description": "Task id"},
				},
			},
		},
		{
			Name:        "update_task",
			Description: anthropic.String("Change a task's title, description, or category."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{
					"id":          map[string]any{"type": "integer", "description": "Task id"},
					"title":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"category_id": map[string]any{"type": "integer"},
				},
			},
		},
		{
			Name:        "add_category",
			Description: anthropic.String("Create a new category. Returns the created category."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{
					"name": map[string]any{"type": "string", "description": "Category name"},
					"icon": map[string]any{"type": "string", "description": "Emoji icon"},
				},
			},
		},
		{
			Name:        "list_categories",
			Description: anthropic.String("List all of the user's categories."),
			InputSchema: anthropic.ToolInputSchemaParam{Properties: map[string]any{}},
		},
		{
			Name:        "delete_category",
			Description: anthropic.String("Delete a category. Its tasks are kept and uncategorized."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{
					"id": map[string]any{"type": "integer", "description": "Category id"},
				},
			},
		},
	}

	tools := make([]anthropic.ToolUnionParam, len(params))
	for i := range params {
		tools[i] = anthropic.ToolUnionParam{OfTool: &params[i]}
	}
	return tools
}

// executeTool runs one tool call against the store on behalf of userID.
func (a *Agent) executeTool(ctx context.Context, userID, name string, args map[string]any) (map[string]any, error) {
	switch name {
	case "add_task":
		title := argString(args, "title")
		if title == "" {
			return nil, fmt.Errorf("add_task requires a title")
		}
		req := types.CreateTaskRequest{
			Title:       title,
			Description: argString(args, "description"),
		}
		if id, ok := argInt(args, "category_id"); ok {
			req.CategoryID = &id
		}
		task, err := a.store.CreateTaskContext(ctx, userID, req)
		if err != nil {
			return nil, err
		}
		return toMap(task)

	case "list_tasks":
		tasks, err := a.store.ListTasksContext(ctx, userID)
		if err != nil {
			return nil, err
		}
		return toMap(map[string]any{"tasks": tasks, "count": len(tasks)})

	case "complete_task":
		id, ok := argInt(args, "id")
		if !ok {
			return nil, fmt.Errorf("complete_task requires an id")
		}
		task, err := a.store.ToggleTaskContext(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": task.ID, "completed": task.Completed}, nil

	case "delete_task":
		id, ok := argInt(args, "id")
		if !ok {
			return nil, fmt.Errorf("delete_task requires an id")
		}
		if err := a.store.DeleteTaskContext(ctx, userID, id); err != nil {
			return nil, err
		}
		return map[string]any{"id": id, "deleted": true}, nil

	case "update_task":
		id, ok := argInt(args, "id")
		if !ok {
			return nil, fmt.Errorf("update_task requires an id")
		}
		var req types.UpdateTaskRequest
		if title := argString(args, "title"); title != "" {
			req.Title = &title
		}
		if desc, ok := args["description"].(string); ok {
			req.Description = &desc
		}
		if cid, ok := argInt(args, "category_id"); ok {
			req.CategoryID = &cid
		}
		task, err := a.store.UpdateTaskContext(ctx, userID, id, req)
		if err != nil {
			return nil, err
		}
		return toMap(task)

	case "add_category":
		name := argString(args, "name")
		if name == "" {
			return nil, fmt.Errorf("add_category requires a name")
		}
		cat, err := a.store.CreateCategoryContext(ctx, userID, name, argString(args, "icon"))
		if err != nil {
			return nil, err
		}
		return toMap(cat)

	case "list_categories":
		categories, err := a.store.ListCategoriesContext(ctx, userID)
		if err != nil {
			return nil, err
		}
		return toMap(map[string]any{"categories": categories, "count": len(categories)})

	case "delete_category":
		id, ok := argInt(args, "id")
		if !ok {
			return nil, fmt.Errorf("delete_category requires an id")
		}
		if err := a.store.DeleteCategoryContext(ctx, userID, id); err != nil {
			return nil, err
		}
		return map[string]any{"category_id": id, "deleted": true}, nil

	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// argInt reads a JSON number argument. Decoded JSON numbers arrive as
// float64.
func argInt(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// toMap round-trips a value through JSON into the loosely typed map stored
// on tool call records.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool output: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode tool output: %w", err)
	}
	return out, nil
}
