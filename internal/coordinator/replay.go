package coordinator

import (
	"encoding/json"
	"fmt"

	"github.com/taskdeck/taskdeck/internal/types"
)

// Tool names the chat assistant can return. They map one-to-one onto the
// coordinator's patch sets, so cache invariants hold regardless of whether a
// mutation was triggered by the UI or by the assistant.
const (
	ToolAddTask        = "add_task"
	ToolListTasks      = "list_tasks"
	ToolCompleteTask   = "complete_task"
	ToolDeleteTask     = "delete_task"
	ToolUpdateTask     = "update_task"
	ToolAddCategory    = "add_category"
	ToolListCategories = "list_categories"
	ToolDeleteCategory = "delete_category"
)

// ReplayToolCalls applies an ordered batch of assistant tool calls to the
// local caches. The server already executed each mutation while handling the
// chat message, so replay applies the operations' optimistic patch sets from
// the recorded tool outputs, through the same code path direct UI actions
// use, and closes with one forced revalidation of every touched view.
func (c *Coordinator) ReplayToolCalls(calls []types.ToolCall) error {
	mutated := false
	for _, call := range calls {
		changed, err := c.applyToolCall(call)
		if err != nil {
			c.logger.Printf("replay tool call %q failed: %v", call.Name, err)
			// A malformed output still requires convergence for anything
			// already patched.
			c.RefreshAll()
			c.categories.Revalidate()
			return err
		}
		mutated = mutated || changed
	}
	if mutated {
		c.RefreshAll()
		c.categories.Revalidate()
	}
	return nil
}

// applyToolCall dispatches one tool call onto the matching patch set and
// reports whether it mutated any cache.
func (c *Coordinator) applyToolCall(call types.ToolCall) (bool, error) {
	switch call.Name {
	case ToolAddTask:
		var task types.Task
		if err := decodeOutput(call.Output, &task); err != nil {
			return false, err
		}
		c.applyCreatePatches(task)
		return true, nil

	case ToolUpdateTask:
		var task types.Task
		if err := decodeOutput(call.Output, &task); err != nil {
			return false, err
		}
		c.applyUpdatePatches(task)
		return true, nil

	case ToolCompleteTask:
		var result struct {
			ID        int  `json:"id"`
			Completed bool `json:"completed"`
		}
		if err := decodeOutput(call.Output, &result); err != nil {
			return false, err
		}
		c.applyTogglePatches(result.ID, result.Completed)
		return true, nil

	case ToolDeleteTask:
		var result struct {
			ID int `json:"id"`
		}
		if err := decodeOutput(call.Output, &result); err != nil {
			return false, err
		}
		c.applyDeletePatches(result.ID)
		return true, nil

	case ToolAddCategory:
		var cat types.Category
		if err := decodeOutput(call.Output, &cat); err != nil {
			return false, err
		}
		c.applyCategoryAddPatches(cat)
		return true, nil

	case ToolDeleteCategory:
		var result struct {
			CategoryID int `json:"category_id"`
		}
		if err := decodeOutput(call.Output, &result); err != nil {
			return false, err
		}
		c.applyCategoryRemovePatches(result.CategoryID)
		return true, nil

	case ToolListTasks, ToolListCategories:
		// Read-only tools leave the caches alone.
		return false, nil

	default:
		return false, fmt.Errorf("unknown tool %q", call.Name)
	}
}

// decodeOutput converts a tool call's loosely typed output map into the
// expected structure.
func decodeOutput(output map[string]any, out any) error {
	if output == nil {
		return fmt.Errorf("tool call has no output")
	}
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to re-encode tool output: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode tool output: %w", err)
	}
	return nil
}
