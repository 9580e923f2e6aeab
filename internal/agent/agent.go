// Package agent runs the task assistant: it sends the conversation to the
// model with the task tools attached, executes any tool calls against the
// store, and loops until the model produces a final reply.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
	"github.com/taskdeck/taskdeck/internal/types"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// maxToolRounds bounds the tool-use loop so a misbehaving model cannot spin
// forever.
const maxToolRounds = 8

const systemPrompt = `You are a to-do list assistant. You manage the user's tasks and
categories through the provided tools. Keep replies short and confirm what
you did. Never invent task or category ids; list first when unsure.`

// messageAPI is the slice of the Anthropic client the agent needs. Tests
// substitute a scripted implementation.
type messageAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Agent handles chat turns for all users against one store.
type Agent struct {
	messages messageAPI
	store    *sqlite.Store
	model    string
	logger   *log.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithModel overrides the model id.
func WithModel(model string) Option {
	return func(a *Agent) { a.model = model }
}

// WithLogger sets the logger for tool execution diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// withMessageAPI substitutes the model transport; used by tests.
func withMessageAPI(api messageAPI) Option {
	return func(a *Agent) { a.messages = api }
}

// New creates an agent talking to the Anthropic API with the given key.
func New(store *sqlite.Store, apiKey string, opts ...Option) *Agent {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	a := &Agent{
		messages: &client.Messages,
		store:    store,
		model:    DefaultModel,
		logger:   log.New(log.Writer(), "", 0),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HandleMessage runs one chat turn for userID: prior history plus the new
// user message go to the model, tool calls are executed against the store,
// and the final text reply is returned along with the ordered tool records.
func (a *Agent) HandleMessage(ctx context.Context, userID string, history []types.Message, text string) (string, []types.ToolCall, error) {
	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case "user":
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))

	var toolCalls []types.ToolCall
	var reply string

	for round := 0; round < maxToolRounds; round++ {
		msg, err := a.messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: 1024,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages:  messages,
			Tools:     toolDefinitions(),
		})
		if err != nil {
			return "", toolCalls, fmt.Errorf("failed to call model: %w", err)
		}

		var results []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			switch block.Type {
			case "text":
				reply = block.Text
			case "tool_use":
				args := decodeArgs(block.Input)
				output, err := a.executeTool(ctx, userID, block.Name, args)
				if err != nil {
					a.logger.Printf("tool %s failed: %v", block.Name, err)
					results = append(results, anthropic.NewToolResultBlock(block.ID, err.Error(), true))
					continue
				}
				toolCalls = append(toolCalls, types.ToolCall{
					Name:   block.Name,
					Args:   args,
					Output: output,
				})
				encoded, err := json.Marshal(output)
				if err != nil {
					return "", toolCalls, fmt.Errorf("failed to encode tool output: %w", err)
				}
				results = append(results, anthropic.NewToolResultBlock(block.ID, string(encoded), false))
			}
		}

		if len(results) == 0 {
			return reply, toolCalls, nil
		}

		messages = append(messages, msg.ToParam())
		messages = append(messages, anthropic.NewUserMessage(results...))
	}

	return reply, toolCalls, fmt.Errorf("tool loop exceeded %d rounds", maxToolRounds)
}

// decodeArgs converts a tool_use input payload into a plain map. Payloads
// that are not JSON objects yield an empty map.
func decodeArgs(input any) map[string]any {
	data, err := json.Marshal(input)
	if err != nil {
		return map[string]any{}
	}
	args := map[string]any{}
	if err := json.Unmarshal(data, &args); err != nil {
		return map[string]any{}
	}
	return args
}
