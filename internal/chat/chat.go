// Package chat manages a user's assistant conversations on top of the cache
// layer. A Session tracks the active conversation, applies optimistic message
// appends before the network round trip, and replays the assistant's tool
// calls through the coordinator so task and category caches stay consistent
// with mutations the assistant performed server-side.
package chat

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/cache"
	"github.com/taskdeck/taskdeck/internal/client"
	"github.com/taskdeck/taskdeck/internal/coordinator"
	"github.com/taskdeck/taskdeck/internal/resource"
	"github.com/taskdeck/taskdeck/internal/types"
)

// Session is one user's chat state: the conversation list, the active
// conversation, and its message history.
type Session struct {
	api    *client.Client
	store  *cache.Store
	coord  *coordinator.Coordinator
	userID string
	logger *log.Logger

	mu     sync.Mutex
	active int // 0 = no conversation selected yet

	conversations *resource.Resource[[]types.Conversation]
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for send and replay diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates a chat session for userID sharing the coordinator's
// store and API client.
func NewSession(store *cache.Store, api *client.Client, coord *coordinator.Coordinator, userID string, opts ...Option) *Session {
	s := &Session{
		api:    api,
		store:  store,
		coord:  coord,
		userID: userID,
		logger: log.New(log.Writer(), "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.conversations = resource.Conversations(store, api, userID)
	return s
}

// Conversations returns the conversation list resource.
func (s *Session) Conversations() *resource.Resource[[]types.Conversation] {
	return s.conversations
}

// Messages returns the message resource of the active conversation, or nil
// when no conversation is selected.
func (s *Session) Messages() *resource.Resource[[]types.Message] {
	s.mu.Lock()
	id := s.active
	s.mu.Unlock()
	if id == 0 {
		return nil
	}
	return resource.Messages(s.store, s.api, s.userID, id)
}

// Active returns the selected conversation id, 0 when none.
func (s *Session) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Select makes the given conversation the active one.
func (s *Session) Select(conversationID int) {
	s.mu.Lock()
	s.active = conversationID
	s.mu.Unlock()
}

// Send delivers one user message to the assistant. The user's message is
// appended to the message cache before the network call; when no conversation
// is active the server creates one and Send adopts its id. On success the
// assistant's reply is appended and every tool call is replayed onto the
// local caches; revalidation then reconciles everything with server truth.
func (s *Session) Send(ctx context.Context, text string) (types.ChatResponse, error) {
	if s.userID == "" {
		return types.ChatResponse{}, client.ErrNoToken
	}

	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	req := types.ChatRequest{Message: text}
	if active != 0 {
		req.ConversationID = &active
		s.appendMessage(active, types.Message{
			ConversationID: active,
			UserID:         s.userID,
			Role:           "user",
			Content:        text,
			CreatedAt:      time.Now().UTC(),
		})
	}

	resp, err := s.api.SendChat(ctx, req)
	if err != nil {
		s.logger.Printf("chat send failed: %v", err)
		if active != 0 {
			// Drop the optimistic user message.
			s.messagesFor(active).Revalidate()
		}
		return types.ChatResponse{}, err
	}

	s.mu.Lock()
	s.active = resp.ConversationID
	s.mu.Unlock()

	s.appendMessage(resp.ConversationID, types.Message{
		ConversationID: resp.ConversationID,
		UserID:         s.userID,
		Role:           "assistant",
		Content:        resp.Response,
		CreatedAt:      time.Now().UTC(),
	})

	if len(resp.ToolCalls) > 0 {
		if err := s.coord.ReplayToolCalls(resp.ToolCalls); err != nil {
			s.logger.Printf("tool call replay failed: %v", err)
		}
	}

	// The server assigned real message ids and may have summarized the
	// conversation.
	s.messagesFor(resp.ConversationID).Revalidate()
	s.conversations.Revalidate()
	return resp, nil
}

// StartConversation creates an empty conversation, selects it, and prepends
// it to the conversation list.
func (s *Session) StartConversation(ctx context.Context) (types.Conversation, error) {
	if s.userID == "" {
		return types.Conversation{}, client.ErrNoToken
	}

	conv, err := s.api.CreateConversation(ctx)
	if err != nil {
		return types.Conversation{}, err
	}

	s.mu.Lock()
	s.active = conv.ID
	s.mu.Unlock()

	s.conversations.Mutate(func(cur []types.Conversation) []types.Conversation {
		return append([]types.Conversation{conv}, cur...)
	}, true)
	return conv, nil
}

// DeleteConversation removes a conversation optimistically, deletes it on
// the server, and revalidates. Deleting the active conversation deselects it.
func (s *Session) DeleteConversation(ctx context.Context, conversationID int) error {
	if s.userID == "" {
		return client.ErrNoToken
	}

	s.conversations.Mutate(func(cur []types.Conversation) []types.Conversation {
		out := cur[:0:0]
		for _, c := range cur {
			if c.ID != conversationID {
				out = append(out, c)
			}
		}
		return out
	}, false)

	err := s.api.DeleteConversation(ctx, conversationID)
	s.conversations.Revalidate()
	if err != nil {
		s.logger.Printf("delete conversation %d failed: %v", conversationID, err)
		return err
	}

	s.mu.Lock()
	if s.active == conversationID {
		s.active = 0
	}
	s.mu.Unlock()
	s.store.Invalidate(cache.MessagesKey(s.userID, conversationID))
	return nil
}

// RenameConversation updates a conversation's summary line.
func (s *Session) RenameConversation(ctx context.Context, conversationID int, summary string) error {
	if s.userID == "" {
		return client.ErrNoToken
	}

	s.conversations.Mutate(func(cur []types.Conversation) []types.Conversation {
		out := make([]types.Conversation, len(cur))
		for i, c := range cur {
			if c.ID == conversationID {
				c.Summary = summary
			}
			out[i] = c
		}
		return out
	}, false)

	_, err := s.api.RenameConversation(ctx, conversationID, summary)
	s.conversations.Revalidate()
	if err != nil {
		s.logger.Printf("rename conversation %d failed: %v", conversationID, err)
	}
	return err
}

func (s *Session) messagesFor(conversationID int) *resource.Resource[[]types.Message] {
	return resource.Messages(s.store, s.api, s.userID, conversationID)
}

func (s *Session) appendMessage(conversationID int, msg types.Message) {
	s.messagesFor(conversationID).Mutate(func(cur []types.Message) []types.Message {
		return append(append([]types.Message{}, cur...), msg)
	}, false)
}
