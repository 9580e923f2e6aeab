package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taskdeck/taskdeck/internal/types"
)

// CreateConversation starts an empty conversation for userID.
func (s *Store) CreateConversation(ctx context.Context, userID string) (types.Conversation, error) {
	now := nowUTC()
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO conversations (user_id, summary, created_at, updated_at)
		VALUES (?, '', ?, ?)`,
		userID, now, now,
	)
	if err != nil {
		return types.Conversation{}, fmt.Errorf("failed to insert conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Conversation{}, fmt.Errorf("failed to read inserted conversation id: %w", err)
	}
	return types.Conversation{
		ID:        int(id),
		UserID:    userID,
		CreatedAt: parseTime(now),
		UpdatedAt: parseTime(now),
	}, nil
}

// GetConversation retrieves one conversation owned by userID.
func (s *Store) GetConversation(ctx context.Context, userID string, conversationID int) (types.Conversation, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, user_id, summary, created_at, updated_at
		FROM conversations WHERE id = ? AND user_id = ?`,
		conversationID, userID,
	)
	var c types.Conversation
	var createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.UserID, &c.Summary, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return types.Conversation{}, ErrNotFound
	}
	if err != nil {
		return types.Conversation{}, fmt.Errorf("failed to get conversation %d: %w", conversationID, err)
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}

// ListConversations returns userID's conversations, most recently updated
// first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]types.Conversation, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, user_id, summary, created_at, updated_at
		FROM conversations WHERE user_id = ?
		ORDER BY updated_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := []types.Conversation{}
	for rows.Next() {
		var c types.Conversation
		var createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Summary, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		c.UpdatedAt = parseTime(updatedAt)
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return conversations, nil
}

// RenameConversation replaces a conversation's summary line.
func (s *Store) RenameConversation(ctx context.Context, userID string, conversationID int, summary string) (types.Conversation, error) {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE conversations SET summary = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		summary, nowUTC(), conversationID, userID,
	)
	if err != nil {
		return types.Conversation{}, fmt.Errorf("failed to rename conversation %d: %w", conversationID, err)
	}
	if err := requireAffected(res); err != nil {
		return types.Conversation{}, err
	}
	return s.GetConversation(ctx, userID, conversationID)
}

// DeleteConversation removes a conversation; its messages cascade.
func (s *Store) DeleteConversation(ctx context.Context, userID string, conversationID int) error {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ? AND user_id = ?`,
		conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete conversation %d: %w", conversationID, err)
	}
	return requireAffected(res)
}

// AppendMessage stores one chat message and bumps the conversation's
// updated_at so recency ordering holds.
func (s *Store) AppendMessage(ctx context.Context, msg types.Message) (types.Message, error) {
	now := nowUTC()
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return types.Message{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ConversationID, msg.UserID, msg.Role, msg.Content, now,
	)
	if err != nil {
		return types.Message{}, fmt.Errorf("failed to insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Message{}, fmt.Errorf("failed to read inserted message id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		now, msg.ConversationID,
	); err != nil {
		return types.Message{}, fmt.Errorf("failed to touch conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Message{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	msg.ID = int(id)
	msg.CreatedAt = parseTime(now)
	return msg, nil
}

// ListMessages returns a conversation's messages in chronological order.
// Ownership is checked against userID.
func (s *Store) ListMessages(ctx context.Context, userID string, conversationID int) ([]types.Message, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, conversation_id, user_id, role, content, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []types.Message{}
	for rows.Next() {
		var m types.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}
