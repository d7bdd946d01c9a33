package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateConversation starts a new conversation for the user.
func (s *Store) CreateConversation(userID string) (*Conversation, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, &StorageError{Op: "create conversation", Err: err}
	}
	now := time.Now().UTC()

	_, err = s.db.Exec(`
		INSERT INTO conversations (id, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, id.String(), userID, now, now)
	if err != nil {
		return nil, &StorageError{Op: "create conversation", Err: err}
	}

	return &Conversation{
		ID:        id.String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetConversation fetches a conversation by id.
func (s *Store) GetConversation(id string) (*Conversation, error) {
	var c Conversation
	err := s.db.QueryRow(`
		SELECT id, user_id, created_at, updated_at FROM conversations WHERE id = ?
	`, id).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "conversation", ID: id}
	}
	if err != nil {
		return nil, &StorageError{Op: "get conversation", Err: err}
	}
	return &c, nil
}

// ListConversations returns the user's conversations, most recently
// updated first.
func (s *Store) ListConversations(userID string) ([]Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, created_at, updated_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, &StorageError{Op: "list conversations", Err: err}
	}
	defer rows.Close()

	convs := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, &StorageError{Op: "list conversations", Err: err}
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list conversations", Err: err}
	}

	return convs, nil
}

// AppendMessage stores one turn and bumps the conversation's
// updated_at, atomically.
func (s *Store) AppendMessage(conversationID, userID, role, content string) (*ChatMessage, error) {
	switch role {
	case "user", "assistant", "system":
	default:
		return nil, &ValidationError{Field: "role", Message: "Invalid message role: " + role}
	}
	if strings.TrimSpace(content) == "" {
		return nil, &ValidationError{Field: "content", Message: "Message content cannot be empty"}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, &StorageError{Op: "append message", Err: err}
	}
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, &StorageError{Op: "append message", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO messages (id, conversation_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id.String(), conversationID, userID, role, content, now)
	if err != nil {
		return nil, &StorageError{Op: "append message", Err: err}
	}

	_, err = tx.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conversationID)
	if err != nil {
		return nil, &StorageError{Op: "append message", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &StorageError{Op: "append message", Err: err}
	}

	return &ChatMessage{
		ID:             id.String(),
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}, nil
}

// History returns the newest maxMessages messages of a conversation in
// chronological order.
func (s *Store) History(conversationID string, maxMessages int) ([]ChatMessage, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, user_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, conversationID, maxMessages)
	if err != nil {
		return nil, &StorageError{Op: "load history", Err: err}
	}
	defer rows.Close()

	msgs := []ChatMessage{}
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, &StorageError{Op: "load history", Err: err}
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "load history", Err: err}
	}

	// Query returned newest-first; reverse to chronological.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nil
}

// CountMessages returns the number of messages in a conversation.
func (s *Store) CountMessages(conversationID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&n)
	if err != nil {
		return 0, &StorageError{Op: "count messages", Err: err}
	}
	return n, nil
}

// PruneMessages deletes the oldest messages beyond keep and returns
// how many were removed.
func (s *Store) PruneMessages(conversationID string, keep int) (int, error) {
	res, err := s.db.Exec(`
		DELETE FROM messages
		WHERE conversation_id = ?
		AND id NOT IN (
			SELECT id FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
	`, conversationID, conversationID, keep)
	if err != nil {
		return 0, &StorageError{Op: "prune messages", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Op: "prune messages", Err: err}
	}
	return int(n), nil
}
