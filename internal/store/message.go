package store

import (
	"context"
	"fmt"
)

// InsertMessage stores a new message. A zero createdAt is replaced by the
// store clock. The stored row, including its assigned id, is returned.
func (db *DB) InsertMessage(ctx context.Context, chatID, userID, content string, createdAt int64) (Message, error) {
	if createdAt == 0 {
		createdAt = db.now()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO messages (chat_id, user_id, content, created_at)
		VALUES (?, ?, ?, ?)`,
		chatID, userID, content, createdAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Message{}, fmt.Errorf("message id: %w", err)
	}
	return Message{ID: id, ChatID: chatID, UserID: userID, Content: content, CreatedAt: createdAt}, nil
}

// ListMessages returns every message of a chat ordered by creation time.
func (db *DB) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, chat_id, user_id, content, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at ASC, id ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.UserID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
