package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CreateChat inserts a chat, optionally linked to an event, and returns its id.
func (db *DB) CreateChat(ctx context.Context, eventID string) (string, error) {
	id := uuid.NewString()
	var ev any
	if eventID != "" {
		ev = eventID
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO chats (id, event_id, created_at) VALUES (?, ?, ?)`,
		id, ev, db.now()); err != nil {
		return "", err
	}
	return id, nil
}

// ChatsForUser returns every chat the user participates in with its event
// name(s) and all message previews. Chats without messages have an empty
// Messages slice.
func (db *DB) ChatsForUser(ctx context.Context, userID string) ([]ChatSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.chat_id, e.name
		FROM chat_participants p
		JOIN chats c ON c.id = p.chat_id
		LEFT JOIN events e ON e.id = c.event_id
		WHERE p.user_id = ?
		ORDER BY p.chat_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chats []ChatSummary
	index := make(map[string]int)
	for rows.Next() {
		var (
			chatID string
			name   sql.NullString
		)
		if err := rows.Scan(&chatID, &name); err != nil {
			return nil, err
		}
		var names []string
		if name.Valid {
			names = []string{name.String}
		}
		index[chatID] = len(chats)
		chats = append(chats, ChatSummary{ChatID: chatID, Event: EventNamesOf(names), Messages: []MessagePreview{}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	msgRows, err := db.QueryContext(ctx, `
		SELECT m.chat_id, m.user_id, m.content, m.created_at
		FROM messages m
		JOIN chat_participants p ON p.chat_id = m.chat_id
		WHERE p.user_id = ?
		ORDER BY m.created_at ASC, m.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query previews: %w", err)
	}
	defer func() { _ = msgRows.Close() }()

	for msgRows.Next() {
		var (
			chatID string
			mp     MessagePreview
		)
		if err := msgRows.Scan(&chatID, &mp.UserID, &mp.Content, &mp.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[chatID]; ok {
			chats[i].Messages = append(chats[i].Messages, mp)
		}
	}
	return chats, msgRows.Err()
}

// ChatMeta returns the event name(s) joined to a chat. A chat without an
// event yields JoinNone; a missing chat yields ErrNotFound.
func (db *DB) ChatMeta(ctx context.Context, chatID string) (EventNames, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT e.name
		FROM chats c
		LEFT JOIN events e ON e.id = c.event_id
		WHERE c.id = ?`, chatID)
	if err != nil {
		return EventNames{}, err
	}
	defer func() { _ = rows.Close() }()

	found := false
	var names []string
	for rows.Next() {
		found = true
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return EventNames{}, err
		}
		if name.Valid {
			names = append(names, name.String)
		}
	}
	if err := rows.Err(); err != nil {
		return EventNames{}, err
	}
	if !found {
		return EventNames{}, fmt.Errorf("chat %q: %w", chatID, ErrNotFound)
	}
	return EventNamesOf(names), nil
}
