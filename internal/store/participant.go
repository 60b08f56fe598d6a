package store

import (
	"context"
	"fmt"
)

// AddParticipant adds a user to a chat. It reports false when the user was
// already a participant.
func (db *DB) AddParticipant(ctx context.Context, chatID, userID string) (Participant, bool, error) {
	p := Participant{ChatID: chatID, UserID: userID, JoinedAt: db.now()}
	res, err := db.ExecContext(ctx, `
		INSERT INTO chat_participants (chat_id, user_id, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id, user_id) DO NOTHING`,
		p.ChatID, p.UserID, p.JoinedAt)
	if err != nil {
		return Participant{}, false, fmt.Errorf("add participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Participant{}, false, err
	}
	return p, n > 0, nil
}

// RemoveParticipant removes a user from a chat. It reports false when the
// user was not a participant.
func (db *DB) RemoveParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM chat_participants WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("remove participant: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountParticipants returns the number of participants of a chat.
func (db *DB) CountParticipants(ctx context.Context, chatID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_participants WHERE chat_id = ?`, chatID).Scan(&n)
	return n, err
}

// IsParticipant reports whether the user participates in the chat.
func (db *DB) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id = ? AND user_id = ?)`,
		chatID, userID).Scan(&one)
	return one == 1, err
}
