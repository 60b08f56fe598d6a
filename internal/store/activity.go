package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CreateActivity stores an activity together with its chat and enrolls the
// organizer as the chat's first participant, all in one transaction. The
// returned activity carries the assigned ids.
func (db *DB) CreateActivity(ctx context.Context, a Activity) (Activity, Participant, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Activity{}, Participant{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := db.now()
	a.ID = uuid.NewString()
	a.ChatID = uuid.NewString()
	a.CreatedAt = now

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO events (id, name, organizer_id, description, activity_type, price_range, time_slot, location, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.OrganizerID, a.Description, a.ActivityType, a.PriceRange, a.TimeSlot, a.Location,
		nullFloat(a.Latitude), nullFloat(a.Longitude), now); err != nil {
		return Activity{}, Participant{}, fmt.Errorf("insert event: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chats (id, event_id, created_at) VALUES (?, ?, ?)`, a.ChatID, a.ID, now); err != nil {
		return Activity{}, Participant{}, fmt.Errorf("insert chat: %w", err)
	}
	p := Participant{ChatID: a.ChatID, UserID: a.OrganizerID, JoinedAt: now}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_participants (chat_id, user_id, joined_at) VALUES (?, ?, ?)`,
		p.ChatID, p.UserID, p.JoinedAt); err != nil {
		return Activity{}, Participant{}, fmt.Errorf("insert organizer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Activity{}, Participant{}, fmt.Errorf("commit: %w", err)
	}
	return a, p, nil
}

// ListActivities returns all activities, newest first, with their chat ids.
func (db *DB) ListActivities(ctx context.Context) ([]Activity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT e.id, e.name, e.organizer_id, e.description, e.activity_type, e.price_range,
		       e.time_slot, e.location, e.latitude, e.longitude, e.created_at,
		       COALESCE((SELECT c.id FROM chats c WHERE c.event_id = e.id ORDER BY c.created_at LIMIT 1), '')
		FROM events e
		ORDER BY e.created_at DESC, e.id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Activity
	for rows.Next() {
		var (
			a        Activity
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.OrganizerID, &a.Description, &a.ActivityType, &a.PriceRange,
			&a.TimeSlot, &a.Location, &lat, &lng, &a.CreatedAt, &a.ChatID); err != nil {
			return nil, err
		}
		if lat.Valid && lng.Valid {
			a.Latitude, a.Longitude = &lat.Float64, &lng.Float64
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
