package store

import (
	"context"
	"strings"
)

// UpsertProfile inserts or renames a profile.
func (db *DB) UpsertProfile(ctx context.Context, p Profile) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at`,
		p.UserID, p.Name, db.now())
	return err
}

// Profiles returns the profiles that exist for the given user ids. Ids
// without a profile are simply absent from the result.
func (db *DB) Profiles(ctx context.Context, userIDs []string) ([]Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")

	rows, err := db.QueryContext(ctx,
		`SELECT user_id, name FROM profiles WHERE user_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.UserID, &p.Name); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
