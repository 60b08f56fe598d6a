package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps the SQLite database backing a huddle session.
type DB struct {
	*sql.DB
	now func() int64
}

// Open creates a new SQLite connection with WAL mode and foreign keys enabled.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, now: func() int64 { return time.Now().UnixMilli() }}, nil
}

// SetClock replaces the millisecond clock used for store-assigned timestamps.
func (db *DB) SetClock(now func() int64) {
	db.now = now
}

// Stats holds row counts reported by the daemon.
type Stats struct {
	Chats    int64 `json:"chats"`
	Messages int64 `json:"messages"`
	Profiles int64 `json:"profiles"`
}

// Stats returns the number of chats, messages and profiles.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM chats),
		       (SELECT COUNT(*) FROM messages),
		       (SELECT COUNT(*) FROM profiles)`).
		Scan(&s.Chats, &s.Messages, &s.Profiles)
	return s, err
}
