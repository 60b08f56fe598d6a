package session

import (
	"errors"

	"github.com/matheus3301/huddle/internal/config"
)

const DefaultSessionName = "main"

// ErrNoUser is returned when no user id is configured.
var ErrNoUser = errors.New("no user id: pass --user or set user_id in config.toml")

// Resolve determines the active session name using precedence:
// 1. flagOverride (--session flag)
// 2. config.toml default_session
// 3. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}

// ResolveUser determines the acting user id: the --user flag, then
// config.toml user_id.
func ResolveUser(flagOverride string) (string, error) {
	if flagOverride != "" {
		return flagOverride, nil
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.UserID != "" {
		return cfg.UserID, nil
	}
	return "", ErrNoUser
}

// WatchAddr returns config.toml watch_addr, or "" when unset.
func WatchAddr() string {
	cfg, err := config.Load(ConfigPath())
	if err != nil {
		return ""
	}
	return cfg.WatchAddr
}

// LogLevel returns config.toml log_level, or "" when unset.
func LogLevel() string {
	cfg, err := config.Load(ConfigPath())
	if err != nil {
		return ""
	}
	return cfg.LogLevel
}
