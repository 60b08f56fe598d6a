package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the global ~/.huddle/config.toml shared by huddled, huddlectl
// and huddletui. Every key is optional:
//
//	default_session = "work"            # session used without --session
//	user_id         = "ada"             # acting identity without --user
//	log_level       = "debug"           # zap level for daemon and TUI logs
//	watch_addr      = "127.0.0.1:7741"  # WebSocket change feed, off when empty
//
// Command-line flags override the file.
type Config struct {
	DefaultSession string `toml:"default_session"`
	UserID         string `toml:"user_id"`
	LogLevel       string `toml:"log_level"`
	WatchAddr      string `toml:"watch_addr"`
}

// Load decodes the file at path. A missing file is an error; callers fall
// back to their defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path with owner-only permissions, creating the
// directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
