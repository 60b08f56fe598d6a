package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "huddled.log")
	logger, err := New(Options{Path: path, Fields: []zap.Field{zap.String("session", "test")}})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden at info level")
	logger.Info("hello", zap.String("chat_id", "c1"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), data)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"ts", "pid", "session", "chat_id"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("log entry missing %q: %v", key, entry)
		}
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}
