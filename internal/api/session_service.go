package api

import (
	"context"
	"os"
	"time"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/store"
)

// SessionService reports on the running daemon.
type SessionService struct {
	sessionName string
	startedAt   time.Time
	bus         *bus.Bus
	db          *store.DB
}

// NewSessionService creates a new session service.
func NewSessionService(sessionName string, b *bus.Bus, db *store.DB) *SessionService {
	return &SessionService{
		sessionName: sessionName,
		startedAt:   time.Now(),
		bus:         b,
		db:          db,
	}
}

func (s *SessionService) GetSessionStatus(ctx context.Context, _ *GetSessionStatusRequest) (*GetSessionStatusResponse, error) {
	resp := &GetSessionStatusResponse{
		Session:  s.sessionName,
		PID:      os.Getpid(),
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
	}
	if s.bus != nil {
		resp.Watchers = s.bus.Len()
	}
	if s.db != nil {
		stats, err := s.db.Stats(ctx)
		if err != nil {
			return nil, toStatus("stats", err)
		}
		resp.Stats = stats
	}
	return resp, nil
}
