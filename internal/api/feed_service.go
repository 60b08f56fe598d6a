package api

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/huddle/internal/realtime"
	"github.com/matheus3301/huddle/internal/store"
	"go.uber.org/zap"
)

// FeedService streams row changes to remote subscribers.
type FeedService struct {
	svc         *realtime.Service
	sessionName string
	logger      *zap.Logger
}

// NewFeedService creates a new feed service.
func NewFeedService(svc *realtime.Service, sessionName string, logger *zap.Logger) *FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedService{svc: svc, sessionName: sessionName, logger: logger}
}

// Watch sends every change matching the request filter until the client
// goes away. A stream that fell behind ends with DataLoss so the client
// resubscribes and re-reads.
func (s *FeedService) Watch(req *WatchRequest, stream WatchServer) error {
	ctx := stream.Context()
	changes, err := s.svc.Subscribe(ctx, req.Filter)
	if err != nil {
		return toStatus("watch", err)
	}
	defer func() { _ = changes.Close() }()

	for {
		c, err := changes.Recv()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			s.logger.Warn("watch stream ended", zap.Error(err))
			return toStatus("watch", err)
		}
		if err := stream.Send(NewEnvelope(s.sessionName, c)); err != nil {
			return err
		}
	}
}

// NewEnvelope wraps c with a fresh event id.
func NewEnvelope(sessionName string, c store.Change) *ChangeEnvelope {
	return &ChangeEnvelope{
		EventID:          uuid.NewString(),
		Session:          sessionName,
		OccurredAtUnixMs: envelopeTime(c),
		Change:           c,
	}
}

func envelopeTime(c store.Change) int64 {
	switch {
	case c.Message != nil && c.Message.CreatedAt > 0:
		return c.Message.CreatedAt
	case c.Participant != nil && c.Participant.JoinedAt > 0:
		return c.Participant.JoinedAt
	case c.Activity != nil && c.Activity.CreatedAt > 0:
		return c.Activity.CreatedAt
	}
	return time.Now().UnixMilli()
}
