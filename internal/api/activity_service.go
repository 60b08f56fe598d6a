package api

import (
	"context"

	"github.com/matheus3301/huddle/internal/realtime"
)

// ActivityService implements the ActivityService gRPC service.
type ActivityService struct {
	svc *realtime.Service
}

// NewActivityService creates a new activity service.
func NewActivityService(svc *realtime.Service) *ActivityService {
	return &ActivityService{svc: svc}
}

func (s *ActivityService) CreateActivity(ctx context.Context, req *CreateActivityRequest) (*CreateActivityResponse, error) {
	a, err := s.svc.CreateActivity(ctx, req.Activity)
	if err != nil {
		return nil, toStatus("create activity", err)
	}
	return &CreateActivityResponse{Activity: a}, nil
}

func (s *ActivityService) ListActivities(ctx context.Context, _ *ListActivitiesRequest) (*ListActivitiesResponse, error) {
	list, err := s.svc.ListActivities(ctx)
	if err != nil {
		return nil, toStatus("list activities", err)
	}
	return &ListActivitiesResponse{Activities: list}, nil
}
