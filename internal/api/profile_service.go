package api

import (
	"context"

	"github.com/matheus3301/huddle/internal/realtime"
)

// ProfileService implements the ProfileService gRPC service.
type ProfileService struct {
	svc *realtime.Service
}

// NewProfileService creates a new profile service.
func NewProfileService(svc *realtime.Service) *ProfileService {
	return &ProfileService{svc: svc}
}

func (s *ProfileService) GetProfiles(ctx context.Context, req *GetProfilesRequest) (*GetProfilesResponse, error) {
	profiles, err := s.svc.Profiles(ctx, req.UserIDs)
	if err != nil {
		return nil, toStatus("get profiles", err)
	}
	return &GetProfilesResponse{Profiles: profiles}, nil
}

func (s *ProfileService) SetProfile(ctx context.Context, req *SetProfileRequest) (*SetProfileResponse, error) {
	if err := s.svc.SetProfile(ctx, req.Profile); err != nil {
		return nil, toStatus("set profile", err)
	}
	return &SetProfileResponse{}, nil
}
