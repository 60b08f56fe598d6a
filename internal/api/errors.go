package api

import (
	"context"
	"errors"

	"github.com/matheus3301/huddle/internal/realtime"
	"github.com/matheus3301/huddle/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps a service error to a gRPC status error.
func toStatus(op string, err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, realtime.ErrInvalid):
		code = codes.InvalidArgument
	case errors.Is(err, realtime.ErrEventsDropped):
		code = codes.DataLoss
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return grpcstatus.Errorf(code, "%s: %v", op, err)
}

func required(field, value string) error {
	if value == "" {
		return grpcstatus.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return nil
}
