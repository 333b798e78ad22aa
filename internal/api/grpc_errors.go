package api

import (
	"errors"

	"github.com/signalsfoundry/stowage/internal/sim/state"
	"github.com/signalsfoundry/stowage/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatusError maps inventory errors onto gRPC status codes for the cargo API.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch model.Classify(err) {
	case model.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case model.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case model.KindConflict:
		if errors.Is(err, state.ErrOverlap) {
			return status.Error(codes.Aborted, err.Error())
		}
		return status.Error(codes.AlreadyExists, err.Error())
	case model.KindInvalidState:
		return status.Error(codes.FailedPrecondition, err.Error())
	case model.KindExhausted:
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
