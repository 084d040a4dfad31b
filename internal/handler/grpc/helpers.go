package hgrpc

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"statement-line-service/internal/domain"
	"statement-line-service/pkg/xerrors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "statementline.v1"

// ===============================
// ERROR HANDLING
// ===============================

func handleUsecaseError(err error) error {
	if err == nil {
		return nil
	}

	logger := log.WithFields(log.Fields{
		"function":   "handleUsecaseError",
		"error":      err.Error(),
		"error_type": fmt.Sprintf("%T", err),
	})

	// business rule violations carry their dialog title as ErrorInfo reason
	if title, msg, ok := domain.AsBusinessError(err); ok {
		logger.WithField("grpc_code", codes.FailedPrecondition).Warn("business rule violation")
		st := status.New(codes.FailedPrecondition, msg)
		if detailed, dErr := st.WithDetails(&errdetails.ErrorInfo{
			Reason:   title,
			Domain:   errorDomain,
			Metadata: map[string]string{"title": title},
		}); dErr == nil {
			st = detailed
		}
		return st.Err()
	}

	switch {
	case errors.Is(err, xerrors.ErrStatementLineNotFound),
		errors.Is(err, xerrors.ErrStatementNotFound),
		errors.Is(err, xerrors.ErrNotFound):
		logger.WithField("grpc_code", codes.NotFound).Warn("resource not found")
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, xerrors.ErrNoLineIDs),
		errors.Is(err, xerrors.ErrInvalidInput),
		errors.Is(err, xerrors.ErrInvalidRequest):
		logger.WithField("grpc_code", codes.InvalidArgument).Warn("invalid request")
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, xerrors.ErrLineLocked):
		logger.WithField("grpc_code", codes.Aborted).Warn("statement line locked")
		return status.Error(codes.Aborted, err.Error())

	case errors.Is(err, xerrors.ErrLineReferenced),
		errors.Is(err, domain.ErrMoveProtected),
		errors.Is(err, domain.ErrPostedMoveLocked),
		errors.Is(err, domain.ErrPostedMoveDelete),
		errors.Is(err, domain.ErrMissingCurrency),
		errors.Is(err, domain.ErrUnbalancedMove):
		logger.WithField("grpc_code", codes.FailedPrecondition).Warn("journal entry rule violation")
		return status.Error(codes.FailedPrecondition, err.Error())

	default:
		logger.WithField("grpc_code", codes.Internal).Error("unhandled usecase error")
		return status.Error(codes.Internal, xerrors.ErrInternalServer.Error())
	}
}
