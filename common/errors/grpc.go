package errors

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// grpcCodes covers every code the rewards service raises. Anything else
// surfaces as Internal.
var grpcCodes = map[string]codes.Code{
	CodeNotFound:             codes.NotFound,
	CodeInvalidInput:         codes.InvalidArgument,
	CodeAlreadyGranted:       codes.AlreadyExists,
	CodeNoRuleForReason:      codes.FailedPrecondition,
	CodePartialGrant:         codes.Aborted,
	CodeDatabaseError:        codes.Unavailable,
	CodeTransactionError:     codes.Unavailable,
	CodeRedisOperationError:  codes.Unavailable,
	CodeEventPublishError:    codes.Unavailable,
	CodeObjectUnmarshalError: codes.InvalidArgument,
}

// ToGRPCError converts the outermost AppError in err's chain to a status.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return status.Error(codes.Internal, err.Error())
	}

	code, ok := grpcCodes[appErr.Code]
	if !ok {
		code = codes.Internal
	}
	return status.Error(code, appErr.Message)
}
