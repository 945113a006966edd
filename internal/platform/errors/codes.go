// Package errors provides structured relay errors with gRPC and i18n mapping.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Access control
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeCallerMissing      Code = "CALLER_MISSING"
	CodeCallerGrantInvalid Code = "CALLER_GRANT_INVALID"

	// Input validation
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// Admin-set membership
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeNotFound      Code = "NOT_FOUND"

	// Pause switches
	CodePaused Code = "PAUSED"

	// Token custody
	CodeTransferFailed      Code = "TRANSFER_FAILED"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeUnknownToken        Code = "UNKNOWN_TOKEN"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeInvalidArgument, CodeUnknownToken:
		return codes.InvalidArgument
	case CodeCallerMissing, CodeCallerGrantInvalid:
		return codes.Unauthenticated
	case CodeUnauthorized:
		return codes.PermissionDenied
	case CodeAlreadyExists:
		return codes.AlreadyExists
	case CodeNotFound:
		return codes.NotFound
	case CodePaused, CodeInsufficientBalance:
		return codes.FailedPrecondition
	case CodeTransferFailed:
		return codes.Aborted
	default:
		return codes.Internal
	}
}
