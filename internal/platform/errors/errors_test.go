package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeUnauthorized, codes.PermissionDenied},
		{CodeCallerMissing, codes.Unauthenticated},
		{CodeCallerGrantInvalid, codes.Unauthenticated},
		{CodeInvalidArgument, codes.InvalidArgument},
		{CodeUnknownToken, codes.InvalidArgument},
		{CodeAlreadyExists, codes.AlreadyExists},
		{CodeNotFound, codes.NotFound},
		{CodePaused, codes.FailedPrecondition},
		{CodeInsufficientBalance, codes.FailedPrecondition},
		{CodeTransferFailed, codes.Aborted},
		{CodeUnknown, codes.Internal},
	}
	for _, tc := range tests {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Fatalf("%s.GRPCCode() = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodePaused, "requests are paused"))
	if !stderrors.Is(err, New(CodePaused, "")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if stderrors.Is(err, New(CodeUnauthorized, "")) {
		t.Fatal("expected errors.Is to reject other code")
	}
	if got := CodeOf(err); got != CodePaused {
		t.Fatalf("CodeOf = %s, want %s", got, CodePaused)
	}
	if !HasCode(err, CodePaused) {
		t.Fatal("expected HasCode to report paused")
	}
	if CodeOf(stderrors.New("plain")) != CodeUnknown {
		t.Fatal("expected unknown code for plain error")
	}
	if HasCode(nil, CodeUnknown) {
		t.Fatal("expected nil error to carry no code")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("ledger offline")
	err := Wrap(CodeTransferFailed, "collect fee", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause")
	}
	if err.Error() != "collect fee: ledger offline" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestToGRPCStatusAttachesDetails(t *testing.T) {
	err := WithMetadata(CodeUnauthorized, "owner required", map[string]string{"Role": "owner"})
	st, ok := status.FromError(err.ToGRPCStatus("en-US", "This action requires the owner role."))
	if !ok {
		t.Fatal("expected grpc status")
	}
	if st.Code() != codes.PermissionDenied {
		t.Fatalf("code = %v, want PermissionDenied", st.Code())
	}
	if st.Message() != "owner required" {
		t.Fatalf("message = %q", st.Message())
	}

	var (
		info      *errdetails.ErrorInfo
		localized *errdetails.LocalizedMessage
	)
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			info = d
		case *errdetails.LocalizedMessage:
			localized = d
		}
	}
	if info == nil || info.GetReason() != string(CodeUnauthorized) || info.GetDomain() != Domain {
		t.Fatalf("unexpected error info: %+v", info)
	}
	if info.GetMetadata()["Role"] != "owner" {
		t.Fatalf("expected role metadata, got %v", info.GetMetadata())
	}
	if localized == nil || localized.GetLocale() != "en-US" {
		t.Fatalf("unexpected localized message: %+v", localized)
	}
}
