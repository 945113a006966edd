// Package metadata defines the relay's gRPC headers and the interceptors that
// turn them into request context: a correlation id, the caller's locale and
// the address the caller acts as.
package metadata

import (
	"context"
	"log"
	"strings"

	"github.com/louisbranch/connect-relay/internal/platform/id"
	"github.com/louisbranch/connect-relay/internal/platform/requestctx"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
)

// RequestIDHeader is the gRPC metadata key for request correlation IDs.
const RequestIDHeader = "x-relay-request-id"

// CallerHeader carries the caller address when caller grants are disabled.
const CallerHeader = "x-relay-caller"

// AuthorizationHeader carries "Bearer <caller grant>".
const AuthorizationHeader = "authorization"

// AcceptLanguageHeader selects the locale of user-facing error messages.
const AcceptLanguageHeader = "accept-language"

// GrantVerifier resolves a caller grant to the address it was issued to.
type GrantVerifier interface {
	Verify(grant string) (identity.Address, error)
}

// Options configures the server interceptors.
type Options struct {
	// IDGenerator mints request ids; defaults to id.NewID.
	IDGenerator func() (string, error)
	// Grants, when set, makes a verified bearer grant the only source of
	// caller identity and ignores CallerHeader.
	Grants GrantVerifier
}

type callerContextKey struct{}

// WithCaller stores the resolved caller in context.
func WithCaller(ctx context.Context, caller identity.Address) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext returns the resolved caller, if any.
func CallerFromContext(ctx context.Context) (identity.Address, bool) {
	if ctx == nil {
		return identity.Zero, false
	}
	caller, ok := ctx.Value(callerContextKey{}).(identity.Address)
	if !ok || caller.IsZero() {
		return identity.Zero, false
	}
	return caller, true
}

// RequireCaller returns the resolved caller or a CALLER_MISSING error.
func RequireCaller(ctx context.Context) (identity.Address, error) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return identity.Zero, apperrors.New(apperrors.CodeCallerMissing, "caller is required")
	}
	return caller, nil
}

// IsPrintableASCII reports whether a string contains only printable ASCII characters.
func IsPrintableASCII(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// FirstMetadataValue returns the first printable ASCII metadata value for a key.
func FirstMetadataValue(md metadata.MD, key string) string {
	if len(md) == 0 {
		return ""
	}
	for mdKey, values := range md {
		if !strings.EqualFold(mdKey, key) {
			continue
		}
		for _, value := range values {
			if IsPrintableASCII(value) {
				return value
			}
		}
	}
	return ""
}

// UnaryServerInterceptor attaches request metadata to unary calls.
func UnaryServerInterceptor(opts Options) grpc.UnaryServerInterceptor {
	opts = withDefaults(opts)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		updatedCtx, requestID, err := ensureRequestMetadata(ctx, opts)
		if err != nil {
			return nil, err
		}
		if err := grpc.SetHeader(updatedCtx, metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		resp, err := handler(updatedCtx, req)
		if err != nil {
			log.Printf("%s request_id=%s code=%s", info.FullMethod, requestID, status.Code(err))
		}
		return resp, err
	}
}

// StreamServerInterceptor attaches request metadata to streaming calls.
func StreamServerInterceptor(opts Options) grpc.StreamServerInterceptor {
	opts = withDefaults(opts)
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		updatedCtx, requestID, err := ensureRequestMetadata(stream.Context(), opts)
		if err != nil {
			return err
		}
		if err := stream.SetHeader(metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(srv, &wrappedServerStream{ServerStream: stream, ctx: updatedCtx})
	}
}

// wrappedServerStream overrides the context for a gRPC stream.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the updated stream context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

func withDefaults(opts Options) Options {
	if opts.IDGenerator == nil {
		opts.IDGenerator = id.NewID
	}
	return opts
}

// ensureRequestMetadata resolves request id, locale and caller. Returned
// errors are already gRPC statuses.
func ensureRequestMetadata(ctx context.Context, opts Options) (context.Context, string, error) {
	md, _ := metadata.FromIncomingContext(ctx)

	locale := FirstMetadataValue(md, AcceptLanguageHeader)
	ctx = requestctx.WithLocale(ctx, locale)

	requestID := FirstMetadataValue(md, RequestIDHeader)
	if requestID == "" {
		generated, err := opts.IDGenerator()
		if err != nil {
			return nil, "", status.Errorf(codes.Internal, "ensure request metadata: %v", err)
		}
		requestID = generated
	}
	ctx = requestctx.WithRequestID(ctx, requestID)

	caller, err := resolveCaller(md, opts.Grants)
	if err != nil {
		return nil, "", apperrors.HandleError(err, locale)
	}
	if !caller.IsZero() {
		ctx = WithCaller(ctx, caller)
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("relay.request_id", requestID))
	if !caller.IsZero() {
		span.SetAttributes(attribute.String("relay.caller", caller.String()))
	}
	return ctx, requestID, nil
}

func resolveCaller(md metadata.MD, grants GrantVerifier) (identity.Address, error) {
	if grants != nil {
		auth := FirstMetadataValue(md, AuthorizationHeader)
		if auth == "" {
			return identity.Zero, nil
		}
		scheme, grant, ok := strings.Cut(auth, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			return identity.Zero, apperrors.New(apperrors.CodeCallerGrantInvalid, "authorization must be a bearer grant")
		}
		return grants.Verify(grant)
	}

	value := FirstMetadataValue(md, CallerHeader)
	if value == "" {
		return identity.Zero, nil
	}
	caller, err := identity.ParseAddress(value)
	if err != nil {
		return identity.Zero, apperrors.WithMetadata(apperrors.CodeInvalidArgument, err.Error(), map[string]string{"Field": CallerHeader})
	}
	return caller, nil
}

// OutgoingCaller adds the caller header to an outgoing context.
func OutgoingCaller(ctx context.Context, caller identity.Address) context.Context {
	return metadata.AppendToOutgoingContext(ctx, CallerHeader, caller.String())
}

// OutgoingGrant adds a bearer caller grant to an outgoing context.
func OutgoingGrant(ctx context.Context, grant string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, AuthorizationHeader, "Bearer "+grant)
}
