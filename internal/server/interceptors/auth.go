package interceptors

import (
	"context"
	"strings"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"lexgate/backend/internal/identity"
)

const bearerPrefix = "bearer "

// AccessValidator validates a bearer access token and returns its principal.
type AccessValidator interface {
	ValidateAccess(token string) (identity.Principal, error)
}

// AuthUnary returns a unary server interceptor that validates the Bearer (access) token
// from gRPC metadata and attaches the principal to the context for protected RPCs.
// publicMethods is the set of full method names that do not require a Bearer token
// (e.g. the gRPC health service). A valid token on a public method still attaches the principal.
func AuthUnary(tokens AccessValidator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, ok := authenticate(ctx, tokens, publicMethods[info.FullMethod])
		if !ok {
			_ = grpc.SetTrailer(ctx, unauthenticatedTrailer())
			return nil, errUnauthenticated
		}
		return handler(ctx, req)
	}
}

// AuthStream is the streaming counterpart of AuthUnary. The handler sees the principal through the
// stream's context.
func AuthStream(tokens AccessValidator, publicMethods map[string]bool) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, ok := authenticate(ss.Context(), tokens, publicMethods[info.FullMethod])
		if !ok {
			ss.SetTrailer(unauthenticatedTrailer())
			return errUnauthenticated
		}
		wrapped := grpc_middleware.WrapServerStream(ss)
		wrapped.WrappedContext = ctx
		return handler(srv, wrapped)
	}
}

var errUnauthenticated = status.Error(codes.Unauthenticated, "missing or invalid authorization")

// authenticate attaches the principal of a valid bearer token to ctx. It reports false when the call must
// be rejected: a protected method without a valid token.
func authenticate(ctx context.Context, tokens AccessValidator, public bool) (context.Context, bool) {
	token := extractBearer(ctx)
	if token == "" {
		return ctx, public
	}
	principal, err := tokens.ValidateAccess(token)
	if err != nil {
		return ctx, public
	}
	return identity.WithPrincipal(ctx, principal), true
}

func unauthenticatedTrailer() metadata.MD {
	return metadata.Pairs(TrailerDenyReason, "unauthenticated")
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	v := firstValue(md, "authorization")
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
