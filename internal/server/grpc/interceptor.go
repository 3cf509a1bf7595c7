// Package grpc integrates the security core with the gRPC surface the
// orchestration layer exposes: a unary interceptor that validates bearer
// access tokens on every call.
package grpc

import (
	"context"

	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AccessTokenHeaderName is the metadata key carrying the access token on
// incoming requests.
const AccessTokenHeaderName = "access_token"

type ctxKey string

const userIDKey ctxKey = "userID"

// UserIDFromContext returns the authenticated subject placed into the
// context by the interceptor.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

// AuthInterceptor guards unary calls with access-token verification.
// Methods listed in public are passed through unauthenticated (login,
// registration, token refresh).
type AuthInterceptor struct {
	tokens *services.TokenService
	logger logging.Logger
	public map[string]struct{}
}

func NewAuthInterceptor(tokens *services.TokenService, logger logging.Logger, publicMethods []string) *AuthInterceptor {
	public := make(map[string]struct{}, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = struct{}{}
	}
	return &AuthInterceptor{
		tokens: tokens,
		logger: logger.With("module", "grpc_auth"),
		public: public,
	}
}

// Unary returns the interceptor function. Every failure maps to the same
// generic Unauthenticated response; the specific token error kind is only
// logged.
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

		if _, ok := i.public[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "authentication failed")
		}

		claims, err := i.tokens.VerifyAccess(ctx, accessToken)
		if err != nil {
			i.logger.Warn(ctx, "access token rejected", "method", info.FullMethod, "error", err)
			return nil, status.Error(codes.Unauthenticated, "authentication failed")
		}

		ctx = context.WithValue(ctx, userIDKey, claims.Subject)

		return handler(ctx, req)
	}
}
