package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// VerifyTokenFunc verifies a session token and returns the embedded user id.
// passgate.TokenIssuer.Verify satisfies this signature.
type VerifyTokenFunc func(token string) (userID string, err error)

// InterceptorConfig configures the auth interceptor.
type InterceptorConfig struct {
	// VerifyToken checks bearer tokens. Required.
	VerifyToken VerifyTokenFunc

	// RequireAuth rejects unauthenticated calls with codes.Unauthenticated.
	// When false, calls proceed and UserIDFromContext returns "".
	RequireAuth bool

	// PublicMethods lists full method names ("/pkg.Service/Method") exempt
	// from RequireAuth.
	PublicMethods map[string]bool
}

// NewInterceptorConfig returns a config requiring auth for every method
// except those listed.
func NewInterceptorConfig(verify VerifyTokenFunc, publicMethods ...string) *InterceptorConfig {
	config := &InterceptorConfig{
		VerifyToken:   verify,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// UnaryAuthInterceptor returns a unary interceptor that resolves the session
// token from metadata. An expired or invalid token never aborts the call by
// itself; the call is simply unauthenticated, and only RequireAuth turns
// that into a rejection.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		userID := ""
		if token := bearerFromMetadata(ctx); token != "" && config.VerifyToken != nil {
			if id, err := config.VerifyToken(token); err == nil {
				userID = id
			}
		}

		if userID == "" {
			if config.RequireAuth && !config.PublicMethods[info.FullMethod] {
				return nil, status.Error(codes.Unauthenticated, "authentication required")
			}
			return handler(ctx, req)
		}

		return handler(withUserID(ctx, userID), req)
	}
}
