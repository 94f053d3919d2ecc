// Package grpc carries the session-token contract onto gRPC services: a
// unary interceptor pulls the bearer token from incoming metadata, verifies
// it through the gateway's token issuer and makes the user id available on
// the request context.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// MetadataKeyAuthorization is the incoming metadata key holding the bearer
// session token.
const MetadataKeyAuthorization = "authorization"

type contextKey string

const userIDKey contextKey = "passgate.userID"

// UserIDFromContext returns the authenticated user id placed on the context
// by the interceptor, or "".
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// IsAuthenticated reports whether the interceptor resolved a user.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// bearerFromMetadata extracts the first bearer token from incoming metadata.
func bearerFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, value := range md.Get(MetadataKeyAuthorization) {
		if token := strings.TrimPrefix(value, "Bearer "); token != "" {
			return token
		}
	}
	return ""
}
