package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/passgate/passgate"
)

func testVerifier() (*passgate.TokenIssuer, VerifyTokenFunc) {
	issuer := &passgate.TokenIssuer{SecretKey: "test-secret", Issuer: "passgate-test"}
	return issuer, issuer.Verify
}

func invoke(t *testing.T, interceptor grpc.UnaryServerInterceptor, ctx context.Context, method string) (string, error) {
	t.Helper()
	var seen string
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method},
		func(ctx context.Context, req any) (any, error) {
			seen = UserIDFromContext(ctx)
			return nil, nil
		})
	return seen, err
}

func withBearer(ctx context.Context, token string) context.Context {
	return metadata.NewIncomingContext(ctx, metadata.Pairs(MetadataKeyAuthorization, "Bearer "+token))
}

func TestInterceptorResolvesUser(t *testing.T) {
	issuer, verify := testVerifier()
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	interceptor := UnaryAuthInterceptor(NewInterceptorConfig(verify))
	seen, err := invoke(t, interceptor, withBearer(context.Background(), token), "/svc/Method")
	if err != nil {
		t.Fatalf("call rejected: %v", err)
	}
	if seen != "user-1" {
		t.Errorf("handler saw user %q, want user-1", seen)
	}
}

func TestInterceptorRejectsUnauthenticated(t *testing.T) {
	_, verify := testVerifier()
	interceptor := UnaryAuthInterceptor(NewInterceptorConfig(verify))

	cases := []struct {
		name string
		ctx  context.Context
	}{
		{"no metadata", context.Background()},
		{"empty token", withBearer(context.Background(), "")},
		{"garbage token", withBearer(context.Background(), "garbage")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := invoke(t, interceptor, tc.ctx, "/svc/Method")
			if status.Code(err) != codes.Unauthenticated {
				t.Errorf("expected Unauthenticated, got %v", err)
			}
		})
	}
}

func TestInterceptorPublicMethods(t *testing.T) {
	_, verify := testVerifier()
	interceptor := UnaryAuthInterceptor(NewInterceptorConfig(verify, "/svc/Public"))

	seen, err := invoke(t, interceptor, context.Background(), "/svc/Public")
	if err != nil {
		t.Fatalf("public method rejected: %v", err)
	}
	if seen != "" {
		t.Errorf("unauthenticated public call saw user %q", seen)
	}

	if _, err := invoke(t, interceptor, context.Background(), "/svc/Private"); status.Code(err) != codes.Unauthenticated {
		t.Errorf("private method: expected Unauthenticated, got %v", err)
	}
}

func TestInterceptorOptionalAuth(t *testing.T) {
	issuer, verify := testVerifier()
	interceptor := UnaryAuthInterceptor(&InterceptorConfig{VerifyToken: verify})

	// Unauthenticated call proceeds with no user.
	seen, err := invoke(t, interceptor, context.Background(), "/svc/Method")
	if err != nil || seen != "" {
		t.Errorf("optional auth without token: seen=%q err=%v", seen, err)
	}

	// Invalid token is treated as no token, never a rejection.
	seen, err = invoke(t, interceptor, withBearer(context.Background(), "garbage"), "/svc/Method")
	if err != nil || seen != "" {
		t.Errorf("optional auth with bad token: seen=%q err=%v", seen, err)
	}

	token, err := issuer.Issue("user-2")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	seen, err = invoke(t, interceptor, withBearer(context.Background(), token), "/svc/Method")
	if err != nil || seen != "user-2" {
		t.Errorf("optional auth with valid token: seen=%q err=%v", seen, err)
	}
}
