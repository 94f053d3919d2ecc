package passgate

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	userIDContextKey contextKey = "passgate.userID"
	userContextKey   contextKey = "passgate.user"
)

// Middleware resolves the authenticated user for each request: it pulls a
// bearer token from the Authorization header (or a cookie), verifies it
// through the TokenIssuer, re-resolves the user record from the store and
// attaches both to the request context.
//
// A missing, expired or invalid token never errors past this boundary; the
// request simply proceeds unauthenticated.
type Middleware struct {
	Issuer *TokenIssuer
	Users  UserStore

	// HeaderName defaults to "Authorization".
	HeaderName string

	// CookieName optionally names a cookie carrying the token, for non-API
	// requests. Empty disables the cookie path.
	CookieName string
}

func (m *Middleware) headerName() string {
	if m.HeaderName != "" {
		return m.HeaderName
	}
	return "Authorization"
}

// ExtractUser attaches the resolved identity to the request context when a
// valid token is present and continues either way.
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := m.resolveUser(r); user != nil {
			r = r.WithContext(withUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser behaves like ExtractUser but rejects unauthenticated requests
// with a 401.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.resolveUser(r)
		if user == nil {
			http.Error(w, `{"error": "authentication required"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (m *Middleware) resolveUser(r *http.Request) *User {
	for _, candidate := range m.candidateTokens(r) {
		userID, err := m.Issuer.Verify(candidate)
		if err != nil {
			continue
		}
		user, err := m.Users.GetUserByID(userID)
		if err != nil {
			// Token subject no longer resolves to a record; treat the
			// request as unauthenticated rather than failing it.
			continue
		}
		return user
	}
	return nil
}

func (m *Middleware) candidateTokens(r *http.Request) []string {
	var tokens []string
	for _, value := range r.Header.Values(m.headerName()) {
		tokens = append(tokens, strings.TrimPrefix(value, "Bearer "))
	}
	if m.CookieName != "" {
		for _, cookie := range r.CookiesNamed(m.CookieName) {
			if cookie.Value != "" {
				tokens = append(tokens, cookie.Value)
			}
		}
	}
	return tokens
}

func withUser(ctx context.Context, user *User) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, user.ID)
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUserID returns the authenticated user's id, or "".
func CurrentUserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDContextKey).(string); ok {
		return v
	}
	return ""
}

// CurrentUser returns the authenticated user record, or nil.
func CurrentUser(ctx context.Context) *User {
	if v, ok := ctx.Value(userContextKey).(*User); ok {
		return v
	}
	return nil
}
