package oauth2

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestStateRoundTrip(t *testing.T) {
	secret := []byte("state-secret")

	state, nonce, err := SignState(secret, "/after-login")
	if err != nil {
		t.Fatalf("SignState failed: %v", err)
	}
	if nonce == "" {
		t.Fatal("empty nonce")
	}

	got, err := VerifyState(secret, state, nonce)
	if err != nil {
		t.Fatalf("VerifyState failed: %v", err)
	}
	if got.ReturnTo != "/after-login" {
		t.Errorf("ReturnTo %q, want /after-login", got.ReturnTo)
	}
	if got.Nonce != nonce {
		t.Errorf("embedded nonce %q, want %q", got.Nonce, nonce)
	}
}

func TestVerifyStateRejects(t *testing.T) {
	secret := []byte("state-secret")
	state, nonce, err := SignState(secret, "/ok")
	if err != nil {
		t.Fatalf("SignState failed: %v", err)
	}

	payloadPart, sigPart, _ := strings.Cut(state, ".")

	cases := []struct {
		name  string
		state string
		nonce string
	}{
		{"no separator", payloadPart, nonce},
		{"bad base64", "!!!." + sigPart, nonce},
		{"tampered payload", payloadPart + "x." + sigPart, nonce},
		{"wrong nonce", state, "someone-elses-nonce"},
		{"empty nonce", state, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := VerifyState(secret, tc.state, tc.nonce); !errors.Is(err, ErrStateInvalid) {
				t.Errorf("expected ErrStateInvalid, got %v", err)
			}
		})
	}

	if _, err := VerifyState([]byte("other-secret"), state, nonce); !errors.Is(err, ErrStateInvalid) {
		t.Errorf("wrong secret: expected ErrStateInvalid, got %v", err)
	}
}

func TestVerifyStateExpired(t *testing.T) {
	secret := []byte("state-secret")

	payload := State{Nonce: "n", ReturnTo: "/", IssuedAt: time.Now().Add(-StateLifetime - time.Minute).Unix()}
	state := encodeSignedState(t, secret, payload)

	if _, err := VerifyState(secret, state, "n"); !errors.Is(err, ErrStateExpired) {
		t.Errorf("expected ErrStateExpired, got %v", err)
	}
}

// encodeSignedState builds a correctly signed state string from an arbitrary
// payload, for cases SignState itself never produces.
func encodeSignedState(t *testing.T, secret []byte, payload State) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	sig := sign(secret, raw)
	return base64.RawURLEncoding.EncodeToString(raw) + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func TestNonceCookieLifecycle(t *testing.T) {
	rec := httptest.NewRecorder()
	SetNonceCookie(rec, "abc123")

	req := httptest.NewRequest("GET", "/auth/google/callback", nil)
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}
	if got := NonceFromCookie(req); got != "abc123" {
		t.Errorf("NonceFromCookie %q, want abc123", got)
	}

	rec = httptest.NewRecorder()
	ClearNonceCookie(rec)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("clear cookie not expiring: %+v", cookies)
	}

	if got := NonceFromCookie(httptest.NewRequest("GET", "/", nil)); got != "" {
		t.Errorf("missing cookie should read empty, got %q", got)
	}
}
