package oauth2

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// StateLifetime bounds how long a handshake may take before the signed state
// is rejected.
const StateLifetime = 10 * time.Minute

const nonceCookieName = "oauthstate"

var (
	// ErrStateInvalid means the state failed signature or nonce verification.
	ErrStateInvalid = errors.New("oauth state invalid")

	// ErrStateExpired means the handshake took longer than StateLifetime.
	ErrStateExpired = errors.New("oauth state expired")
)

// State is the payload carried through the provider handshake. It replaces
// ambient session storage for the return path: the state itself is the only
// place the redirect target lives, and it is signed.
type State struct {
	Nonce    string `json:"n"`
	ReturnTo string `json:"r,omitempty"`
	IssuedAt int64  `json:"t"`
}

// SignState packs returnTo and a fresh nonce into a signed, url-safe state
// parameter. The nonce is returned separately so it can be double-checked
// against a browser cookie at the callback.
func SignState(secret []byte, returnTo string) (state, nonce string, err error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce = hex.EncodeToString(b)

	payload, err := json.Marshal(State{
		Nonce:    nonce,
		ReturnTo: returnTo,
		IssuedAt: time.Now().Unix(),
	})
	if err != nil {
		return "", "", err
	}
	sig := sign(secret, payload)
	state = base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(sig)
	return state, nonce, nil
}

// VerifyState checks the signature, the expiry and the browser nonce and
// returns the embedded payload.
func VerifyState(secret []byte, state, cookieNonce string) (*State, error) {
	payloadPart, sigPart, found := strings.Cut(state, ".")
	if !found {
		return nil, ErrStateInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, ErrStateInvalid
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, ErrStateInvalid
	}
	if !hmac.Equal(sig, sign(secret, payload)) {
		return nil, ErrStateInvalid
	}

	var s State
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, ErrStateInvalid
	}
	if time.Since(time.Unix(s.IssuedAt, 0)) > StateLifetime {
		return nil, ErrStateExpired
	}
	if cookieNonce == "" || !hmac.Equal([]byte(cookieNonce), []byte(s.Nonce)) {
		return nil, ErrStateInvalid
	}
	return &s, nil
}

func sign(secret, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// SetNonceCookie binds the handshake to the initiating browser.
func SetNonceCookie(w http.ResponseWriter, nonce string) {
	http.SetCookie(w, &http.Cookie{
		Name:     nonceCookieName,
		Value:    nonce,
		Path:     "/",
		MaxAge:   int(StateLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// NonceFromCookie reads the nonce set by SetNonceCookie, or "".
func NonceFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(nonceCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// ClearNonceCookie removes the nonce after a completed handshake.
func ClearNonceCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   nonceCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
