package passgate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"

	pgoauth "github.com/passgate/passgate/oauth2"
)

// Gateway wires the reconciliation engine, the session manager and the
// provider handshakes into one HTTP surface:
//
//	POST /signin
//	POST /signup
//	GET  /signout
//	GET  /auth/{provider}
//	GET  /auth/{provider}/callback
type Gateway struct {
	Engine  *Reconciler
	Session *scs.SessionManager

	// Middleware resolves bearer tokens on every request so provider
	// callbacks can see an already-authenticated session user (linking).
	Middleware *Middleware

	// StateSecret signs the returnTo state passed through the provider
	// handshake. Defaults to the token issuer's secret.
	StateSecret string

	// DefaultRedirect is used when no return path was captured. Defaults to "/".
	DefaultRedirect string

	providers map[string]pgoauth.Provider
}

// NewGateway builds a Gateway around an engine and a session manager.
func NewGateway(engine *Reconciler, session *scs.SessionManager) *Gateway {
	return &Gateway{
		Engine:  engine,
		Session: session,
		Middleware: &Middleware{
			Issuer: engine.Issuer,
			Users:  engine.Users,
		},
		providers: make(map[string]pgoauth.Provider),
	}
}

// RegisterProvider mounts a provider handshake under /auth/{name}.
func (g *Gateway) RegisterProvider(p pgoauth.Provider) *Gateway {
	g.providers[p.Name()] = p
	return g
}

func (g *Gateway) stateSecret() []byte {
	if g.StateSecret != "" {
		return []byte(g.StateSecret)
	}
	return []byte(g.Engine.Issuer.SecretKey)
}

func (g *Gateway) defaultRedirect() string {
	if g.DefaultRedirect != "" {
		return g.DefaultRedirect
	}
	return "/"
}

// Handler returns the routed HTTP handler, with session loading and user
// extraction applied to every route.
func (g *Gateway) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/signin", g.HandleSignIn).Methods(http.MethodPost)
	r.HandleFunc("/signup", g.HandleSignUp).Methods(http.MethodPost)
	r.HandleFunc("/signout", g.HandleSignOut).Methods(http.MethodGet)
	r.HandleFunc("/auth/{provider}", g.handleProviderBegin).Methods(http.MethodGet)
	r.HandleFunc("/auth/{provider}/callback", g.handleProviderCallback).Methods(http.MethodGet)

	var handler http.Handler = g.Middleware.ExtractUser(r)
	if g.Session != nil {
		handler = g.Session.LoadAndSave(handler)
	}
	return handler
}

// handleProviderBegin captures the return path and redirects to the provider.
//
// The return path comes from the "callback" query parameter, falling back to
// the Referer header, and travels through the handshake inside the signed
// state parameter rather than in ambient session storage. A nonce cookie
// binds the state to this browser.
func (g *Gateway) handleProviderBegin(w http.ResponseWriter, r *http.Request) {
	provider, ok := g.providers[mux.Vars(r)["provider"]]
	if !ok {
		http.NotFound(w, r)
		return
	}

	returnTo := r.URL.Query().Get("callback")
	if returnTo == "" {
		returnTo = r.Referer()
	}

	state, nonce, err := pgoauth.SignState(g.stateSecret(), returnTo)
	if err != nil {
		slog.Error("error signing oauth state", "err", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	pgoauth.SetNonceCookie(w, nonce)
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// handleProviderCallback finishes the handshake and reconciles the identity.
func (g *Gateway) handleProviderCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := g.providers[mux.Vars(r)["provider"]]
	if !ok {
		http.NotFound(w, r)
		return
	}

	state, err := pgoauth.VerifyState(g.stateSecret(), r.URL.Query().Get("state"), pgoauth.NonceFromCookie(r))
	if err != nil {
		http.Error(w, "Invalid oauth state", http.StatusBadRequest)
		return
	}
	pgoauth.ClearNonceCookie(w)

	token, err := provider.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		slog.Warn("code exchange failed", "provider", provider.Name(), "err", err)
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}
	identity, err := provider.FetchIdentity(r.Context(), token)
	if err != nil {
		slog.Warn("identity fetch failed", "provider", provider.Name(), "err", err)
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	g.CompleteProviderLogin(w, r, identity, state.ReturnTo)
}

// CompleteProviderLogin reconciles a verified provider identity, starts the
// session and redirects to the captured return path. Split out from the
// callback handler so host applications with their own handshake plumbing
// can reuse the reconciliation and session logic.
func (g *Gateway) CompleteProviderLogin(w http.ResponseWriter, r *http.Request, identity *pgoauth.Identity, returnTo string) {
	login := ProviderLogin{
		Provider: identity.Provider,
		Subject:  identity.Subject,
		Email:    identity.Email,
		Profile: Profile{
			Name:     identity.Name,
			Gender:   identity.Gender,
			Picture:  identity.Picture,
			Location: identity.Location,
			Website:  identity.Website,
		},
		AccessToken:   identity.AccessToken,
		SessionUserID: g.sessionUserID(r),
	}

	user, err := g.Engine.ReconcileProvider(login)
	if err != nil {
		if errors.Is(err, ErrProviderLinked) {
			writeAuthError(w, NewAuthError(ErrCodeProviderLinked,
				"This provider account is already linked to another user", "provider"), http.StatusConflict)
			return
		}
		slog.Error("provider reconciliation failed", "provider", identity.Provider, "err", err)
		writeAuthError(w, NewAuthError(ErrCodeStoreFailure, "Server error", ""), http.StatusInternalServerError)
		return
	}

	token := g.startSession(w, r, user)
	w.Header().Set("Authorization", "Bearer "+token)
	http.Redirect(w, r, g.safeRedirect(returnTo), http.StatusFound)
}

// sessionUserID returns the authenticated user for this request, preferring
// the request context (bearer token) and falling back to the scs session.
func (g *Gateway) sessionUserID(r *http.Request) string {
	if id := CurrentUserID(r.Context()); id != "" {
		return id
	}
	if g.Session != nil {
		return g.Session.GetString(r.Context(), sessionUserIDVar)
	}
	return ""
}

// startSession issues the session token, records it server-side and sets the
// x-access-token response header.
func (g *Gateway) startSession(w http.ResponseWriter, r *http.Request, user *User) string {
	token, err := g.Engine.IssueSession(user)
	if err != nil {
		slog.Error("error issuing session token", "err", err)
		return ""
	}
	if g.Session != nil {
		g.Session.Put(r.Context(), sessionUserIDVar, user.ID)
		g.Session.Put(r.Context(), sessionTokenVar, token)
	}
	w.Header().Set(AccessTokenHeader, token)
	return token
}

// safeRedirect follows relative paths and http(s) URLs; anything else
// collapses to the default redirect.
func (g *Gateway) safeRedirect(returnTo string) string {
	if returnTo == "" {
		return g.defaultRedirect()
	}
	u, err := url.Parse(returnTo)
	if err != nil || (u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https") {
		return g.defaultRedirect()
	}
	return returnTo
}

// WriteJSON is a small helper for host applications mounting extra routes.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
