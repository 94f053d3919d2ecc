// Package oauth2 implements the provider-side handshakes for the gateway:
// Google, Facebook, GitHub, VKontakte and Twitter. Each provider exchanges
// the callback code for an access token, fetches the provider's user info and
// maps it into a normalized Identity tuple. Everything after that point —
// linking, merging, account creation — happens in the reconciliation engine.
package oauth2

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// Identity is the verified tuple a completed handshake yields. Subject is the
// provider-assigned user id; Email may be empty for providers that withhold
// it (the engine synthesizes a placeholder in that case).
type Identity struct {
	Provider    string
	Subject     string
	Email       string
	AccessToken string

	// Best-effort profile attributes; each provider fills what it has.
	Name     string
	Gender   string
	Picture  string
	Location string
	Website  string
}

// Provider is one external identity service handshake.
type Provider interface {
	Name() string

	// AuthCodeURL builds the provider consent URL carrying the signed state.
	AuthCodeURL(state string) string

	// Exchange trades the callback code for an access token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchIdentity retrieves and normalizes the provider's user info.
	FetchIdentity(ctx context.Context, token *oauth2.Token) (*Identity, error)
}

// BaseProvider holds the pieces every concrete provider shares.
type BaseProvider struct {
	name        string
	config      oauth2.Config
	userInfoURL string

	// HTTPClient is injectable for tests; defaults to http.DefaultClient.
	HTTPClient *http.Client
}

func newBaseProvider(name string, config oauth2.Config, userInfoURL string) *BaseProvider {
	return &BaseProvider{name: name, config: config, userInfoURL: userInfoURL}
}

func (b *BaseProvider) Name() string { return b.name }

func (b *BaseProvider) AuthCodeURL(state string) string {
	return b.config.AuthCodeURL(state)
}

func (b *BaseProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return b.config.Exchange(ctx, code)
}

// SetUserInfoURL overrides where user info is fetched from, for tests.
func (b *BaseProvider) SetUserInfoURL(u string) { b.userInfoURL = u }

func (b *BaseProvider) httpClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// getUserInfo performs an authenticated GET against the provider's user info
// endpoint and returns the raw body.
func (b *BaseProvider) getUserInfo(ctx context.Context, token *oauth2.Token, query string) ([]byte, error) {
	target := b.userInfoURL
	if query != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info from %s: %w", b.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request to %s returned %d", b.name, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// envOr returns value unless empty, then the trimmed environment variable.
func envOr(value, envVar string) string {
	if value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv(envVar))
}
