package oauth2

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func userInfoServer(t *testing.T, wantToken, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer "+wantToken {
			t.Errorf("Authorization header %q, want bearer %q", got, wantToken)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGithubFetchIdentity(t *testing.T) {
	server := userInfoServer(t, "gh-token", `{
		"id": 12345,
		"login": "alice",
		"email": "alice@example.com",
		"name": "Alice Example",
		"avatar_url": "https://avatars.example/alice.png",
		"location": "Berlin",
		"blog": "https://alice.example"
	}`)

	provider := NewGithub("id", "secret", "http://localhost/callback")
	provider.SetUserInfoURL(server.URL)

	identity, err := provider.FetchIdentity(context.Background(), &oauth2.Token{AccessToken: "gh-token"})
	if err != nil {
		t.Fatalf("FetchIdentity failed: %v", err)
	}
	if identity.Provider != "github" || identity.Subject != "12345" {
		t.Errorf("wrong identity key: %s/%s", identity.Provider, identity.Subject)
	}
	if identity.Email != "alice@example.com" || identity.Name != "Alice Example" {
		t.Errorf("profile not mapped: %+v", identity)
	}
	if identity.Picture == "" || identity.Location != "Berlin" || identity.Website != "https://alice.example" {
		t.Errorf("profile attributes not mapped: %+v", identity)
	}
	if identity.AccessToken != "gh-token" {
		t.Errorf("access token not carried: %q", identity.AccessToken)
	}
}

func TestGithubFetchIdentityFallsBackToLogin(t *testing.T) {
	server := userInfoServer(t, "gh-token", `{"id": 7, "login": "bob", "name": ""}`)

	provider := NewGithub("id", "secret", "http://localhost/callback")
	provider.SetUserInfoURL(server.URL)

	identity, err := provider.FetchIdentity(context.Background(), &oauth2.Token{AccessToken: "gh-token"})
	if err != nil {
		t.Fatalf("FetchIdentity failed: %v", err)
	}
	if identity.Name != "bob" {
		t.Errorf("expected login fallback, got %q", identity.Name)
	}
	if identity.Email != "" {
		t.Errorf("hidden email must stay empty, got %q", identity.Email)
	}
}

func TestVkontakteFetchIdentity(t *testing.T) {
	server := userInfoServer(t, "vk-token", `{
		"response": [{
			"id": 99,
			"first_name": "Ivan",
			"last_name": "Petrov",
			"photo_200": "https://vk.example/p.jpg",
			"sex": 2,
			"city": {"title": "Moscow"}
		}]
	}`)

	provider := NewVkontakte("id", "secret", "http://localhost/callback")
	provider.SetUserInfoURL(server.URL)

	// Email arrives in the token response, not the users.get payload.
	token := (&oauth2.Token{AccessToken: "vk-token"}).WithExtra(map[string]any{"email": "ivan@example.com"})
	identity, err := provider.FetchIdentity(context.Background(), token)
	if err != nil {
		t.Fatalf("FetchIdentity failed: %v", err)
	}
	if identity.Subject != "99" || identity.Email != "ivan@example.com" {
		t.Errorf("identity key not mapped: %+v", identity)
	}
	if identity.Name != "Ivan Petrov" || identity.Gender != "male" || identity.Location != "Moscow" {
		t.Errorf("profile not mapped: %+v", identity)
	}
}

func TestFetchIdentityNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	provider := NewGithub("id", "secret", "http://localhost/callback")
	provider.SetUserInfoURL(server.URL)

	_, err := provider.FetchIdentity(context.Background(), &oauth2.Token{AccessToken: "gh-token"})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("expected a status error, got %v", err)
	}
}
