package oauth2

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubUserInfoURL = "https://api.github.com/user"

// Github implements the GitHub OAuth2 handshake.
type Github struct {
	*BaseProvider
}

func NewGithub(clientID, clientSecret, callbackURL string) *Github {
	return &Github{
		BaseProvider: newBaseProvider("github", oauth2.Config{
			ClientID:     envOr(clientID, "OAUTH2_GITHUB_CLIENT_ID"),
			ClientSecret: envOr(clientSecret, "OAUTH2_GITHUB_CLIENT_SECRET"),
			RedirectURL:  envOr(callbackURL, "OAUTH2_GITHUB_CALLBACK_URL"),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, githubUserInfoURL),
	}
}

func (g *Github) FetchIdentity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	body, err := g.getUserInfo(ctx, token, "")
	if err != nil {
		return nil, err
	}
	var info struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
		Location  string `json:"location"`
		Blog      string `json:"blog"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse github user info: %w", err)
	}
	if info.ID == 0 {
		return nil, fmt.Errorf("github user info missing id")
	}
	name := info.Name
	if name == "" {
		name = info.Login
	}
	return &Identity{
		Provider:    g.Name(),
		Subject:     fmt.Sprintf("%d", info.ID),
		Email:       info.Email, // may be empty when the user hides it
		AccessToken: token.AccessToken,
		Name:        name,
		Picture:     info.AvatarURL,
		Location:    info.Location,
		Website:     info.Blog,
	}, nil
}
