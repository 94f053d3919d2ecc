package oauth2

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Google implements the Google OAuth2 handshake.
type Google struct {
	*BaseProvider
}

func NewGoogle(clientID, clientSecret, callbackURL string) *Google {
	return &Google{
		BaseProvider: newBaseProvider("google", oauth2.Config{
			ClientID:     envOr(clientID, "OAUTH2_GOOGLE_CLIENT_ID"),
			ClientSecret: envOr(clientSecret, "OAUTH2_GOOGLE_CLIENT_SECRET"),
			RedirectURL:  envOr(callbackURL, "OAUTH2_GOOGLE_CALLBACK_URL"),
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		}, googleUserInfoURL),
	}
}

func (g *Google) FetchIdentity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	body, err := g.getUserInfo(ctx, token, "")
	if err != nil {
		return nil, err
	}
	var info struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Gender  string `json:"gender"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse google user info: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("google user info missing id")
	}
	return &Identity{
		Provider:    g.Name(),
		Subject:     info.ID,
		Email:       info.Email,
		AccessToken: token.AccessToken,
		Name:        info.Name,
		Gender:      info.Gender,
		Picture:     info.Picture,
	}, nil
}
