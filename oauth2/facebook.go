package oauth2

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

const facebookUserInfoURL = "https://graph.facebook.com/me"

// Facebook implements the Facebook OAuth2 handshake.
type Facebook struct {
	*BaseProvider
}

func NewFacebook(clientID, clientSecret, callbackURL string) *Facebook {
	return &Facebook{
		BaseProvider: newBaseProvider("facebook", oauth2.Config{
			ClientID:     envOr(clientID, "OAUTH2_FACEBOOK_CLIENT_ID"),
			ClientSecret: envOr(clientSecret, "OAUTH2_FACEBOOK_CLIENT_SECRET"),
			RedirectURL:  envOr(callbackURL, "OAUTH2_FACEBOOK_CALLBACK_URL"),
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebook.Endpoint,
		}, facebookUserInfoURL),
	}
}

func (f *Facebook) FetchIdentity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	body, err := f.getUserInfo(ctx, token, "fields=id,name,email,gender,location")
	if err != nil {
		return nil, err
	}
	var info struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Gender   string `json:"gender"`
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse facebook user info: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("facebook user info missing id")
	}
	return &Identity{
		Provider:    f.Name(),
		Subject:     info.ID,
		Email:       info.Email,
		AccessToken: token.AccessToken,
		Name:        info.Name,
		Gender:      info.Gender,
		Picture:     fmt.Sprintf("https://graph.facebook.com/%s/picture?type=large", info.ID),
		Location:    info.Location.Name,
	}, nil
}
