package oauth2

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

const twitterUserInfoURL = "https://api.twitter.com/2/users/me"

// twitterEndpoint is not shipped with golang.org/x/oauth2, so it is spelled
// out here.
var twitterEndpoint = oauth2.Endpoint{
	AuthURL:  "https://twitter.com/i/oauth2/authorize",
	TokenURL: "https://api.twitter.com/2/oauth2/token",
}

// Twitter implements the Twitter OAuth2 handshake. Twitter's v2 API withholds
// the account email, so Identity.Email stays empty and the engine falls back
// to a synthesized placeholder address.
type Twitter struct {
	*BaseProvider
}

func NewTwitter(clientID, clientSecret, callbackURL string) *Twitter {
	return &Twitter{
		BaseProvider: newBaseProvider("twitter", oauth2.Config{
			ClientID:     envOr(clientID, "OAUTH2_TWITTER_CLIENT_ID"),
			ClientSecret: envOr(clientSecret, "OAUTH2_TWITTER_CLIENT_SECRET"),
			RedirectURL:  envOr(callbackURL, "OAUTH2_TWITTER_CALLBACK_URL"),
			Scopes:       []string{"users.read", "tweet.read"},
			Endpoint:     twitterEndpoint,
		}, twitterUserInfoURL),
	}
}

func (t *Twitter) FetchIdentity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	body, err := t.getUserInfo(ctx, token, "user.fields=profile_image_url,location,url")
	if err != nil {
		return nil, err
	}
	var payload struct {
		Data struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
			Location        string `json:"location"`
			URL             string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse twitter user info: %w", err)
	}
	if payload.Data.ID == "" {
		return nil, fmt.Errorf("twitter user info missing id")
	}
	return &Identity{
		Provider:    t.Name(),
		Subject:     payload.Data.ID,
		AccessToken: token.AccessToken,
		Name:        payload.Data.Name,
		Picture:     payload.Data.ProfileImageURL,
		Location:    payload.Data.Location,
		Website:     payload.Data.URL,
	}, nil
}
