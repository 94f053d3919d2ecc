package oauth2

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/vk"
)

const vkontakteUserInfoURL = "https://api.vk.com/method/users.get"

const vkAPIVersion = "5.131"

// Vkontakte implements the VKontakte OAuth2 handshake. VK returns the user's
// email in the token response rather than the users.get payload, so it is
// read from the token extras.
type Vkontakte struct {
	*BaseProvider
}

func NewVkontakte(clientID, clientSecret, callbackURL string) *Vkontakte {
	return &Vkontakte{
		BaseProvider: newBaseProvider("vkontakte", oauth2.Config{
			ClientID:     envOr(clientID, "OAUTH2_VKONTAKTE_CLIENT_ID"),
			ClientSecret: envOr(clientSecret, "OAUTH2_VKONTAKTE_CLIENT_SECRET"),
			RedirectURL:  envOr(callbackURL, "OAUTH2_VKONTAKTE_CALLBACK_URL"),
			Scopes:       []string{"email"},
			Endpoint:     vk.Endpoint,
		}, vkontakteUserInfoURL),
	}
}

func (v *Vkontakte) FetchIdentity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	body, err := v.getUserInfo(ctx, token, "v="+vkAPIVersion+"&fields=photo_200,sex,city")
	if err != nil {
		return nil, err
	}
	var payload struct {
		Response []struct {
			ID        int64  `json:"id"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Photo200  string `json:"photo_200"`
			Sex       int    `json:"sex"` // 1 female, 2 male per VK API
			City      struct {
				Title string `json:"title"`
			} `json:"city"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse vkontakte user info: %w", err)
	}
	if len(payload.Response) == 0 {
		return nil, fmt.Errorf("vkontakte user info empty")
	}
	info := payload.Response[0]

	email, _ := token.Extra("email").(string)

	gender := ""
	switch info.Sex {
	case 1:
		gender = "female"
	case 2:
		gender = "male"
	}

	return &Identity{
		Provider:    v.Name(),
		Subject:     fmt.Sprintf("%d", info.ID),
		Email:       email,
		AccessToken: token.AccessToken,
		Name:        fmt.Sprintf("%s %s", info.FirstName, info.LastName),
		Gender:      gender,
		Picture:     info.Photo200,
		Location:    info.City.Title,
	}, nil
}
