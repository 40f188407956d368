package auth

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

// Endpoint is Strava's OAuth endpoint
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://www.strava.com/oauth/authorize",
	TokenURL:  "https://www.strava.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// uploadScope lets pacetrack create activities. Strava takes one
// comma-separated scope string.
const uploadScope = "read,activity:write"

// NewOAuthConfig returns the client config used for login and refresh.
// The redirect always targets the local callback server.
func NewOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     Endpoint,
		RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", CallbackPort),
		Scopes:       []string{uploadScope},
	}
}

// AuthResult is a completed login
type AuthResult struct {
	Token     *oauth2.Token
	AthleteID int64
}

// ExtractAthleteID reads athlete.id from the token response, or 0
func ExtractAthleteID(token *oauth2.Token) int64 {
	athlete, ok := token.Extra("athlete").(map[string]any)
	if !ok {
		return 0
	}
	switch id := athlete["id"].(type) {
	case float64:
		return int64(id)
	case json.Number:
		n, _ := id.Int64()
		return n
	}
	return 0
}
