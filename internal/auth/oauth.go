package auth

import (
	"golang.org/x/oauth2"

	"zonetrends/internal/config"
)

const (
	// Strava OAuth endpoints
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
)

// Scopes needed to list activities and read their zones (Strava uses comma-separated scopes)
var Scopes = []string{
	"read,activity:read_all",
}

// Endpoint is Strava's OAuth endpoint pair
var Endpoint = oauth2.Endpoint{
	AuthURL:   AuthURL,
	TokenURL:  TokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

// NewOAuthConfig builds the oauth2.Config for the configured Strava app.
// redirectURL may be empty when the config is only used to refresh tokens.
func NewOAuthConfig(cfg config.StravaConfig, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
	}
}

// Result is the outcome of a completed login
type Result struct {
	Token     *oauth2.Token
	AthleteID int64
}

// ExtractAthleteID reads the athlete id Strava embeds in the token response
func ExtractAthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}
