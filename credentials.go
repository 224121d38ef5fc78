package userstack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// Credentials is the body of an identify call. Every field is optional and
// the fields are not mutually exclusive; the backend decides what is valid.
type Credentials struct {
	// GoogleToken is a Google OAuth token (ID token preferred).
	GoogleToken string `json:"googleToken,omitempty"`
	// FirebaseToken is a Firebase auth ID token.
	FirebaseToken string `json:"firebaseToken,omitempty"`
	// UserID is an application-supplied user identifier.
	UserID string `json:"userId,omitempty"`

	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`

	// Data is an open-ended metadata payload.
	Data any `json:"data,omitempty"`
}

// identifyResponse is the success body of POST /identify.
// Only JWT is consumed by the client; ExpiresIn is kept raw for logging and
// may hold any JSON value.
type identifyResponse struct {
	JWT       string          `json:"jwt"`
	ExpiresIn json.RawMessage `json:"expiresIn"`
}

// GoogleCredentials builds Credentials from an oauth2 token source, such as
// the one returned by oauth2.Config.TokenSource after a Google sign-in. The
// OpenID "id_token" extra is used when present, otherwise the access token.
func GoogleCredentials(ctx context.Context, ts oauth2.TokenSource) (Credentials, error) {
	if ts == nil {
		return Credentials{}, errors.New("userstack: token source is nil")
	}
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}

	tok, err := ts.Token()
	if err != nil {
		return Credentials{}, fmt.Errorf("userstack: failed to obtain google token: %w", err)
	}

	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		return Credentials{GoogleToken: idToken}, nil
	}
	if tok.AccessToken == "" {
		return Credentials{}, errors.New("userstack: google token source returned an empty token")
	}
	return Credentials{GoogleToken: tok.AccessToken}, nil
}
