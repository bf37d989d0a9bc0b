package oauth

import (
	"context"
	"log"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var appleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://appleid.apple.com/auth/authorize",
	TokenURL: "https://appleid.apple.com/auth/token",
}

// AppleExchanger redeems Apple authorization codes. Apple asserts the
// identity inside the id_token of the token response rather than through a
// userinfo endpoint, and never includes a display name or picture there.
type AppleExchanger struct {
	clientID     string
	clientSecret string

	// overridable in tests
	endpoint oauth2.Endpoint
}

// NewAppleExchanger returns an Exchanger for Sign in with Apple. clientSecret
// is the pre-generated ES256 client secret JWT Apple requires.
func NewAppleExchanger(clientID, clientSecret string) *AppleExchanger {
	return &AppleExchanger{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     appleEndpoint,
	}
}

// Exchange redeems the authorization code and reads the identity from the
// returned id_token. Provider-side rejections collapse to ErrExchangeFailed.
func (a *AppleExchanger) Exchange(ctx context.Context, code, redirectURI string) (*Identity, error) {
	conf := &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		RedirectURL:  redirectURI,
		Endpoint:     a.endpoint,
		Scopes:       []string{"email"},
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		log.Printf("oauth: apple code exchange: %v", err)
		return nil, ErrExchangeFailed
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		log.Printf("oauth: apple token response carries no id_token")
		return nil, ErrExchangeFailed
	}
	return identityFromAppleToken(idToken)
}

type appleClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	jwt.RegisteredClaims
}

// identityFromAppleToken extracts the identity Apple embeds in the ID token
// returned over the TLS channel from the token endpoint.
// TODO: verify the id_token signature against Apple's published JWKS.
func identityFromAppleToken(idToken string) (*Identity, error) {
	var claims appleClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		log.Printf("oauth: apple id token: %v", err)
		return nil, ErrExchangeFailed
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrExchangeFailed
	}
	return &Identity{
		Provider:      "apple",
		ExternalID:    claims.Subject,
		Email:         claims.Email,
		EmailVerified: appleVerified(claims.EmailVerified),
	}, nil
}

// Apple encodes email_verified as either a JSON bool or the string "true".
func appleVerified(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x == "true"
	}
	return false
}
