package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleExchanger redeems Google authorization codes and reads the userinfo
// endpoint for the asserted identity.
type GoogleExchanger struct {
	clientID     string
	clientSecret string

	// overridable in tests
	endpoint    oauth2.Endpoint
	userInfoURL string
}

// NewGoogleExchanger returns an Exchanger for Google sign-in.
func NewGoogleExchanger(clientID, clientSecret string) *GoogleExchanger {
	return &GoogleExchanger{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     google.Endpoint,
		userInfoURL:  googleUserInfoURL,
	}
}

// Exchange redeems the authorization code and fetches the user's profile.
// Provider-side rejections collapse to ErrExchangeFailed; the upstream detail
// is logged, never surfaced to the client.
func (g *GoogleExchanger) Exchange(ctx context.Context, code, redirectURI string) (*Identity, error) {
	conf := &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		RedirectURL:  redirectURI,
		Endpoint:     g.endpoint,
		Scopes:       []string{"email", "profile"},
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		log.Printf("oauth: google code exchange: %v", err)
		return nil, ErrExchangeFailed
	}

	resp, err := conf.Client(ctx, tok).Get(g.userInfoURL)
	if err != nil {
		log.Printf("oauth: google userinfo: %v", err)
		return nil, ErrExchangeFailed
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		log.Printf("oauth: google userinfo: status %d", resp.StatusCode)
		return nil, ErrExchangeFailed
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, ErrExchangeFailed
	}
	return &Identity{
		Provider:      "google",
		ExternalID:    info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		DisplayName:   info.Name,
		Picture:       info.Picture,
	}, nil
}
