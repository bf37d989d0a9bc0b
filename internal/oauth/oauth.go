// Package oauth defines the boundary to external identity providers. The
// service exchanges a provider authorization code for a verified identity;
// everything past that point (account lookup, creation, token issuance) is
// provider-agnostic.
package oauth

import (
	"context"
	"errors"
)

// ErrExchangeFailed is returned when the provider rejects the authorization
// code or the identity payload is unusable.
var ErrExchangeFailed = errors.New("oauth code exchange failed")

// Identity is the verified identity a provider vouches for after a successful
// code exchange.
type Identity struct {
	Provider      string
	ExternalID    string
	Email         string
	EmailVerified bool
	DisplayName   string
	Picture       string
}

// Providers selects an Exchanger by provider name. A nil map means provider
// login is disabled.
type Providers map[string]Exchanger

// For returns the exchanger registered for name, or nil.
func (p Providers) For(name string) Exchanger { return p[name] }

// Exchanger turns a provider authorization code into a verified Identity.
type Exchanger interface {
	// Exchange redeems code (with redirectURI, when the provider requires it)
	// and returns the identity the provider asserts. Implementations return
	// ErrExchangeFailed for provider-side rejections.
	Exchange(ctx context.Context, code, redirectURI string) (*Identity, error)
}
