// Package refreshtoken tracks the bounded set of currently-valid refresh
// tokens per account and enforces the single-use rotation contract.
package refreshtoken

import (
	"context"
	"errors"
)

// MaxLiveTokens caps the live refresh-token set per account. The cap bounds
// exposure from lost devices while tolerating several concurrent sessions;
// the oldest token is evicted first.
const MaxLiveTokens = 5

var (
	// ErrTokenReused is returned when a syntactically valid token is presented
	// after it was already rotated out of the live set, the signal for a
	// stolen or replayed token.
	ErrTokenReused = errors.New("refresh token already used")
	// ErrUnknownAccount is returned when the account does not exist.
	ErrUnknownAccount = errors.New("unknown account")
)

// TokenStore is the persistence boundary for an account's ordered token set.
// Implemented by the user repository.
type TokenStore interface {
	RefreshTokens(ctx context.Context, accountID string) ([]string, error)
	ReplaceRefreshTokens(ctx context.Context, accountID string, tokens []string) error
	SwapRefreshTokens(ctx context.Context, accountID, mustContain string, tokens []string) (bool, error)
}

// Registry manages refresh-token grant, rotation, and revocation per account.
// Concurrent rotations on one account race on the swap; the store-level
// compare-and-swap rejects the loser, preserving single-use.
type Registry struct {
	store TokenStore
}

// NewRegistry returns a Registry over the given store.
func NewRegistry(store TokenStore) *Registry {
	return &Registry{store: store}
}

// Grant appends token to the account's live set, evicting the oldest entries
// beyond MaxLiveTokens. Called on login.
func (r *Registry) Grant(ctx context.Context, accountID, token string) error {
	tokens, err := r.store.RefreshTokens(ctx, accountID)
	if err != nil {
		return err
	}
	if tokens == nil {
		tokens = []string{}
	}
	tokens = capTokens(append(tokens, token))
	return r.store.ReplaceRefreshTokens(ctx, accountID, tokens)
}

// Rotate atomically consumes usedToken and installs newToken. The used token
// must still be in the live set: a valid, unexpired token that was already
// rotated out is rejected with ErrTokenReused. Called on refresh exchange.
func (r *Registry) Rotate(ctx context.Context, accountID, usedToken, newToken string) error {
	tokens, err := r.store.RefreshTokens(ctx, accountID)
	if err != nil {
		return err
	}
	if tokens == nil {
		return ErrUnknownAccount
	}
	found := false
	next := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == usedToken {
			found = true
			continue
		}
		next = append(next, t)
	}
	if !found {
		return ErrTokenReused
	}
	next = capTokens(append(next, newToken))

	swapped, err := r.store.SwapRefreshTokens(ctx, accountID, usedToken, next)
	if err != nil {
		return err
	}
	if !swapped {
		// A concurrent rotation consumed usedToken between the read and the swap.
		return ErrTokenReused
	}
	return nil
}

// Revoke removes token from the account's live set. Unknown tokens are a
// no-op so logout is idempotent.
func (r *Registry) Revoke(ctx context.Context, accountID, token string) error {
	tokens, err := r.store.RefreshTokens(ctx, accountID)
	if err != nil {
		return err
	}
	if tokens == nil {
		return nil
	}
	next := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != token {
			next = append(next, t)
		}
	}
	if len(next) == len(tokens) {
		return nil
	}
	return r.store.ReplaceRefreshTokens(ctx, accountID, next)
}

// RevokeAll clears the account's live set. Called on password change.
func (r *Registry) RevokeAll(ctx context.Context, accountID string) error {
	return r.store.ReplaceRefreshTokens(ctx, accountID, []string{})
}

// capTokens truncates to the MaxLiveTokens most recently added entries.
func capTokens(tokens []string) []string {
	if len(tokens) <= MaxLiveTokens {
		return tokens
	}
	return tokens[len(tokens)-MaxLiveTokens:]
}
