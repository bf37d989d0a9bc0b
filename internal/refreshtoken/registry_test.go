package refreshtoken

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type memTokenStore struct {
	tokens map[string][]string
}

func newMemTokenStore(accounts ...string) *memTokenStore {
	s := &memTokenStore{tokens: make(map[string][]string)}
	for _, a := range accounts {
		s.tokens[a] = []string{}
	}
	return s
}

func (s *memTokenStore) RefreshTokens(_ context.Context, accountID string) ([]string, error) {
	t, ok := s.tokens[accountID]
	if !ok {
		return nil, nil
	}
	return append([]string{}, t...), nil
}

func (s *memTokenStore) ReplaceRefreshTokens(_ context.Context, accountID string, tokens []string) error {
	s.tokens[accountID] = append([]string(nil), tokens...)
	return nil
}

func (s *memTokenStore) SwapRefreshTokens(_ context.Context, accountID, mustContain string, tokens []string) (bool, error) {
	cur, ok := s.tokens[accountID]
	if !ok {
		return false, nil
	}
	found := false
	for _, t := range cur {
		if t == mustContain {
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}
	s.tokens[accountID] = append([]string(nil), tokens...)
	return true, nil
}

func TestGrantAppends(t *testing.T) {
	store := newMemTokenStore("acct")
	reg := NewRegistry(store)
	ctx := context.Background()

	if err := reg.Grant(ctx, "acct", "t1"); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := reg.Grant(ctx, "acct", "t2"); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	got := store.tokens["acct"]
	if len(got) != 2 || got[0] != "t1" || got[1] != "t2" {
		t.Fatalf("live set = %v", got)
	}
}

func TestGrantEvictsOldest(t *testing.T) {
	store := newMemTokenStore("acct")
	reg := NewRegistry(store)
	ctx := context.Background()

	for i := 0; i < MaxLiveTokens+2; i++ {
		if err := reg.Grant(ctx, "acct", fmt.Sprintf("t%d", i)); err != nil {
			t.Fatalf("Grant failed: %v", err)
		}
	}
	got := store.tokens["acct"]
	if len(got) != MaxLiveTokens {
		t.Fatalf("live set holds %d tokens, want %d", len(got), MaxLiveTokens)
	}
	if got[0] != "t2" || got[len(got)-1] != fmt.Sprintf("t%d", MaxLiveTokens+1) {
		t.Fatalf("live set = %v", got)
	}

	// The evicted tokens are no longer rotatable.
	if err := reg.Rotate(ctx, "acct", "t0", "replacement"); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("Rotate evicted token = %v, want ErrTokenReused", err)
	}
}

func TestRotateSingleUse(t *testing.T) {
	store := newMemTokenStore("acct")
	reg := NewRegistry(store)
	ctx := context.Background()

	if err := reg.Grant(ctx, "acct", "old"); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := reg.Rotate(ctx, "acct", "old", "new"); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	got := store.tokens["acct"]
	if len(got) != 1 || got[0] != "new" {
		t.Fatalf("live set after rotation = %v", got)
	}

	// Replaying the consumed token is the reuse signal.
	if err := reg.Rotate(ctx, "acct", "old", "newer"); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("replay = %v, want ErrTokenReused", err)
	}
	if got := store.tokens["acct"]; len(got) != 1 || got[0] != "new" {
		t.Fatalf("live set disturbed by rejected replay: %v", got)
	}
}

func TestRotatePreservesOtherSessions(t *testing.T) {
	store := newMemTokenStore("acct")
	reg := NewRegistry(store)
	ctx := context.Background()

	for _, tok := range []string{"a", "b", "c"} {
		if err := reg.Grant(ctx, "acct", tok); err != nil {
			t.Fatalf("Grant failed: %v", err)
		}
	}
	if err := reg.Rotate(ctx, "acct", "b", "b2"); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	got := store.tokens["acct"]
	if len(got) != 3 || got[0] != "a" || got[1] != "c" || got[2] != "b2" {
		t.Fatalf("live set = %v", got)
	}
}

func TestRotateUnknownAccount(t *testing.T) {
	reg := NewRegistry(newMemTokenStore())

	if err := reg.Rotate(context.Background(), "ghost", "old", "new"); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("Rotate on unknown account = %v, want ErrUnknownAccount", err)
	}
}

// loseSwapStore models a concurrent rotation winning between the read and the
// compare-and-swap: the read still shows the token, the swap misses.
type loseSwapStore struct {
	*memTokenStore
}

func (s *loseSwapStore) SwapRefreshTokens(ctx context.Context, accountID, mustContain string, tokens []string) (bool, error) {
	return false, nil
}

func TestRotateLosesRace(t *testing.T) {
	store := newMemTokenStore("acct")
	reg := NewRegistry(&loseSwapStore{store})
	ctx := context.Background()

	store.tokens["acct"] = []string{"old"}
	if err := reg.Rotate(ctx, "acct", "old", "new"); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("losing rotation = %v, want ErrTokenReused", err)
	}
	if got := store.tokens["acct"]; len(got) != 1 || got[0] != "old" {
		t.Fatalf("losing rotation mutated the store: %v", got)
	}
}

func TestRevoke(t *testing.T) {
	store := newMemTokenStore("acct")
	reg := NewRegistry(store)
	ctx := context.Background()

	if err := reg.Grant(ctx, "acct", "t1"); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := reg.Grant(ctx, "acct", "t2"); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	if err := reg.Revoke(ctx, "acct", "t1"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if got := store.tokens["acct"]; len(got) != 1 || got[0] != "t2" {
		t.Fatalf("live set = %v", got)
	}

	// Revoking again, or revoking a token never granted, is a no-op.
	if err := reg.Revoke(ctx, "acct", "t1"); err != nil {
		t.Fatalf("repeat Revoke failed: %v", err)
	}
	if err := reg.Revoke(ctx, "acct", "never-granted"); err != nil {
		t.Fatalf("Revoke unknown token failed: %v", err)
	}
	if err := reg.Revoke(ctx, "ghost", "t1"); err != nil {
		t.Fatalf("Revoke on unknown account failed: %v", err)
	}
}

func TestRevokeAll(t *testing.T) {
	store := newMemTokenStore("acct")
	reg := NewRegistry(store)
	ctx := context.Background()

	for _, tok := range []string{"a", "b", "c"} {
		if err := reg.Grant(ctx, "acct", tok); err != nil {
			t.Fatalf("Grant failed: %v", err)
		}
	}
	if err := reg.RevokeAll(ctx, "acct"); err != nil {
		t.Fatalf("RevokeAll failed: %v", err)
	}
	if got := store.tokens["acct"]; len(got) != 0 {
		t.Fatalf("live set after RevokeAll = %v", got)
	}
	for _, tok := range []string{"a", "b", "c"} {
		if err := reg.Rotate(ctx, "acct", tok, "new"); !errors.Is(err, ErrTokenReused) {
			t.Fatalf("Rotate revoked token %s = %v, want ErrTokenReused", tok, err)
		}
	}
}
