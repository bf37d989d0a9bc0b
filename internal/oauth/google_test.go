package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

// fakeProvider serves the token and userinfo endpoints of a compliant provider.
func fakeProvider(t *testing.T, userinfoStatus int, userinfoBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userinfoStatus)
		_, _ = w.Write([]byte(userinfoBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestExchanger(srv *httptest.Server) *GoogleExchanger {
	g := NewGoogleExchanger("client-id", "client-secret")
	g.endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	g.userInfoURL = srv.URL + "/userinfo"
	return g
}

func TestGoogleExchanger_Exchange(t *testing.T) {
	srv := fakeProvider(t, http.StatusOK,
		`{"sub":"g-123","email":"user@example.com","email_verified":true,"name":"User","picture":"https://p/1"}`)
	g := newTestExchanger(srv)

	ident, err := g.Exchange(context.Background(), "good-code", "https://app/cb")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if ident.Provider != "google" || ident.ExternalID != "g-123" || ident.Email != "user@example.com" {
		t.Errorf("identity: %+v", ident)
	}
	if !ident.EmailVerified || ident.DisplayName != "User" {
		t.Errorf("identity details: %+v", ident)
	}
}

func TestGoogleExchanger_BadCode(t *testing.T) {
	srv := fakeProvider(t, http.StatusOK, `{}`)
	g := newTestExchanger(srv)

	if _, err := g.Exchange(context.Background(), "bad-code", ""); err != ErrExchangeFailed {
		t.Errorf("bad code: want ErrExchangeFailed, got %v", err)
	}
}

func TestGoogleExchanger_UserinfoFailures(t *testing.T) {
	srv := fakeProvider(t, http.StatusInternalServerError, `{}`)
	g := newTestExchanger(srv)
	if _, err := g.Exchange(context.Background(), "good-code", ""); err != ErrExchangeFailed {
		t.Errorf("userinfo 500: want ErrExchangeFailed, got %v", err)
	}

	// An identity without a stable subject is unusable.
	srv2 := fakeProvider(t, http.StatusOK, `{"email":"user@example.com"}`)
	g2 := newTestExchanger(srv2)
	if _, err := g2.Exchange(context.Background(), "good-code", ""); err != ErrExchangeFailed {
		t.Errorf("missing sub: want ErrExchangeFailed, got %v", err)
	}
}
