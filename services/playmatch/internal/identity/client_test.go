package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExchangeSendsSessionHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Session-ID"); got != "sess-1" {
			t.Fatalf("unexpected session header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p-1","email":" ana@example.com ","name":"Ana","picture":"https://img/ana.png","session_token":"tok-ana"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "https://login.example/")
	p, err := c.Exchange(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if p.Email != "ana@example.com" || p.Name != "Ana" || p.SessionToken != "tok-ana" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.Picture == nil || *p.Picture != "https://img/ana.png" {
		t.Fatalf("unexpected picture: %v", p.Picture)
	}
}

func TestExchangeMapsProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown session", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").Exchange(context.Background(), "sess-x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || !strings.Contains(apiErr.Message, "unknown session") {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestExchangeRejectsIncompleteData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"email":"ana@example.com"}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "").Exchange(context.Background(), "sess-1"); err == nil {
		t.Fatalf("expected error for missing session token")
	}
	if _, err := NewClient(srv.URL, "").Exchange(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty session id")
	}
}

func TestLoginURLEncodesRedirect(t *testing.T) {
	c := NewClient("", "https://auth.example.com/")
	got := c.LoginURL("https://app.example.com/profile?x=1")
	want := "https://auth.example.com/?redirect=https%3A%2F%2Fapp.example.com%2Fprofile%3Fx%3D1"
	if got != want {
		t.Fatalf("login url = %q, want %q", got, want)
	}
}
