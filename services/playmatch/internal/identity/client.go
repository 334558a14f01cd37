// Package identity talks to the external OAuth identity provider that
// performs the actual Google login and hands back a provider session.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const sessionIDHeader = "X-Session-ID"

// Profile is the identity data returned for a completed provider login.
type Profile struct {
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Picture      *string `json:"picture"`
	SessionToken string  `json:"session_token"`
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity provider: %d %s", e.Status, e.Message)
}

// Client exchanges provider session ids for profiles.
type Client struct {
	sessionDataURL string
	loginURL       string
	httpClient     *http.Client
}

// NewClient builds a client. sessionDataURL is the provider endpoint that
// resolves a session id; loginURL is where browsers start the login.
func NewClient(sessionDataURL, loginURL string) *Client {
	return &Client{
		sessionDataURL: strings.TrimSpace(sessionDataURL),
		loginURL:       strings.TrimSpace(loginURL),
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

// LoginURL returns the provider login page that redirects back to redirect.
func (c *Client) LoginURL(redirect string) string {
	u, err := url.Parse(c.loginURL)
	if err != nil {
		return c.loginURL + "?redirect=" + url.QueryEscape(redirect)
	}
	q := u.Query()
	q.Set("redirect", redirect)
	u.RawQuery = q.Encode()
	return u.String()
}

// Exchange resolves a provider session id into the user's profile.
func (c *Client) Exchange(ctx context.Context, sessionID string) (Profile, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Profile{}, errors.New("identity provider: empty session id")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionDataURL, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set(sessionIDHeader, sessionID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("identity provider: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return Profile{}, &APIError{Status: resp.StatusCode, Message: msg}
	}
	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("identity provider: decode: %w", err)
	}
	p.Email = strings.TrimSpace(p.Email)
	if p.Email == "" || p.SessionToken == "" {
		return Profile{}, errors.New("identity provider: incomplete session data")
	}
	return p, nil
}
