package app

import (
	"context"
	"fmt"
	"strings"

	"playmatch/pkg/domain"
)

// Resolve maps request credentials to the acting user. The cookie token
// wins over an "Authorization: Bearer" header. Expired sessions are
// reported but left in place.
func (a *App) Resolve(ctx context.Context, cookieToken, authHeader string) (domain.User, error) {
	token := strings.TrimSpace(cookieToken)
	if token == "" {
		token = BearerToken(authHeader)
	}
	if token == "" {
		return domain.User{}, ErrUnauthenticated
	}
	sess, ok, err := a.sessions.GetSession(ctx, token)
	if err != nil {
		return domain.User{}, fmt.Errorf("get session: %w", err)
	}
	if !ok {
		return domain.User{}, ErrInvalidSession
	}
	if sess.Expired(a.clock()) {
		return domain.User{}, ErrSessionExpired
	}
	user, ok, err := a.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// BearerToken extracts the token from an Authorization header value. The
// scheme must be spelled exactly "Bearer".
func BearerToken(header string) string {
	const prefix = "Bearer "
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
