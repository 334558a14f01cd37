package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"playmatch/internal/util"
	"playmatch/pkg/domain"
	"playmatch/pkg/store"
)

// AuthURL returns the identity provider login page for redirect.
func (a *App) AuthURL(redirect string) (string, error) {
	if a.identity == nil {
		return "", errors.New("identity provider not configured")
	}
	return a.identity.LoginURL(redirect), nil
}

// AuthCallback completes a provider login: the user is upserted by email and
// the provider's session token is stored as the local session.
func (a *App) AuthCallback(ctx context.Context, providerSessionID string) (domain.User, domain.Session, error) {
	if a.identity == nil {
		return domain.User{}, domain.Session{}, errors.New("identity provider not configured")
	}
	if strings.TrimSpace(providerSessionID) == "" {
		return domain.User{}, domain.Session{}, ErrIdentityExchange
	}
	profile, err := a.identity.Exchange(ctx, providerSessionID)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("identity exchange failed", "err", err)
		return domain.User{}, domain.Session{}, fmt.Errorf("%w: %v", ErrIdentityExchange, err)
	}

	now := a.clock()
	user, found, err := a.store.GetUserByEmail(ctx, profile.Email)
	if err != nil {
		return domain.User{}, domain.Session{}, fmt.Errorf("get user: %w", err)
	}
	if found {
		user.Name = profile.Name
		user.Picture = profile.Picture
	} else {
		user = domain.User{
			ID:           store.NewID(store.PrefixUser),
			Email:        profile.Email,
			Name:         profile.Name,
			Picture:      profile.Picture,
			Availability: domain.AvailabilitySchedule{},
			CreatedAt:    now,
		}
	}
	if err := a.store.SaveUser(ctx, user); err != nil {
		return domain.User{}, domain.Session{}, fmt.Errorf("save user: %w", err)
	}

	sess := domain.Session{
		Token:     profile.SessionToken,
		UserID:    user.ID,
		ExpiresAt: now.Add(a.sessionTTL),
		CreatedAt: now,
	}
	if err := a.sessions.SaveSession(ctx, sess); err != nil {
		return domain.User{}, domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	util.LoggerFromContext(ctx).Info("user signed in", "user_id", user.ID, "new_user", !found)
	return user, sess, nil
}

// Logout deletes the session record for token. Unknown tokens are ignored.
func (a *App) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := a.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
