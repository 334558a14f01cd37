package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"playmatch/pkg/domain"
	"playmatch/services/playmatch/internal/identity"
)

func TestAuthCallbackCreatesUserAndSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pic := "https://img.test/ana.png"
	env.idp.profiles["sess-1"] = identity.Profile{Email: "ana@example.com", Name: "Ana", Picture: &pic, SessionToken: "tok-ana"}

	user, sess, err := env.app.AuthCallback(ctx, "sess-1")
	if err != nil {
		t.Fatalf("auth callback: %v", err)
	}
	if !strings.HasPrefix(user.ID, "user_") || len(user.ID) != len("user_")+12 {
		t.Fatalf("unexpected user id %q", user.ID)
	}
	if user.HasProfile() || user.Availability == nil || len(user.Availability) != 0 {
		t.Fatalf("new user should have no profile and an empty schedule: %+v", user)
	}
	if sess.Token != "tok-ana" || sess.UserID != user.ID {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if !sess.ExpiresAt.Equal(testNow.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", sess.ExpiresAt)
	}

	resolved, err := env.app.Resolve(ctx, "tok-ana", "")
	if err != nil || resolved.ID != user.ID {
		t.Fatalf("resolve after callback: %v %+v", err, resolved)
	}
}

func TestAuthCallbackRefreshesExistingUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	existing := env.user(t, "user_ana", gamer("Casual", "Voz", 3), domain.AvailabilitySchedule{"monday": {"night"}})
	env.idp.profiles["sess-2"] = identity.Profile{Email: existing.Email, Name: "Ana Maria", SessionToken: "tok-2"}

	user, _, err := env.app.AuthCallback(ctx, "sess-2")
	if err != nil {
		t.Fatalf("auth callback: %v", err)
	}
	if user.ID != existing.ID || user.Name != "Ana Maria" {
		t.Fatalf("expected refreshed existing user, got %+v", user)
	}
	stored, _, _ := env.store.GetUserByID(ctx, existing.ID)
	if !stored.HasProfile() || len(stored.Availability["monday"]) != 1 {
		t.Fatalf("profile must survive a login: %+v", stored)
	}
}

func TestAuthCallbackProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.app.AuthCallback(context.Background(), "sess-unknown")
	wantErr(t, err, ErrIdentityExchange)

	_, _, err = env.app.AuthCallback(context.Background(), " ")
	wantErr(t, err, ErrIdentityExchange)
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.idp.profiles["sess-1"] = identity.Profile{Email: "ana@example.com", Name: "Ana", SessionToken: "tok-ana"}
	if _, _, err := env.app.AuthCallback(ctx, "sess-1"); err != nil {
		t.Fatalf("auth callback: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := env.app.Logout(ctx, "tok-ana"); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
	}
	_, err := env.app.Resolve(ctx, "tok-ana", "")
	wantErr(t, err, ErrInvalidSession)
}

func TestAuthURL(t *testing.T) {
	env := newTestEnv(t)
	got, err := env.app.AuthURL("https://app.test/cb")
	if err != nil || got != "https://auth.test/?redirect=https://app.test/cb" {
		t.Fatalf("unexpected auth url %q err=%v", got, err)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "user_ana", nil, nil)

	p := domain.NewGamingProfile()
	p.Games = nil
	updated, err := env.app.UpdateProfile(context.Background(), u, p, nil)
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if !updated.HasProfile() || updated.GamingProfile.Games == nil || updated.Availability == nil {
		t.Fatalf("unexpected updated user: %+v", updated)
	}

	_, err = env.app.UpdateProfile(context.Background(), domain.User{ID: "user_ghost"}, p, nil)
	wantErr(t, err, ErrUserNotFound)
}
