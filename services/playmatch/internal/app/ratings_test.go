package app

import (
	"context"
	"strings"
	"testing"

	"playmatch/pkg/domain"
)

func TestSubmitRatingValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "user_alice", nil, nil)
	bob := env.user(t, "user_bob", nil, nil)

	for _, scores := range [][3]int{{0, 3, 3}, {3, 6, 3}, {3, 3, -1}} {
		_, err := env.app.SubmitRating(ctx, alice, bob.ID, scores[0], scores[1], scores[2])
		wantErr(t, err, ErrInvalidRating)
	}
	_, err := env.app.SubmitRating(ctx, alice, "user_ghost", 3, 3, 3)
	wantErr(t, err, ErrUserNotFound)

	r, err := env.app.SubmitRating(ctx, alice, bob.ID, 1, 5, 3)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.HasPrefix(r.ID, "rating_") || r.RaterID != alice.ID || r.RatedUserID != bob.ID {
		t.Fatalf("unexpected rating: %+v", r)
	}
	if _, err := env.app.SubmitRating(ctx, alice, alice.ID, 5, 5, 5); err != nil {
		t.Fatalf("self rating should be accepted: %v", err)
	}
}

func TestRatingSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "user_alice", nil, nil)
	bob := env.user(t, "user_bob", nil, nil)

	empty, err := env.app.RatingSummary(ctx, bob.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if empty != (domain.RatingSummary{UserID: bob.ID}) {
		t.Fatalf("expected zero summary, got %+v", empty)
	}

	for _, s := range [][3]int{{5, 4, 3}, {4, 4, 4}, {4, 5, 5}} {
		if _, err := env.app.SubmitRating(ctx, alice, bob.ID, s[0], s[1], s[2]); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	got, err := env.app.RatingSummary(ctx, bob.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := domain.RatingSummary{UserID: bob.ID, AvgCommunication: 4.3, AvgRespect: 4.3, AvgTeamwork: 4, TotalRatings: 3}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
