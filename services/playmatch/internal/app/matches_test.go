package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"playmatch/pkg/domain"
	"playmatch/pkg/store"
)

func TestCreateMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sched := domain.AvailabilitySchedule{"friday": {"night"}}
	alice := env.user(t, "user_alice", gamer("Competitive", "Voz", 4), sched)
	bob := env.user(t, "user_bob", gamer("Competitive", "Voz", 4), sched)

	m, err := env.app.CreateMatch(ctx, alice, bob.ID)
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	if !strings.HasPrefix(m.ID, "match_") || m.User1ID != alice.ID || m.User2ID != bob.ID {
		t.Fatalf("unexpected match: %+v", m)
	}
	if m.Status != domain.MatchPending || m.Score != 100 || len(m.Reasons) != 4 {
		t.Fatalf("unexpected match scoring: %+v", m)
	}

	again, err := env.app.CreateMatch(ctx, alice, bob.ID)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if again.ID == m.ID {
		t.Fatalf("expected a second, distinct match record")
	}

	_, err = env.app.CreateMatch(ctx, alice, "user_ghost")
	wantErr(t, err, ErrUserNotFound)
}

func TestCreateMatchWithIncompleteProfile(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "user_alice", nil, nil)
	bob := env.user(t, "user_bob", gamer("Casual", "Voz", 3), nil)

	m, err := env.app.CreateMatch(context.Background(), alice, bob.ID)
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	if m.Score != 0 || len(m.Reasons) != 1 || m.Reasons[0] != "incomplete profiles" {
		t.Fatalf("unexpected match: %+v", m)
	}
}

func TestActOnMatchLikeOpensChat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "user_alice", nil, nil)
	bob := env.user(t, "user_bob", nil, nil)
	env.match(t, "match_1", alice.ID, bob.ID, domain.MatchPending, testNow)

	out, err := env.app.ActOnMatch(ctx, bob, "match_1", "like")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if out.Status != domain.MatchAccepted || out.ChatID == "" || out.Message != "Match accepted" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	chat, ok, _ := env.store.GetChatByMatch(ctx, "match_1")
	if !ok || chat.ID != out.ChatID || len(chat.Messages) != 0 {
		t.Fatalf("expected empty chat %s, got %+v ok=%v", out.ChatID, chat, ok)
	}

	_, err = env.app.ActOnMatch(ctx, alice, "match_1", "like")
	wantErr(t, err, ErrMatchDecided)
	_, err = env.app.ActOnMatch(ctx, alice, "match_1", "skip")
	wantErr(t, err, ErrMatchDecided)
}

func TestActOnMatchSkipRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "user_alice", nil, nil)
	env.match(t, "match_1", alice.ID, "user_bob", domain.MatchPending, testNow)

	out, err := env.app.ActOnMatch(ctx, alice, "match_1", "skip")
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if out.Status != domain.MatchRejected || out.Message != "Match rejected" || out.ChatID != "" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if _, ok, _ := env.store.GetChatByMatch(ctx, "match_1"); ok {
		t.Fatalf("rejected match must not get a chat")
	}
}

func TestActOnMatchValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "user_alice", nil, nil)
	mallory := env.user(t, "user_mallory", nil, nil)
	env.match(t, "match_1", alice.ID, "user_bob", domain.MatchPending, testNow)

	for _, action := range []string{"LIKE", "superlike", ""} {
		_, err := env.app.ActOnMatch(ctx, alice, "match_1", action)
		wantErr(t, err, ErrInvalidAction)
	}
	// action is checked before the match exists
	_, err := env.app.ActOnMatch(ctx, alice, "match_missing", "maybe")
	wantErr(t, err, ErrInvalidAction)

	_, err = env.app.ActOnMatch(ctx, alice, "match_missing", "like")
	wantErr(t, err, ErrMatchNotFound)

	_, err = env.app.ActOnMatch(ctx, mallory, "match_1", "like")
	wantErr(t, err, ErrForbidden)

	m, _, _ := env.store.GetMatch(ctx, "match_1")
	if m.Status != domain.MatchPending {
		t.Fatalf("failed actions must not change status, got %s", m.Status)
	}
}

func TestActOnMatchEitherParticipant(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "user_alice", nil, nil)
	env.match(t, "match_1", "user_bob", alice.ID, domain.MatchPending, testNow.Add(-time.Hour))

	if _, err := env.app.ActOnMatch(context.Background(), alice, "match_1", "skip"); err != nil {
		t.Fatalf("second slot participant should be able to act: %v", err)
	}
}

// staleMatchStore reports every match as pending, as a reader racing a
// concurrent decision would see it.
type staleMatchStore struct {
	*store.MemoryStore
}

func (s staleMatchStore) GetMatch(ctx context.Context, id string) (domain.Match, bool, error) {
	m, ok, err := s.MemoryStore.GetMatch(ctx, id)
	m.Status = domain.MatchPending
	return m, ok, err
}

func TestActOnMatchConcurrentDecisionConflicts(t *testing.T) {
	mem := store.NewMemoryStore()
	a, err := New(Config{Store: staleMatchStore{mem}, Sessions: mem, Now: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	ctx := context.Background()
	alice := domain.User{ID: "user_alice", Email: "alice@example.com"}
	m := domain.Match{ID: "match_1", User1ID: alice.ID, User2ID: "user_bob", Reasons: []string{}, Status: domain.MatchAccepted, CreatedAt: testNow}
	if err := mem.SaveMatch(ctx, m); err != nil {
		t.Fatalf("save match: %v", err)
	}

	for _, action := range []string{"skip", "like"} {
		_, err := a.ActOnMatch(ctx, alice, "match_1", action)
		wantErr(t, err, ErrMatchDecided)
	}
	got, _, _ := mem.GetMatch(ctx, "match_1")
	if got.Status != domain.MatchAccepted {
		t.Fatalf("decided match must keep its status, got %s", got.Status)
	}
	if _, ok, _ := mem.GetChatByMatch(ctx, "match_1"); ok {
		t.Fatalf("conflicting like must not open a chat")
	}
}
