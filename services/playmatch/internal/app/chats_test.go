package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"playmatch/pkg/domain"
)

func TestChatLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "user_alice", nil, nil)
	bob := env.user(t, "user_bob", nil, nil)
	env.match(t, "match_1", alice.ID, bob.ID, domain.MatchPending, testNow)

	_, err := env.app.GetChat(ctx, alice, "match_1")
	wantErr(t, err, ErrChatNotFound)
	_, err = env.app.PostMessage(ctx, alice, "match_1", "hi")
	wantErr(t, err, ErrChatNotFound)

	if _, err := env.app.ActOnMatch(ctx, bob, "match_1", "like"); err != nil {
		t.Fatalf("like: %v", err)
	}

	msg, err := env.app.PostMessage(ctx, alice, "match_1", "gg wp")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if !strings.HasPrefix(msg.ID, "msg_") || msg.SenderID != alice.ID || !msg.Timestamp.Equal(testNow) {
		t.Fatalf("unexpected message: %+v", msg)
	}
	*env.clock = testNow.Add(time.Minute)
	if _, err := env.app.PostMessage(ctx, bob, "match_1", "rematch?"); err != nil {
		t.Fatalf("post reply: %v", err)
	}

	chat, err := env.app.GetChat(ctx, bob, "match_1")
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if len(chat.Messages) != 2 || chat.Messages[0].Text != "gg wp" || chat.Messages[1].SenderID != bob.ID {
		t.Fatalf("unexpected messages: %+v", chat.Messages)
	}
}

func TestChatAccessChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "user_alice", nil, nil)
	mallory := env.user(t, "user_mallory", nil, nil)
	env.match(t, "match_1", alice.ID, "user_bob", domain.MatchPending, testNow)

	_, err := env.app.GetChat(ctx, alice, "match_missing")
	wantErr(t, err, ErrMatchNotFound)
	_, err = env.app.GetChat(ctx, mallory, "match_1")
	wantErr(t, err, ErrForbidden)
	_, err = env.app.PostMessage(ctx, mallory, "match_1", "hey")
	wantErr(t, err, ErrForbidden)
}

func TestChatRepairedForAcceptedMatchWithoutChat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "user_alice", nil, nil)
	env.match(t, "match_1", alice.ID, "user_bob", domain.MatchAccepted, testNow)

	chat, err := env.app.GetChat(ctx, alice, "match_1")
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if !strings.HasPrefix(chat.ID, "chat_") || chat.MatchID != "match_1" {
		t.Fatalf("unexpected repaired chat: %+v", chat)
	}
	again, err := env.app.GetChat(ctx, alice, "match_1")
	if err != nil || again.ID != chat.ID {
		t.Fatalf("repair must happen once, got %s then %s (err=%v)", chat.ID, again.ID, err)
	}
}

func TestChatNotRepairedForRejectedMatch(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "user_alice", nil, nil)
	env.match(t, "match_1", alice.ID, "user_bob", domain.MatchRejected, testNow)

	_, err := env.app.PostMessage(context.Background(), alice, "match_1", "hello?")
	wantErr(t, err, ErrChatNotFound)
}
