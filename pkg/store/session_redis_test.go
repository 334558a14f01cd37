package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"playmatch/pkg/domain"
)

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", 24*time.Hour)
	now := time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	sess := domain.Session{Token: "tok-1", UserID: "user_a", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	if err := s.SaveSession(ctx, sess); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if ttl := redis.TTL(sessionKeyPrefix + "tok-1"); ttl != 25*time.Hour {
		t.Fatalf("expected ttl of expiry plus grace, got %v", ttl)
	}

	got, ok, err := s.GetSession(ctx, "tok-1")
	if err != nil || !ok {
		t.Fatalf("get session: ok=%v err=%v", ok, err)
	}
	if got.UserID != "user_a" || !got.ExpiresAt.Equal(sess.ExpiresAt) || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := s.DeleteSession(ctx, "tok-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetSession(ctx, "tok-1"); err != nil || ok {
		t.Fatalf("expected missing session, ok=%v err=%v", ok, err)
	}
}

func TestRedisSessionStoreKeepsExpiredRecordDuringGrace(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Hour)
	now := time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	sess := domain.Session{Token: "tok-2", UserID: "user_a", ExpiresAt: now.Add(time.Minute), CreatedAt: now}
	if err := s.SaveSession(ctx, sess); err != nil {
		t.Fatalf("save session: %v", err)
	}
	redis.FastForward(2 * time.Minute)

	got, ok, err := s.GetSession(ctx, "tok-2")
	if err != nil || !ok {
		t.Fatalf("expected record to survive past expiry, ok=%v err=%v", ok, err)
	}
	if !got.Expired(now.Add(2 * time.Minute)) {
		t.Fatalf("expected the record to report expiry")
	}

	redis.FastForward(time.Hour)
	if _, ok, _ := s.GetSession(ctx, "tok-2"); ok {
		t.Fatalf("expected record to be evicted after grace")
	}
}

func TestRedisSessionStoreReportsRedisErrors(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Hour)
	redis.Close()
	if _, _, err := s.GetSession(context.Background(), "tok"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}
