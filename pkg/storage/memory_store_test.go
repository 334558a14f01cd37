package storage

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMemoryStorePutPresignDelete(t *testing.T) {
	s := NewMemoryStore("http://objects.local")
	ctx := context.Background()

	if err := s.Put(ctx, "avatars/user_a/x.png", strings.NewReader("png!"), 4, "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}
	obj, ok := s.Get("avatars/user_a/x.png")
	if !ok || string(obj.Data) != "png!" || obj.ContentType != "image/png" {
		t.Fatalf("unexpected object: %+v ok=%v", obj, ok)
	}

	url, err := s.PresignGet(ctx, "avatars/user_a/x.png", 15*time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(url, "http://objects.local/") || !strings.HasSuffix(url, "?expires=900") {
		t.Fatalf("unexpected url %q", url)
	}

	if err := s.Delete(ctx, "avatars/user_a/x.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.PresignGet(ctx, "avatars/user_a/x.png", time.Minute); err == nil {
		t.Fatalf("expected presign of deleted object to fail")
	}
}

func TestMemoryStoreRejectsShortBody(t *testing.T) {
	s := NewMemoryStore("http://objects.local")
	if err := s.Put(context.Background(), "k", strings.NewReader("abc"), 10, "image/png"); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}
