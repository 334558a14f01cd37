package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"playmatch/internal/util"
	"playmatch/pkg/domain"
	"playmatch/pkg/store"
)

var avatarTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// UploadAvatar stores an avatar image under avatars/<userID>/ and records its
// key on the user. The previous avatar object is removed.
func (a *App) UploadAvatar(ctx context.Context, user domain.User, filename, contentType string, r io.Reader, size int64) (domain.User, error) {
	if a.objects == nil {
		return domain.User{}, ErrAvatarsDisabled
	}
	ext := strings.ToLower(filepath.Ext(filename))
	expected, ok := avatarTypes[ext]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: unsupported extension %q", ErrInvalidAvatar, ext)
	}
	if contentType = strings.TrimSpace(contentType); contentType == "" || contentType == "application/octet-stream" {
		contentType = expected
	}
	if !strings.HasPrefix(contentType, "image/") {
		return domain.User{}, fmt.Errorf("%w: content type %q", ErrInvalidAvatar, contentType)
	}
	if size <= 0 || size > a.maxAvatarBytes {
		return domain.User{}, fmt.Errorf("%w: size %d", ErrInvalidAvatar, size)
	}

	key := path.Join("avatars", user.ID, store.NewID(store.PrefixAvatar)+ext)
	if err := a.objects.Put(ctx, key, r, size, contentType); err != nil {
		return domain.User{}, fmt.Errorf("store avatar: %w", err)
	}
	if err := a.store.SetAvatarKey(ctx, user.ID, key); err != nil {
		_ = a.objects.Delete(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("record avatar: %w", err)
	}
	if user.AvatarKey != "" && user.AvatarKey != key {
		if err := a.objects.Delete(ctx, user.AvatarKey); err != nil {
			util.LoggerFromContext(ctx).Warn("remove old avatar failed", "user_id", user.ID, "key", user.AvatarKey, "err", err)
		}
	}
	user.AvatarKey = key
	return user, nil
}

// AvatarURL returns a short-lived download URL for the user's avatar.
func (a *App) AvatarURL(ctx context.Context, userID string) (string, error) {
	if a.objects == nil {
		return "", ErrAvatarsDisabled
	}
	user, ok, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return "", ErrUserNotFound
	}
	if user.AvatarKey == "" {
		return "", ErrAvatarNotFound
	}
	url, err := a.objects.PresignGet(ctx, user.AvatarKey, a.avatarURLTTL)
	if err != nil {
		return "", fmt.Errorf("presign avatar: %w", err)
	}
	return url, nil
}
