package app

import (
	"context"
	"errors"
	"time"

	"playmatch/pkg/storage"
	"playmatch/pkg/store"
	"playmatch/services/playmatch/internal/identity"
)

const (
	defaultSessionTTL     = 7 * 24 * time.Hour
	defaultAvatarURLTTL   = 15 * time.Minute
	defaultMaxAvatarBytes = 2 << 20
	defaultRankWorkers    = 8
)

// IdentityProvider resolves a provider login into profile data.
type IdentityProvider interface {
	LoginURL(redirect string) string
	Exchange(ctx context.Context, sessionID string) (identity.Profile, error)
}

// Config holds the collaborators and tunables of the application core.
type Config struct {
	Store    store.Store
	Sessions store.SessionStore
	Identity IdentityProvider
	// Objects stores avatars; nil disables avatar uploads.
	Objects storage.ObjectStore

	SessionTTL     time.Duration
	AvatarURLTTL   time.Duration
	MaxAvatarBytes int64
	RankWorkers    int
	Now            func() time.Time
}

// App implements the matchmaking operations on top of injected storage.
type App struct {
	store    store.Store
	sessions store.SessionStore
	identity IdentityProvider
	objects  storage.ObjectStore

	sessionTTL     time.Duration
	avatarURLTTL   time.Duration
	maxAvatarBytes int64
	rankWorkers    int
	now            func() time.Time
}

// New validates cfg and applies defaults.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.AvatarURLTTL <= 0 {
		cfg.AvatarURLTTL = defaultAvatarURLTTL
	}
	if cfg.MaxAvatarBytes <= 0 {
		cfg.MaxAvatarBytes = defaultMaxAvatarBytes
	}
	if cfg.RankWorkers <= 0 {
		cfg.RankWorkers = defaultRankWorkers
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &App{
		store:          cfg.Store,
		sessions:       cfg.Sessions,
		identity:       cfg.Identity,
		objects:        cfg.Objects,
		sessionTTL:     cfg.SessionTTL,
		avatarURLTTL:   cfg.AvatarURLTTL,
		maxAvatarBytes: cfg.MaxAvatarBytes,
		rankWorkers:    cfg.RankWorkers,
		now:            cfg.Now,
	}, nil
}

// SessionTTL is the lifetime given to new sessions.
func (a *App) SessionTTL() time.Duration {
	return a.sessionTTL
}

// MaxAvatarBytes is the largest accepted avatar upload.
func (a *App) MaxAvatarBytes() int64 {
	return a.maxAvatarBytes
}

func (a *App) clock() time.Time {
	return a.now().UTC()
}
