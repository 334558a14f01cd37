package store

import (
	"context"
	"errors"

	"playmatch/pkg/domain"
)

var (
	// ErrNotFound is returned by mutations that target a missing record.
	ErrNotFound = errors.New("store: record not found")
	// ErrNotPending is returned when a status change targets a match that
	// is no longer pending.
	ErrNotPending = errors.New("store: match not pending")
)

// Store defines persistence operations for users, matches, chats and ratings.
// Lookups report absence with a false flag rather than an error.
type Store interface {
	// users
	SaveUser(ctx context.Context, u domain.User) error
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	UpdateProfile(ctx context.Context, userID string, profile domain.GamingProfile, schedule domain.AvailabilitySchedule) error
	SetAvatarKey(ctx context.Context, userID, key string) error
	// ListCandidates returns up to limit users other than excludeID that
	// have a gaming profile, in storage order.
	ListCandidates(ctx context.Context, excludeID string, limit int) ([]domain.User, error)

	// matches
	SaveMatch(ctx context.Context, m domain.Match) error
	GetMatch(ctx context.Context, id string) (domain.Match, bool, error)
	// MatchesBetween returns every match for the pair in either slot order,
	// oldest first.
	MatchesBetween(ctx context.Context, a, b string) ([]domain.Match, error)
	// SetMatchStatus moves a pending match to status. A match that already
	// left pending yields ErrNotPending and is left untouched.
	SetMatchStatus(ctx context.Context, id string, status domain.MatchStatus) error
	// AcceptMatch marks a pending match accepted and creates its chat, with
	// the same ErrNotPending guard as SetMatchStatus.
	AcceptMatch(ctx context.Context, matchID string, chat domain.Chat) error

	// chats
	// EnsureChat creates chat unless one already exists for its match and
	// returns the stored chat.
	EnsureChat(ctx context.Context, chat domain.Chat) (domain.Chat, error)
	GetChatByMatch(ctx context.Context, matchID string) (domain.Chat, bool, error)
	AppendMessage(ctx context.Context, chatID string, msg domain.Message) error

	// ratings
	SaveRating(ctx context.Context, r domain.Rating) error
	RatingTotals(ctx context.Context, userID string) (domain.RatingTotals, error)
}

// SessionStore persists session records keyed by token.
type SessionStore interface {
	SaveSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, token string) (domain.Session, bool, error)
	DeleteSession(ctx context.Context, token string) error
}
