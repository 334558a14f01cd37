package app

import "errors"

var (
	// ErrUnauthenticated means the request carried no session token.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrInvalidSession means the token matches no session record.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionExpired means the session record is past its expiry.
	ErrSessionExpired = errors.New("session expired")

	ErrUserNotFound  = errors.New("user not found")
	ErrMatchNotFound = errors.New("match not found")
	ErrChatNotFound  = errors.New("chat not found")
	ErrForbidden     = errors.New("not authorized")

	ErrInvalidAction = errors.New("invalid action")
	ErrInvalidRating = errors.New("ratings must be between 1 and 5")
	// ErrMatchDecided rejects actions on an accepted or rejected match.
	ErrMatchDecided = errors.New("match already decided")

	ErrIdentityExchange = errors.New("invalid session id")
	ErrAvatarNotFound   = errors.New("avatar not found")
	ErrAvatarsDisabled  = errors.New("avatar storage not configured")
	ErrInvalidAvatar    = errors.New("invalid avatar image")
)
