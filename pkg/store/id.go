package store

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes per entity kind.
const (
	PrefixUser    = "user"
	PrefixMatch   = "match"
	PrefixChat    = "chat"
	PrefixMessage = "msg"
	PrefixRating  = "rating"
	PrefixAvatar  = "avatar"
)

// NewID returns "<prefix>_" followed by 12 hex characters of a random UUID.
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + hex[:12]
}

