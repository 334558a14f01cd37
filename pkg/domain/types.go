package domain

import (
	"fmt"
	"strings"
	"time"
)

type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchAccepted MatchStatus = "accepted"
	MatchRejected MatchStatus = "rejected"
)

// ParseMatchStatus maps a stored status string onto the closed set.
func ParseMatchStatus(s string) (MatchStatus, bool) {
	switch MatchStatus(s) {
	case MatchPending, MatchAccepted, MatchRejected:
		return MatchStatus(s), true
	default:
		return "", false
	}
}

// Terminal reports whether no further transition is allowed.
func (s MatchStatus) Terminal() bool {
	return s == MatchAccepted || s == MatchRejected
}

type MatchAction string

const (
	ActionLike MatchAction = "like"
	ActionSkip MatchAction = "skip"
)

// ParseMatchAction accepts only the exact lower-case action names.
func ParseMatchAction(s string) (MatchAction, bool) {
	switch MatchAction(s) {
	case ActionLike, ActionSkip:
		return MatchAction(s), true
	default:
		return "", false
	}
}

// Default gaming profile values, matching what clients send for a fresh profile.
const (
	DefaultPlatform      = "PC"
	DefaultStyle         = "Casual"
	DefaultCommunication = "Texto"
	DefaultTolerance     = 3
	DefaultGoal          = "Diversão"

	MinTolerance = 1
	MaxTolerance = 5
)

type GamingProfile struct {
	Games         []string `json:"games" bson:"games"`
	Platform      string   `json:"platform" bson:"platform"`
	Style         string   `json:"style" bson:"style"`
	Communication string   `json:"communication" bson:"communication"`
	Tolerance     int      `json:"tolerance" bson:"tolerance"`
	Goal          string   `json:"goal" bson:"goal"`
}

// NewGamingProfile returns a profile populated with the defaults.
func NewGamingProfile() GamingProfile {
	return GamingProfile{
		Games:         []string{},
		Platform:      DefaultPlatform,
		Style:         DefaultStyle,
		Communication: DefaultCommunication,
		Tolerance:     DefaultTolerance,
		Goal:          DefaultGoal,
	}
}

// AvailabilitySchedule maps a day name to the time-slot labels a user can play.
type AvailabilitySchedule map[string][]string

// Slots returns the set of slot labels for a day.
func (s AvailabilitySchedule) Slots(day string) map[string]struct{} {
	out := make(map[string]struct{}, len(s[day]))
	for _, slot := range s[day] {
		out[slot] = struct{}{}
	}
	return out
}

type User struct {
	ID            string               `json:"user_id"`
	Email         string               `json:"email"`
	Name          string               `json:"name"`
	Picture       *string              `json:"picture"`
	AvatarKey     string               `json:"-"`
	GamingProfile *GamingProfile       `json:"gaming_profile"`
	Availability  AvailabilitySchedule `json:"availability_schedule"`
	CreatedAt     time.Time            `json:"created_at"`
}

// HasProfile reports whether the user filled in a gaming profile.
func (u User) HasProfile() bool {
	return u.GamingProfile != nil
}

type Session struct {
	Token     string    `json:"session_token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session expiry lies strictly before now.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt.UTC().Before(now.UTC())
}

type Match struct {
	ID        string      `json:"match_id"`
	User1ID   string      `json:"user1_id"`
	User2ID   string      `json:"user2_id"`
	Score     float64     `json:"compatibility_score"`
	Reasons   []string    `json:"reasons"`
	Status    MatchStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// HasParticipant reports whether userID sits in either slot.
func (m Match) HasParticipant(userID string) bool {
	return userID != "" && (m.User1ID == userID || m.User2ID == userID)
}

// Validate rejects records that could not have been written by this service.
func (m Match) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("match: empty id")
	}
	if m.User1ID == "" || m.User2ID == "" {
		return fmt.Errorf("match %s: missing participant", m.ID)
	}
	if _, ok := ParseMatchStatus(string(m.Status)); !ok {
		return fmt.Errorf("match %s: unknown status %q", m.ID, m.Status)
	}
	if m.Score < 0 || m.Score > 100 {
		return fmt.Errorf("match %s: score %.1f out of range", m.ID, m.Score)
	}
	return nil
}

type Message struct {
	ID        string    `json:"message_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Chat struct {
	ID        string    `json:"chat_id"`
	MatchID   string    `json:"match_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating sub-score bounds.
const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

type Rating struct {
	ID            string    `json:"rating_id"`
	RaterID       string    `json:"rater_id"`
	RatedUserID   string    `json:"rated_user_id"`
	Communication int       `json:"communication"`
	Respect       int       `json:"respect"`
	Teamwork      int       `json:"teamwork"`
	CreatedAt     time.Time `json:"created_at"`
}

// ValidRatingScore reports whether v lies in the accepted sub-score range.
func ValidRatingScore(v int) bool {
	return v >= MinRatingScore && v <= MaxRatingScore
}

// Validate checks the three sub-scores.
func (r Rating) Validate() error {
	for name, v := range map[string]int{
		"communication": r.Communication,
		"respect":       r.Respect,
		"teamwork":      r.Teamwork,
	} {
		if !ValidRatingScore(v) {
			return fmt.Errorf("rating %s: %s=%d out of range", r.ID, name, v)
		}
	}
	return nil
}

// RatingTotals holds sums over every rating a user received.
type RatingTotals struct {
	Count         int
	Communication int
	Respect       int
	Teamwork      int
}

// Add folds one rating into the totals.
func (t *RatingTotals) Add(r Rating) {
	t.Count++
	t.Communication += r.Communication
	t.Respect += r.Respect
	t.Teamwork += r.Teamwork
}

type RatingSummary struct {
	UserID           string  `json:"user_id"`
	AvgCommunication float64 `json:"average_communication"`
	AvgRespect       float64 `json:"average_respect"`
	AvgTeamwork      float64 `json:"average_teamwork"`
	TotalRatings     int     `json:"total_ratings"`
}

// Candidate is one entry of a ranked suggestion list.
type Candidate struct {
	User    User     `json:"user"`
	Score   float64  `json:"compatibility_score"`
	Reasons []string `json:"reasons"`
	MatchID *string  `json:"match_id"`
}
