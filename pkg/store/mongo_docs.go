package store

import (
	"time"

	"playmatch/pkg/domain"
)

// Document shapes stored by MongoStore. Field names follow the public JSON
// wire format so documents can be inspected directly.
type userDoc struct {
	UserID        string                `bson:"user_id"`
	Email         string                `bson:"email"`
	Name          string                `bson:"name"`
	Picture       *string               `bson:"picture"`
	AvatarKey     string                `bson:"avatar_key,omitempty"`
	GamingProfile *domain.GamingProfile `bson:"gaming_profile"`
	Availability  map[string][]string   `bson:"availability_schedule"`
	CreatedAt     time.Time             `bson:"created_at"`
}

type sessionDoc struct {
	Token     string    `bson:"session_token"`
	UserID    string    `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

type matchDoc struct {
	MatchID   string    `bson:"match_id"`
	User1ID   string    `bson:"user1_id"`
	User2ID   string    `bson:"user2_id"`
	Score     float64   `bson:"compatibility_score"`
	Reasons   []string  `bson:"reasons"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
}

type messageDoc struct {
	MessageID string    `bson:"message_id"`
	SenderID  string    `bson:"sender_id"`
	Text      string    `bson:"text"`
	Timestamp time.Time `bson:"timestamp"`
}

type chatDoc struct {
	ChatID    string       `bson:"chat_id"`
	MatchID   string       `bson:"match_id"`
	Messages  []messageDoc `bson:"messages"`
	CreatedAt time.Time    `bson:"created_at"`
}

type ratingDoc struct {
	RatingID      string    `bson:"rating_id"`
	RaterID       string    `bson:"rater_id"`
	RatedUserID   string    `bson:"rated_user_id"`
	Communication int       `bson:"communication"`
	Respect       int       `bson:"respect"`
	Teamwork      int       `bson:"teamwork"`
	CreatedAt     time.Time `bson:"created_at"`
}

type ratingTotalsDoc struct {
	Count         int `bson:"count"`
	Communication int `bson:"communication"`
	Respect       int `bson:"respect"`
	Teamwork      int `bson:"teamwork"`
}

func userToDoc(u domain.User) userDoc {
	return userDoc{
		UserID:        u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Picture:       u.Picture,
		AvatarKey:     u.AvatarKey,
		GamingProfile: u.GamingProfile,
		Availability:  scheduleOrEmpty(u.Availability),
		CreatedAt:     u.CreatedAt.UTC(),
	}
}

func userFromDoc(d userDoc) domain.User {
	sched := domain.AvailabilitySchedule(d.Availability)
	return domain.User{
		ID:            d.UserID,
		Email:         d.Email,
		Name:          d.Name,
		Picture:       d.Picture,
		AvatarKey:     d.AvatarKey,
		GamingProfile: d.GamingProfile,
		Availability:  scheduleOrEmpty(sched),
		CreatedAt:     d.CreatedAt.UTC(),
	}
}

func sessionToDoc(s domain.Session) sessionDoc {
	return sessionDoc{
		Token:     s.Token,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt.UTC(),
		CreatedAt: s.CreatedAt.UTC(),
	}
}

func sessionFromDoc(d sessionDoc) domain.Session {
	return domain.Session{
		Token:     d.Token,
		UserID:    d.UserID,
		ExpiresAt: d.ExpiresAt.UTC(),
		CreatedAt: d.CreatedAt.UTC(),
	}
}

func matchToDoc(m domain.Match) matchDoc {
	return matchDoc{
		MatchID:   m.ID,
		User1ID:   m.User1ID,
		User2ID:   m.User2ID,
		Score:     m.Score,
		Reasons:   reasonsOrEmpty(m.Reasons),
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func matchFromDoc(d matchDoc) (domain.Match, error) {
	m := domain.Match{
		ID:        d.MatchID,
		User1ID:   d.User1ID,
		User2ID:   d.User2ID,
		Score:     d.Score,
		Reasons:   reasonsOrEmpty(d.Reasons),
		Status:    domain.MatchStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
	}
	if err := m.Validate(); err != nil {
		return domain.Match{}, err
	}
	return m, nil
}

func messageToDoc(m domain.Message) messageDoc {
	return messageDoc{
		MessageID: m.ID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		Timestamp: m.Timestamp.UTC(),
	}
}

func chatToDoc(c domain.Chat) chatDoc {
	msgs := make([]messageDoc, 0, len(c.Messages))
	for _, m := range c.Messages {
		msgs = append(msgs, messageToDoc(m))
	}
	return chatDoc{
		ChatID:    c.ID,
		MatchID:   c.MatchID,
		Messages:  msgs,
		CreatedAt: c.CreatedAt.UTC(),
	}
}

func chatFromDoc(d chatDoc) domain.Chat {
	msgs := make([]domain.Message, 0, len(d.Messages))
	for _, m := range d.Messages {
		msgs = append(msgs, domain.Message{
			ID:        m.MessageID,
			SenderID:  m.SenderID,
			Text:      m.Text,
			Timestamp: m.Timestamp.UTC(),
		})
	}
	return domain.Chat{
		ID:        d.ChatID,
		MatchID:   d.MatchID,
		Messages:  msgs,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

func ratingToDoc(r domain.Rating) ratingDoc {
	return ratingDoc{
		RatingID:      r.ID,
		RaterID:       r.RaterID,
		RatedUserID:   r.RatedUserID,
		Communication: r.Communication,
		Respect:       r.Respect,
		Teamwork:      r.Teamwork,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}
