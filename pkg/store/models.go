package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"playmatch/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID            string `gorm:"primaryKey"`
	Email         string `gorm:"uniqueIndex;not null"`
	Name          string `gorm:"not null"`
	Picture       *string
	AvatarKey     string
	HasProfile    bool `gorm:"not null;default:false;index"`
	GamingProfile datatypes.JSON
	Availability  datatypes.JSON
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time
}

type SessionModel struct {
	Token     string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type MatchModel struct {
	ID        string         `gorm:"primaryKey"`
	User1ID   string         `gorm:"not null;index:idx_match_pair,priority:1"`
	User2ID   string         `gorm:"not null;index:idx_match_pair,priority:2"`
	Score     float64        `gorm:"not null"`
	Reasons   datatypes.JSON `gorm:"not null"`
	Status    string         `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

type ChatModel struct {
	ID        string    `gorm:"primaryKey"`
	MatchID   string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// ChatMessageModel keeps one row per message; Seq preserves append order.
type ChatMessageModel struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	ID        string    `gorm:"uniqueIndex;not null"`
	ChatID    string    `gorm:"not null;index"`
	SenderID  string    `gorm:"not null"`
	Text      string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"not null"`
}

type RatingModel struct {
	ID            string    `gorm:"primaryKey"`
	RaterID       string    `gorm:"not null;index"`
	RatedUserID   string    `gorm:"not null;index"`
	Communication int       `gorm:"not null"`
	Respect       int       `gorm:"not null"`
	Teamwork      int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func userToModel(u domain.User) (UserModel, error) {
	model := UserModel{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Picture:    u.Picture,
		AvatarKey:  u.AvatarKey,
		HasProfile: u.HasProfile(),
		CreatedAt:  u.CreatedAt.UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	var err error
	if u.GamingProfile != nil {
		if model.GamingProfile, err = toJSON(u.GamingProfile); err != nil {
			return UserModel{}, fmt.Errorf("encode profile: %w", err)
		}
	}
	if model.Availability, err = toJSON(scheduleOrEmpty(u.Availability)); err != nil {
		return UserModel{}, fmt.Errorf("encode schedule: %w", err)
	}
	return model, nil
}

func userFromModel(m UserModel) (domain.User, error) {
	u := domain.User{
		ID:        m.ID,
		Email:     m.Email,
		Name:      m.Name,
		Picture:   m.Picture,
		AvatarKey: m.AvatarKey,
		CreatedAt: m.CreatedAt.UTC(),
	}
	if m.HasProfile && len(m.GamingProfile) > 0 {
		var p domain.GamingProfile
		if err := json.Unmarshal(m.GamingProfile, &p); err != nil {
			return domain.User{}, fmt.Errorf("decode profile of %s: %w", m.ID, err)
		}
		u.GamingProfile = &p
	}
	u.Availability = domain.AvailabilitySchedule{}
	if len(m.Availability) > 0 {
		if err := json.Unmarshal(m.Availability, &u.Availability); err != nil {
			return domain.User{}, fmt.Errorf("decode schedule of %s: %w", m.ID, err)
		}
	}
	return u, nil
}

func matchToModel(m domain.Match) (MatchModel, error) {
	reasons, err := toJSON(reasonsOrEmpty(m.Reasons))
	if err != nil {
		return MatchModel{}, fmt.Errorf("encode reasons: %w", err)
	}
	return MatchModel{
		ID:        m.ID,
		User1ID:   m.User1ID,
		User2ID:   m.User2ID,
		Score:     m.Score,
		Reasons:   reasons,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}

func matchFromModel(m MatchModel) (domain.Match, error) {
	match := domain.Match{
		ID:        m.ID,
		User1ID:   m.User1ID,
		User2ID:   m.User2ID,
		Score:     m.Score,
		Status:    domain.MatchStatus(m.Status),
		CreatedAt: m.CreatedAt.UTC(),
	}
	if len(m.Reasons) > 0 {
		if err := json.Unmarshal(m.Reasons, &match.Reasons); err != nil {
			return domain.Match{}, fmt.Errorf("decode reasons of %s: %w", m.ID, err)
		}
	}
	match.Reasons = reasonsOrEmpty(match.Reasons)
	if err := match.Validate(); err != nil {
		return domain.Match{}, err
	}
	return match, nil
}

func messageToModel(chatID string, msg domain.Message) ChatMessageModel {
	return ChatMessageModel{
		ID:        msg.ID,
		ChatID:    chatID,
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp.UTC(),
	}
}

func messageFromModel(m ChatMessageModel) domain.Message {
	return domain.Message{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		Timestamp: m.Timestamp.UTC(),
	}
}

func ratingToModel(r domain.Rating) RatingModel {
	return RatingModel{
		ID:            r.ID,
		RaterID:       r.RaterID,
		RatedUserID:   r.RatedUserID,
		Communication: r.Communication,
		Respect:       r.Respect,
		Teamwork:      r.Teamwork,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

func sessionFromModel(m SessionModel) domain.Session {
	return domain.Session{
		Token:     m.Token,
		UserID:    m.UserID,
		ExpiresAt: m.ExpiresAt.UTC(),
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func toJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func scheduleOrEmpty(s domain.AvailabilitySchedule) domain.AvailabilitySchedule {
	if s == nil {
		return domain.AvailabilitySchedule{}
	}
	return s
}

func reasonsOrEmpty(r []string) []string {
	if r == nil {
		return []string{}
	}
	return r
}
