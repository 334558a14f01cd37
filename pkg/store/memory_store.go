package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"playmatch/pkg/domain"
)

// MemoryStore keeps every record in-process. It backs tests and the
// single-node "memory" driver.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User // key: user ID
	email    map[string]string      // email -> user ID
	order    []string               // user insertion order
	matches  map[string]domain.Match
	mOrder   []string
	chats    map[string]domain.Chat // key: chat ID
	chatByM  map[string]string      // match ID -> chat ID
	ratings  []domain.Rating
	sessions map[string]domain.Session
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		email:    make(map[string]string),
		matches:  make(map[string]domain.Match),
		chats:    make(map[string]domain.Chat),
		chatByM:  make(map[string]string),
		sessions: make(map[string]domain.Session),
	}
}

// SaveUser registers or replaces a user and tracks insertion order.
func (m *MemoryStore) SaveUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, exists := m.users[u.ID]; exists {
		if prev.Email != u.Email {
			delete(m.email, prev.Email)
		}
	} else {
		m.order = append(m.order, u.ID)
	}
	m.users[u.ID] = cloneUser(u)
	m.email[u.Email] = u.ID
	return nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(_ context.Context, id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return cloneUser(u), ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, exists := m.users[id]
	return cloneUser(u), exists, nil
}

// UpdateProfile replaces the gaming profile and availability of a user.
func (m *MemoryStore) UpdateProfile(_ context.Context, userID string, profile domain.GamingProfile, schedule domain.AvailabilitySchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("update profile %s: %w", userID, ErrNotFound)
	}
	u.GamingProfile = &profile
	u.Availability = schedule
	m.users[userID] = cloneUser(u)
	return nil
}

// SetAvatarKey records the object key of a user's avatar.
func (m *MemoryStore) SetAvatarKey(_ context.Context, userID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("set avatar %s: %w", userID, ErrNotFound)
	}
	u.AvatarKey = key
	m.users[userID] = u
	return nil
}

// ListCandidates returns profiled users other than excludeID in insertion order.
func (m *MemoryStore) ListCandidates(_ context.Context, excludeID string, limit int) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, min(limit, len(m.order)))
	for _, id := range m.order {
		if len(res) >= limit {
			break
		}
		u := m.users[id]
		if id == excludeID || !u.HasProfile() {
			continue
		}
		res = append(res, cloneUser(u))
	}
	return res, nil
}

// SaveMatch stores or replaces a match record.
func (m *MemoryStore) SaveMatch(_ context.Context, match domain.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.matches[match.ID]; !exists {
		m.mOrder = append(m.mOrder, match.ID)
	}
	match.Reasons = slices.Clone(match.Reasons)
	m.matches[match.ID] = match
	return nil
}

// GetMatch retrieves a match by ID.
func (m *MemoryStore) GetMatch(_ context.Context, id string) (domain.Match, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	match, ok := m.matches[id]
	match.Reasons = slices.Clone(match.Reasons)
	return match, ok, nil
}

// MatchesBetween returns every match for the pair in either slot order,
// oldest first.
func (m *MemoryStore) MatchesBetween(_ context.Context, a, b string) ([]domain.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.Match{}
	for _, id := range m.mOrder {
		match := m.matches[id]
		if !(match.User1ID == a && match.User2ID == b) && !(match.User1ID == b && match.User2ID == a) {
			continue
		}
		match.Reasons = slices.Clone(match.Reasons)
		out = append(out, match)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SetMatchStatus moves a pending match to status.
func (m *MemoryStore) SetMatchStatus(_ context.Context, id string, status domain.MatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[id]
	if !ok {
		return fmt.Errorf("set match status %s: %w", id, ErrNotFound)
	}
	if match.Status != domain.MatchPending {
		return fmt.Errorf("set match status %s: %w", id, ErrNotPending)
	}
	match.Status = status
	m.matches[id] = match
	return nil
}

// AcceptMatch marks the match accepted, then creates its chat.
func (m *MemoryStore) AcceptMatch(ctx context.Context, matchID string, chat domain.Chat) error {
	if err := m.SetMatchStatus(ctx, matchID, domain.MatchAccepted); err != nil {
		return err
	}
	_, err := m.EnsureChat(ctx, chat)
	return err
}

// EnsureChat creates chat unless its match already has one.
func (m *MemoryStore) EnsureChat(_ context.Context, chat domain.Chat) (domain.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.chatByM[chat.MatchID]; ok {
		return cloneChat(m.chats[id]), nil
	}
	chat = cloneChat(chat)
	m.chats[chat.ID] = chat
	m.chatByM[chat.MatchID] = chat.ID
	return cloneChat(chat), nil
}

// GetChatByMatch returns the chat attached to a match.
func (m *MemoryStore) GetChatByMatch(_ context.Context, matchID string) (domain.Chat, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.chatByM[matchID]
	if !ok {
		return domain.Chat{}, false, nil
	}
	return cloneChat(m.chats[id]), true, nil
}

// AppendMessage appends msg to the chat's message list.
func (m *MemoryStore) AppendMessage(_ context.Context, chatID string, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return fmt.Errorf("append message %s: %w", chatID, ErrNotFound)
	}
	chat.Messages = append(chat.Messages, msg)
	m.chats[chatID] = chat
	return nil
}

// SaveRating records a rating.
func (m *MemoryStore) SaveRating(_ context.Context, r domain.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings = append(m.ratings, r)
	return nil
}

// RatingTotals sums every rating received by userID.
func (m *MemoryStore) RatingTotals(_ context.Context, userID string) (domain.RatingTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var totals domain.RatingTotals
	for _, r := range m.ratings {
		if r.RatedUserID == userID {
			totals.Add(r)
		}
	}
	return totals, nil
}

// SaveSession stores a session record.
func (m *MemoryStore) SaveSession(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

// GetSession resolves a token to its session record.
func (m *MemoryStore) GetSession(_ context.Context, token string) (domain.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	return s, ok, nil
}

// DeleteSession removes a session record.
func (m *MemoryStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func cloneUser(u domain.User) domain.User {
	if u.GamingProfile != nil {
		p := *u.GamingProfile
		p.Games = slices.Clone(p.Games)
		u.GamingProfile = &p
	}
	if u.Availability != nil {
		sched := make(domain.AvailabilitySchedule, len(u.Availability))
		for day, slots := range u.Availability {
			sched[day] = slices.Clone(slots)
		}
		u.Availability = sched
	}
	return u
}

func cloneChat(c domain.Chat) domain.Chat {
	c.Messages = slices.Clone(c.Messages)
	if c.Messages == nil {
		c.Messages = []domain.Message{}
	}
	return c
}
