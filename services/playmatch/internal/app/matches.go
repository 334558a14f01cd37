package app

import (
	"context"
	"errors"
	"fmt"

	"playmatch/internal/util"
	"playmatch/pkg/compat"
	"playmatch/pkg/domain"
	"playmatch/pkg/store"
)

// ActionOutcome is the result of a like or skip.
type ActionOutcome struct {
	MatchID string             `json:"match_id"`
	Status  domain.MatchStatus `json:"status"`
	Message string             `json:"message"`
	ChatID  string             `json:"chat_id,omitempty"`
}

// CreateMatch scores requester against target and stores a pending match
// with the requester in the first slot. Existing matches for the pair are
// not consulted.
func (a *App) CreateMatch(ctx context.Context, requester domain.User, targetID string) (domain.Match, error) {
	target, ok, err := a.store.GetUserByID(ctx, targetID)
	if err != nil {
		return domain.Match{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.Match{}, ErrUserNotFound
	}
	score, reasons := compat.Score(requester, target)
	m := domain.Match{
		ID:        store.NewID(store.PrefixMatch),
		User1ID:   requester.ID,
		User2ID:   target.ID,
		Score:     score,
		Reasons:   reasons,
		Status:    domain.MatchPending,
		CreatedAt: a.clock(),
	}
	if err := a.store.SaveMatch(ctx, m); err != nil {
		return domain.Match{}, fmt.Errorf("save match: %w", err)
	}
	return m, nil
}

// ActOnMatch applies like or skip to a pending match the requester takes
// part in. A like accepts the match and opens its chat.
func (a *App) ActOnMatch(ctx context.Context, requester domain.User, matchID, action string) (ActionOutcome, error) {
	act, ok := domain.ParseMatchAction(action)
	if !ok {
		return ActionOutcome{}, ErrInvalidAction
	}
	m, ok, err := a.store.GetMatch(ctx, matchID)
	if err != nil {
		return ActionOutcome{}, fmt.Errorf("get match: %w", err)
	}
	if !ok {
		return ActionOutcome{}, ErrMatchNotFound
	}
	if !m.HasParticipant(requester.ID) {
		return ActionOutcome{}, ErrForbidden
	}
	if m.Status.Terminal() {
		return ActionOutcome{}, ErrMatchDecided
	}

	logger := util.LoggerFromContext(ctx).With("match_id", m.ID, "user_id", requester.ID)
	switch act {
	case domain.ActionSkip:
		if err := a.store.SetMatchStatus(ctx, m.ID, domain.MatchRejected); err != nil {
			return ActionOutcome{}, a.matchWriteErr(err)
		}
		logger.Info("match rejected")
		return ActionOutcome{MatchID: m.ID, Status: domain.MatchRejected, Message: "Match rejected"}, nil
	default:
		chat := domain.Chat{
			ID:        store.NewID(store.PrefixChat),
			MatchID:   m.ID,
			Messages:  []domain.Message{},
			CreatedAt: a.clock(),
		}
		if err := a.store.AcceptMatch(ctx, m.ID, chat); err != nil {
			return ActionOutcome{}, a.matchWriteErr(err)
		}
		stored, ok, err := a.store.GetChatByMatch(ctx, m.ID)
		if err == nil && ok {
			chat = stored
		}
		logger.Info("match accepted", "chat_id", chat.ID)
		return ActionOutcome{MatchID: m.ID, Status: domain.MatchAccepted, Message: "Match accepted", ChatID: chat.ID}, nil
	}
}

func (a *App) matchWriteErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrMatchNotFound
	case errors.Is(err, store.ErrNotPending):
		return ErrMatchDecided
	}
	return fmt.Errorf("update match: %w", err)
}
