package app

import (
	"context"
	"errors"
	"fmt"

	"playmatch/internal/util"
	"playmatch/pkg/domain"
	"playmatch/pkg/store"
)

// GetChat returns the chat of a match the requester takes part in.
func (a *App) GetChat(ctx context.Context, requester domain.User, matchID string) (domain.Chat, error) {
	return a.chatFor(ctx, requester, matchID)
}

// PostMessage appends a message from requester to the match's chat.
func (a *App) PostMessage(ctx context.Context, requester domain.User, matchID, text string) (domain.Message, error) {
	chat, err := a.chatFor(ctx, requester, matchID)
	if err != nil {
		return domain.Message{}, err
	}
	msg := domain.Message{
		ID:        store.NewID(store.PrefixMessage),
		SenderID:  requester.ID,
		Text:      text,
		Timestamp: a.clock(),
	}
	if err := a.store.AppendMessage(ctx, chat.ID, msg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Message{}, ErrChatNotFound
		}
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// chatFor checks access to the match and loads its chat. An accepted match
// whose chat write was lost gets the chat recreated here.
func (a *App) chatFor(ctx context.Context, requester domain.User, matchID string) (domain.Chat, error) {
	m, ok, err := a.store.GetMatch(ctx, matchID)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("get match: %w", err)
	}
	if !ok {
		return domain.Chat{}, ErrMatchNotFound
	}
	if !m.HasParticipant(requester.ID) {
		return domain.Chat{}, ErrForbidden
	}
	chat, ok, err := a.store.GetChatByMatch(ctx, m.ID)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("get chat: %w", err)
	}
	if ok {
		return chat, nil
	}
	if m.Status != domain.MatchAccepted {
		return domain.Chat{}, ErrChatNotFound
	}
	chat, err = a.store.EnsureChat(ctx, domain.Chat{
		ID:        store.NewID(store.PrefixChat),
		MatchID:   m.ID,
		Messages:  []domain.Message{},
		CreatedAt: a.clock(),
	})
	if err != nil {
		return domain.Chat{}, fmt.Errorf("repair chat: %w", err)
	}
	util.LoggerFromContext(ctx).Warn("recreated missing chat for accepted match", "match_id", m.ID, "chat_id", chat.ID)
	return chat, nil
}
