package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
)

// ChatService manages conversations. Direct chats are deduplicated by a
// normalized participant pair key backed by a unique index, so two users
// opening a chat with each other concurrently converge on one document.
type ChatService struct {
	chats domain.ChatRepository
	users domain.UserRepository
	log   zerolog.Logger
}

func NewChatService(chats domain.ChatRepository, users domain.UserRepository, log zerolog.Logger) *ChatService {
	return &ChatService{chats: chats, users: users, log: log}
}

// DirectPairKey normalizes an unordered user pair into the stable key used
// to deduplicate direct chats.
func DirectPairKey(a, b primitive.ObjectID) string {
	ah, bh := a.Hex(), b.Hex()
	if ah > bh {
		ah, bh = bh, ah
	}
	return ah + ":" + bh
}

// GetOrCreateDirect returns the direct chat between the two users, creating
// it when absent. A duplicate-key conflict from a concurrent create is
// resolved by refetching the winner.
func (s *ChatService) GetOrCreateDirect(ctx context.Context, actor, other primitive.ObjectID) (*domain.Chat, error) {
	if actor == other {
		return nil, fmt.Errorf("%w: cannot open a chat with yourself", domain.ErrInvalidInput)
	}
	peer, err := s.users.GetByID(ctx, other)
	if err != nil {
		return nil, err
	}
	if peer == nil {
		return nil, fmt.Errorf("%w: user not found", domain.ErrNotFound)
	}

	key := DirectPairKey(actor, other)
	chat, err := s.chats.FindDirectByPairKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if chat != nil {
		return s.unhideFor(ctx, chat, actor)
	}

	chat = &domain.Chat{
		IsGroup:      false,
		Participants: []primitive.ObjectID{actor, other},
		PairKey:      key,
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return s.chats.FindDirectByPairKey(ctx, key)
		}
		return nil, err
	}
	return chat, nil
}

// unhideFor resurfaces the chat for the reopening user only. Other
// participants who hid the chat keep it hidden until a new message arrives.
func (s *ChatService) unhideFor(ctx context.Context, chat *domain.Chat, userID primitive.ObjectID) (*domain.Chat, error) {
	if !domain.ContainsID(chat.HiddenBy, userID) {
		return chat, nil
	}
	if err := s.chats.UnhideFor(ctx, chat.ID, userID); err != nil {
		return nil, err
	}
	kept := make([]primitive.ObjectID, 0, len(chat.HiddenBy))
	for _, id := range chat.HiddenBy {
		if id != userID {
			kept = append(kept, id)
		}
	}
	chat.HiddenBy = kept
	return chat, nil
}

// Get returns the chat when the requester participates in it.
func (s *ChatService) Get(ctx context.Context, chatID, requester primitive.ObjectID) (*domain.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, fmt.Errorf("%w: chat not found", domain.ErrNotFound)
	}
	if !domain.ContainsID(chat.Participants, requester) {
		return nil, fmt.Errorf("%w: not a participant of this chat", domain.ErrForbidden)
	}
	return chat, nil
}

// List returns the requester's visible chats, most recently active first.
func (s *ChatService) List(ctx context.Context, userID primitive.ObjectID) ([]*domain.Chat, error) {
	return s.chats.ListForUser(ctx, userID)
}

// Hide removes the chat from the requester's list without deleting history.
// The chat resurfaces for them when a new message arrives.
func (s *ChatService) Hide(ctx context.Context, chatID, requester primitive.ObjectID) error {
	if _, err := s.Get(ctx, chatID, requester); err != nil {
		return err
	}
	return s.chats.SetHidden(ctx, chatID, requester)
}

// CanJoin reports whether the user participates in the chat. Used by the
// realtime gateway to gate room joins.
func (s *ChatService) CanJoin(ctx context.Context, chatID, userID primitive.ObjectID) bool {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		s.log.Error().Err(err).Str("chat", chatID.Hex()).Msg("room join check")
		return false
	}
	return chat != nil && domain.ContainsID(chat.Participants, userID)
}
