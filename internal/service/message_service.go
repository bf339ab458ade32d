package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
)

const maxMessagePageSize = 100

// MessageService handles sending, listing, read receipts, and per-user or
// global message deletion. Listing never mutates read state; clients call
// MarkRead explicitly.
type MessageService struct {
	messages domain.MessageRepository
	chats    domain.ChatRepository
	posts    domain.PostRepository
	tx       domain.TxRunner
	pub      Publisher
	log      zerolog.Logger
}

func NewMessageService(
	messages domain.MessageRepository,
	chats domain.ChatRepository,
	posts domain.PostRepository,
	tx domain.TxRunner,
	pub Publisher,
	log zerolog.Logger,
) *MessageService {
	return &MessageService{messages: messages, chats: chats, posts: posts, tx: tx, pub: pub, log: log}
}

type SendMessageInput struct {
	Content  string
	MediaURL string
	Type     string
	PostID   *primitive.ObjectID
}

// Send appends a message to the chat, updates the chat's last-message
// pointer and unread counters, resurfaces the chat for anyone who hid it,
// and broadcasts the message to the chat room.
func (s *MessageService) Send(ctx context.Context, chatID, sender primitive.ObjectID, in SendMessageInput) (*domain.Message, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, fmt.Errorf("%w: chat not found", domain.ErrNotFound)
	}
	if !domain.ContainsID(chat.Participants, sender) {
		return nil, fmt.Errorf("%w: not a participant of this chat", domain.ErrForbidden)
	}

	msg, err := s.buildMessage(ctx, chat, sender, in)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.messages.Create(ctx, msg); err != nil {
			return err
		}
		if err := s.chats.SetLastMessage(ctx, chatID, msg.ID, msg.CreatedAt); err != nil {
			return err
		}
		if err := s.chats.IncrementUnread(ctx, chatID, sender); err != nil {
			return err
		}
		if len(chat.HiddenBy) > 0 {
			return s.chats.ClearHidden(ctx, chatID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	s.pub.Publish(chatID.Hex(), EventNewMessage, msg)
	return msg, nil
}

func (s *MessageService) buildMessage(ctx context.Context, chat *domain.Chat, sender primitive.ObjectID, in SendMessageInput) (*domain.Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" && in.MediaURL == "" && in.PostID == nil {
		return nil, fmt.Errorf("%w: a message needs content, media, or a shared post", domain.ErrInvalidInput)
	}

	msg := &domain.Message{
		Chat:    chat.ID,
		Sender:  sender,
		Content: in.Content,
	}
	if !chat.IsGroup {
		for _, p := range chat.Participants {
			if p != sender {
				receiver := p
				msg.Receiver = &receiver
				break
			}
		}
	}

	switch {
	case in.PostID != nil:
		post, err := s.posts.GetByID(ctx, *in.PostID)
		if err != nil {
			return nil, err
		}
		if post == nil {
			return nil, fmt.Errorf("%w: shared post not found", domain.ErrNotFound)
		}
		msg.Type = domain.MessagePost
		msg.Post = in.PostID
	case in.MediaURL != "":
		switch in.Type {
		case domain.MessageImage, domain.MessageVideo, domain.MessageFile:
			msg.Type = in.Type
		default:
			return nil, fmt.Errorf("%w: media messages need type image, video, or file", domain.ErrInvalidInput)
		}
		msg.MediaURL = in.MediaURL
	default:
		msg.Type = domain.MessageText
	}
	return msg, nil
}

// List returns a page of the chat's messages, oldest first, excluding
// messages the requester deleted for themselves.
func (s *MessageService) List(ctx context.Context, chatID, requester primitive.ObjectID, page, limit int) ([]*domain.Message, error) {
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
	if limit > maxMessagePageSize {
		limit = maxMessagePageSize
	}
	return s.messages.ListForChat(ctx, chatID, requester, page, limit)
}

// MarkRead zeroes the requester's unread counter and stamps them onto the
// read receipts of every message they have not read.
func (s *MessageService) MarkRead(ctx context.Context, chatID, requester primitive.ObjectID) error {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return fmt.Errorf("%w: chat not found", domain.ErrNotFound)
	}
	if !domain.ContainsID(chat.Participants, requester) {
		return fmt.Errorf("%w: not a participant of this chat", domain.ErrForbidden)
	}
	if err := s.chats.ResetUnread(ctx, chatID, requester); err != nil {
		return err
	}
	return s.messages.MarkReadInChat(ctx, chatID, requester)
}

// Delete removes a message either for the requester alone or, when the
// requester is the sender and forEveryone is set, tombstones it for all
// participants and notifies the room.
func (s *MessageService) Delete(ctx context.Context, msgID, requester primitive.ObjectID, forEveryone bool) error {
	msg, err := s.messages.GetByID(ctx, msgID)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("%w: message not found", domain.ErrNotFound)
	}
	chat, err := s.chats.GetByID(ctx, msg.Chat)
	if err != nil {
		return err
	}
	if chat == nil || !domain.ContainsID(chat.Participants, requester) {
		return fmt.Errorf("%w: not a participant of this chat", domain.ErrForbidden)
	}

	if !forEveryone {
		return s.messages.AddDeletedFor(ctx, msgID, requester)
	}

	if msg.Sender != requester {
		return fmt.Errorf("%w: only the sender can delete for everyone", domain.ErrForbidden)
	}
	if err := s.messages.SetDeleted(ctx, msgID); err != nil {
		return err
	}
	if chat.LastMessage != nil && *chat.LastMessage == msgID {
		s.refreshLastMessage(ctx, msg.Chat)
	}
	s.pub.Publish(msg.Chat.Hex(), EventMessagesDeleted, map[string]string{"messageId": msgID.Hex()})
	return nil
}

func (s *MessageService) refreshLastMessage(ctx context.Context, chatID primitive.ObjectID) {
	last, err := s.messages.LastForChat(ctx, chatID)
	if err != nil {
		s.log.Error().Err(err).Str("chat", chatID.Hex()).Msg("recompute last message")
		return
	}
	if last == nil {
		if err := s.chats.ClearLastMessage(ctx, chatID); err != nil {
			s.log.Error().Err(err).Str("chat", chatID.Hex()).Msg("clear last message")
		}
		return
	}
	if err := s.chats.SetLastMessage(ctx, chatID, last.ID, last.CreatedAt); err != nil {
		s.log.Error().Err(err).Str("chat", chatID.Hex()).Msg("update last message")
	}
}
