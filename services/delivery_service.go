//go:generate go run go.uber.org/mock/mockgen -source=delivery_service.go -destination=../mocks/mock_delivery_service.go -package=mocks
package services

import (
	"context"
	"log/slog"
	"time"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/errors"
	"chat-core/repositories"
)

type IDeliveryService interface {
	DeleteMessage(ctx context.Context, messageID, userID string, deleteType domain.DeleteType) (domain.DeleteResult, error)
	ConversationsWithUnread(userID string) ([]domain.ConversationView, error)
}

// DeliveryService implements the two-phase deletion protocol and the
// unread-annotated conversation listing used for connect payloads.
type DeliveryService struct {
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	messageReader IMessageService
	files         contract.FileStore
	log           *slog.Logger
}

func NewDeliveryService(
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	messageReader IMessageService,
	files contract.FileStore,
	log *slog.Logger) *DeliveryService {
	return &DeliveryService{
		conversations: conversations,
		messages:      messages,
		messageReader: messageReader,
		files:         files,
		log:           log,
	}
}

// DeleteMessage routes to the delete-for-me or delete-for-all path. Both are
// guarded by membership; only delete-for-all is destructive and only the
// original sender may take it.
func (s *DeliveryService) DeleteMessage(ctx context.Context, messageID, userID string, deleteType domain.DeleteType) (domain.DeleteResult, error) {
	msg, err := s.messages.Get(messageID)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	member, err := s.conversations.IsMember(msg.ConversationID, userID)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	if !member {
		return domain.DeleteResult{}, errors.Forbidden("you are not a member of this conversation")
	}

	if deleteType == domain.DeleteForAll {
		return s.deleteForAll(ctx, msg, userID)
	}
	return s.deleteForMe(msg, userID)
}

// deleteForMe upserts the caller's tombstone. Deleting an already-tombstoned
// message is a no-op success.
func (s *DeliveryService) deleteForMe(msg domain.Message, userID string) (domain.DeleteResult, error) {
	if err := s.messages.AddTombstone(msg.ID, userID); err != nil {
		return domain.DeleteResult{}, err
	}
	return domain.DeleteResult{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		DeleteType:     domain.DeleteForMe,
		DeletedAt:      time.Now().UTC(),
	}, nil
}

// deleteForAll removes the message row and every tombstone referencing it.
// For non-text messages the stored file (and thumbnail, if any) is deleted
// first, best effort: an orphaned file is an acceptable degraded outcome, an
// orphaned message is not, so file-store failures never abort the removal.
func (s *DeliveryService) deleteForAll(ctx context.Context, msg domain.Message, userID string) (domain.DeleteResult, error) {
	if msg.SenderID != userID {
		return domain.DeleteResult{}, errors.Forbidden("you can only delete your own messages for everyone")
	}

	if msg.Type != domain.TypeText && msg.Content != "" {
		if !s.files.DeleteFile(ctx, msg.Content) {
			s.log.Warn("file delete failed", "message_id", msg.ID, "reference", msg.Content)
		}
		if msg.Metadata != nil && msg.Metadata.Thumbnail != "" {
			if !s.files.DeleteFile(ctx, msg.Metadata.Thumbnail) {
				s.log.Warn("thumbnail delete failed", "message_id", msg.ID, "reference", msg.Metadata.Thumbnail)
			}
		}
	}

	if err := s.messages.DeleteWithTombstones(msg.ID); err != nil {
		return domain.DeleteResult{}, err
	}

	return domain.DeleteResult{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		DeleteType:     domain.DeleteForAll,
		DeletedAt:      time.Now().UTC(),
	}, nil
}

// ConversationsWithUnread annotates each of the user's conversations with its
// live unread count, most recently active first.
func (s *DeliveryService) ConversationsWithUnread(userID string) ([]domain.ConversationView, error) {
	conversations, err := s.conversations.ListForUser(userID)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		unread, err := s.messageReader.GetUnreadCount(conv.ID, userID)
		if err != nil {
			return nil, err
		}
		views = append(views, domain.ConversationView{Conversation: conv, UnreadCount: unread})
	}
	return views, nil
}
