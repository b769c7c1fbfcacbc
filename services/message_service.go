//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-core/domain"
	"chat-core/errors"
	"chat-core/repositories"
)

// Page window defaults; the limit cap protects the scan-based pagination.
const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 100
)

type CreateMessageInput struct {
	ConversationID string
	Content        string
	Type           domain.MessageType
	Metadata       *domain.MessageMetadata
	ReplyToID      string
}

type IMessageService interface {
	Create(senderID string, in CreateMessageInput) (domain.MessageView, error)
	FindVisible(conversationID, userID string, page, limit int) (domain.MessagePage, error)
	GetUnreadCount(conversationID, userID string) (int, error)
	MarkAllRead(conversationID, userID string) (int, error)
}

// MessageService implements message creation and per-viewer visible history.
// Visibility is the intersection of two independent soft-delete mechanisms:
// delete-for-me tombstones and the per-user conversation cutoff.
type MessageService struct {
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	users         repositories.IUserRepository
	log           *slog.Logger
}

func NewMessageService(
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	log *slog.Logger) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		log:           log,
	}
}

// Create persists a message and returns it joined with sender and reply
// preview data, so the caller can display it without follow-up queries.
// The preview update runs after the row is durable.
func (s *MessageService) Create(senderID string, in CreateMessageInput) (domain.MessageView, error) {
	if _, err := s.conversations.FindByID(in.ConversationID); err != nil {
		return domain.MessageView{}, err
	}

	member, err := s.conversations.IsMember(in.ConversationID, senderID)
	if err != nil {
		return domain.MessageView{}, err
	}
	if !member {
		return domain.MessageView{}, errors.Forbidden("you are not a member of this conversation")
	}

	if in.ReplyToID != "" {
		replyTo, err := s.messages.Get(in.ReplyToID)
		if err != nil || replyTo.ConversationID != in.ConversationID {
			return domain.MessageView{}, errors.BadRequest("reply message not found")
		}
	}

	msgType := in.Type
	if msgType == "" {
		msgType = domain.TypeText
	} else if !domain.ValidMessageType(msgType) {
		return domain.MessageView{}, errors.BadRequest("unknown message type")
	}

	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		SenderID:       senderID,
		Type:           msgType,
		Content:        in.Content,
		Metadata:       in.Metadata,
		ReplyToID:      in.ReplyToID,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.messages.Store(msg); err != nil {
		return domain.MessageView{}, err
	}

	if err := s.conversations.RecordLastMessage(in.ConversationID, domain.LastMessagePreview{
		Content:  msg.Content,
		Type:     msg.Type,
		SenderID: msg.SenderID,
	}); err != nil {
		return domain.MessageView{}, err
	}

	return s.toView(msg), nil
}

// FindVisible returns one page of the caller's visible history. Pagination
// walks from the most recent message backward, but each returned page is
// ordered oldest first so clients render it top to bottom.
func (s *MessageService) FindVisible(conversationID, userID string, page, limit int) (domain.MessagePage, error) {
	member, err := s.conversations.IsMember(conversationID, userID)
	if err != nil {
		return domain.MessagePage{}, err
	}
	if !member {
		return domain.MessagePage{}, errors.Forbidden("you are not a member of this conversation")
	}

	page, limit = clampWindow(page, limit)

	visible, err := s.visibleMessages(conversationID, userID)
	if err != nil {
		return domain.MessagePage{}, err
	}

	total := len(visible)
	end := total - (page-1)*limit
	start := end - limit
	if start < 0 {
		start = 0
	}
	var window []domain.Message
	if end > 0 {
		window = visible[start:end]
	}

	return domain.MessagePage{
		Messages: lo.Map(window, func(m domain.Message, _ int) domain.MessageView {
			return s.toView(m)
		}),
		Total:   total,
		HasMore: page*limit < total,
	}, nil
}

// GetUnreadCount counts visible messages authored by the other participant
// that have not been read yet.
func (s *MessageService) GetUnreadCount(conversationID, userID string) (int, error) {
	visible, err := s.visibleMessages(conversationID, userID)
	if err != nil {
		return 0, err
	}
	return lo.CountBy(visible, func(m domain.Message) bool {
		return m.SenderID != userID && !m.IsRead
	}), nil
}

// MarkAllRead flips the read flag on every unread visible message not
// authored by the caller. The flag only ever transitions false to true, so
// repeated calls converge and never "unread" anything.
func (s *MessageService) MarkAllRead(conversationID, userID string) (int, error) {
	cutoff, err := s.conversations.GetDeletionMarker(conversationID, userID)
	if err != nil {
		return 0, err
	}
	tombstones, err := s.messages.TombstonesFor(userID)
	if err != nil {
		return 0, err
	}

	return s.messages.UpdateByConversation(conversationID, func(m *domain.Message) bool {
		if m.SenderID == userID || m.IsRead || !isVisible(*m, tombstones, cutoff) {
			return false
		}
		m.IsRead = true
		return true
	})
}

// visibleMessages loads the conversation ascending and applies the caller's
// tombstones and cutoff.
func (s *MessageService) visibleMessages(conversationID, userID string) ([]domain.Message, error) {
	cutoff, err := s.conversations.GetDeletionMarker(conversationID, userID)
	if err != nil {
		return nil, err
	}
	tombstones, err := s.messages.TombstonesFor(userID)
	if err != nil {
		return nil, err
	}
	all, err := s.messages.ListByConversation(conversationID)
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(m domain.Message, _ int) bool {
		return isVisible(m, tombstones, cutoff)
	}), nil
}

// isVisible hides tombstoned messages and everything created at or before the
// conversation cutoff.
func isVisible(m domain.Message, tombstones map[string]struct{}, cutoff *time.Time) bool {
	if _, deleted := tombstones[m.ID]; deleted {
		return false
	}
	return cutoff == nil || m.CreatedAt.After(*cutoff)
}

func clampWindow(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// toView joins the minimal sender profile and the reply preview onto a
// message. A missing profile leaves the sender null rather than failing the
// whole view.
func (s *MessageService) toView(msg domain.Message) domain.MessageView {
	view := domain.MessageView{
		ID:             msg.ID,
		Type:           msg.Type,
		Content:        msg.Content,
		Metadata:       msg.Metadata,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Sender:         s.senderOf(msg.SenderID),
		ReplyToID:      msg.ReplyToID,
		IsRead:         msg.IsRead,
		IsDelivered:    msg.IsDelivered,
		CreatedAt:      msg.CreatedAt,
	}

	if msg.ReplyToID != "" {
		if replyTo, err := s.messages.Get(msg.ReplyToID); err == nil {
			view.ReplyTo = &domain.ReplyPreview{
				ID:        replyTo.ID,
				Type:      replyTo.Type,
				Content:   replyTo.Content,
				SenderID:  replyTo.SenderID,
				Sender:    s.senderOf(replyTo.SenderID),
				CreatedAt: replyTo.CreatedAt,
			}
		}
	}
	return view
}

func (s *MessageService) senderOf(userID string) *domain.Sender {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if !stderrors.Is(err, errors.ErrNotFound) {
			s.log.Warn("sender lookup failed", "user_id", userID, "error", err)
		}
		return nil
	}
	return &domain.Sender{ID: user.ID, Name: user.Name, Avatar: user.Avatar}
}
