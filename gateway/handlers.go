package gateway

import (
	"context"
	"strings"
	"time"

	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
	"chat-core/services"
)

// handleStartConversation resolves or creates the conversation for the caller
// and the target user. Both participants' live connections join the broadcast
// group immediately, and the other party's devices are told on every start,
// existing conversation or not, so a freshly opened device learns about the
// thread the moment it is addressed.
func (g *Gateway) handleStartConversation(c *Conn, env envelope) error {
	var p startConversationPayload
	if err := decodePayload(env.Data, &p); err != nil {
		return err
	}
	if p.ToUserID == c.userID {
		return errors.BadRequest("cannot start a conversation with yourself")
	}

	conv, _, err := g.conversations.GetOrCreate(c.userID, p.ToUserID)
	if err != nil {
		return err
	}

	g.registry.JoinConversation(conv.ID, c.id)
	otherConns := g.registry.JoinUser(conv.ID, p.ToUserID)

	if len(otherConns) > 0 {
		g.publish(event.NewConversation{Conversation: conv, Conns: otherConns})
	}

	c.send(EvConversationStarted, conv)
	return nil
}

// handleSendMessage persists the message first, then publishes the fan-out
// event. The single fan-out worker preserves per-conversation order between
// the durable rows and the frames connections observe.
func (g *Gateway) handleSendMessage(c *Conn, env envelope) error {
	var p sendMessagePayload
	if err := decodePayload(env.Data, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.Content) == "" {
		return errors.BadRequest("message content cannot be empty")
	}

	view, err := g.messages.Create(c.userID, services.CreateMessageInput{
		ConversationID: p.ConversationID,
		Content:        p.Content,
		Type:           p.Type,
		Metadata:       p.Metadata,
		ReplyToID:      p.ReplyToID,
	})
	if err != nil {
		return err
	}

	g.publish(event.NewMessage{Message: view})
	return nil
}

type messagesLoadedPayload struct {
	ConversationID string               `json:"conversationId"`
	Messages       []domain.MessageView `json:"messages"`
	Total          int                  `json:"total"`
	Page           int                  `json:"page"`
	HasMore        bool                 `json:"hasMore"`
}

func (g *Gateway) handleGetMessages(c *Conn, env envelope) error {
	var p getMessagesPayload
	if err := decodePayload(env.Data, &p); err != nil {
		return err
	}

	page, err := g.messages.FindVisible(p.ConversationID, c.userID, p.Page, p.Limit)
	if err != nil {
		return err
	}

	effectivePage := p.Page
	if effectivePage < 1 {
		effectivePage = services.DefaultPage
	}
	for i := range page.Messages {
		page.Messages[i].IsMine = page.Messages[i].SenderID == c.userID
	}

	c.send(EvMessagesLoaded, messagesLoadedPayload{
		ConversationID: p.ConversationID,
		Messages:       page.Messages,
		Total:          page.Total,
		Page:           effectivePage,
		HasMore:        page.HasMore,
	})
	return nil
}

// handleMarkAsRead flips the caller's unread messages and emits the read
// receipt to the rest of the group, skipping the originating connection. The
// receipt goes out even when nothing was left to flip, so a second device
// marking an already-read conversation still syncs the others.
func (g *Gateway) handleMarkAsRead(c *Conn, env envelope) error {
	var p markAsReadPayload
	if err := decodePayload(env.Data, &p); err != nil {
		return err
	}

	if _, err := g.messages.MarkAllRead(p.ConversationID, c.userID); err != nil {
		return err
	}
	g.publish(event.MessagesRead{
		Conversation: p.ConversationID,
		ReadBy:       c.userID,
		ReadAt:       time.Now().UTC(),
		Origin:       c.id,
	})
	return nil
}

func (g *Gateway) handleGetConversations(c *Conn) error {
	views, err := g.delivery.ConversationsWithUnread(c.userID)
	if err != nil {
		return err
	}
	c.send(EvConversationsLoaded, views)
	return nil
}

type chatDeletedPayload struct {
	ConversationID string    `json:"conversationId"`
	DeletedAt      time.Time `json:"deletedAt"`
}

// handleDeleteChat records the caller's cutoff marker. The conversation row
// itself survives; only the caller's view of its history is reset.
func (g *Gateway) handleDeleteChat(c *Conn, env envelope) error {
	var p deleteChatPayload
	if err := decodePayload(env.Data, &p); err != nil {
		return err
	}

	deletedAt, err := g.conversations.SetDeletionMarker(p.ConversationID, c.userID)
	if err != nil {
		return err
	}

	c.send(EvChatDeleted, chatDeletedPayload{ConversationID: p.ConversationID, DeletedAt: deletedAt})
	return nil
}

type messageDeletedPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// handleDeleteMessage routes the two deletion modes to their audiences:
// delete-for-all notifies the whole group, delete-for-me only the caller.
func (g *Gateway) handleDeleteMessage(c *Conn, env envelope) error {
	var p deleteMessagePayload
	if err := decodePayload(env.Data, &p); err != nil {
		return err
	}

	result, err := g.delivery.DeleteMessage(context.Background(), p.MessageID, c.userID, p.DeleteType)
	if err != nil {
		return err
	}

	if result.DeleteType == domain.DeleteForAll {
		g.publish(event.MessageDeletedForAll{
			MessageID:    result.MessageID,
			Conversation: result.ConversationID,
		})
		return nil
	}

	c.send(EvMessageDeletedForMe, messageDeletedPayload{
		MessageID:      result.MessageID,
		ConversationID: result.ConversationID,
	})
	return nil
}
