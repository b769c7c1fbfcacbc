package gateway

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"chat-core/domain"
	"chat-core/errors"
)

// Inbound socket events.
const (
	EvStartConversation = "start-conversation"
	EvSendMessage       = "send-message"
	EvGetMessages       = "get-messages"
	EvMarkAsRead        = "mark-as-read"
	EvGetConversations  = "get-conversations"
	EvDeleteChat        = "delete-chat"
	EvDeleteMessage     = "delete-message"
)

// Outbound socket events.
const (
	EvConnected            = "connected"
	EvConversationStarted  = "conversation-started"
	EvNewConversation      = "new-conversation"
	EvNewMessage           = "new-message"
	EvMessagesLoaded       = "messages-loaded"
	EvMessagesRead         = "messages-read"
	EvConversationsLoaded  = "conversations-loaded"
	EvChatDeleted          = "chat-deleted"
	EvMessageDeletedForAll = "message-deleted-for-all"
	EvMessageDeletedForMe  = "message-deleted-for-me"
	EvSocketError          = "socket-error"
)

var validate = validator.New()

// envelope is the wire frame in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type socketError struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

type startConversationPayload struct {
	ToUserID string `json:"toUserId" validate:"required"`
}

type sendMessagePayload struct {
	ConversationID string                  `json:"conversationId" validate:"required,uuid4"`
	Content        string                  `json:"content" validate:"required"`
	Type           domain.MessageType      `json:"type" validate:"omitempty,oneof=text image document audio video"`
	Metadata       *domain.MessageMetadata `json:"metadata"`
	ReplyToID      string                  `json:"replyToId" validate:"omitempty,uuid4"`
}

type getMessagesPayload struct {
	ConversationID string `json:"conversationId" validate:"required,uuid4"`
	Page           int    `json:"page" validate:"omitempty,min=1"`
	Limit          int    `json:"limit" validate:"omitempty,min=1"`
}

type markAsReadPayload struct {
	ConversationID string `json:"conversationId" validate:"required,uuid4"`
}

type deleteChatPayload struct {
	ConversationID string `json:"conversationId" validate:"required,uuid4"`
}

type deleteMessagePayload struct {
	MessageID  string            `json:"messageId" validate:"required,uuid4"`
	DeleteType domain.DeleteType `json:"deleteType" validate:"required,oneof=forMe forAll"`
}

// decodeEnvelope parses the outer wire frame of an inbound message.
func decodeEnvelope(data []byte, env *envelope) error {
	if err := json.Unmarshal(data, env); err != nil {
		return errors.BadRequest("malformed frame")
	}
	if env.Event == "" {
		return errors.BadRequest("missing event name")
	}
	return nil
}

// decodePayload unmarshals and validates an inbound payload before any side
// effect runs. Shape problems surface as BadRequest, never as a crash.
func decodePayload(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.BadRequest("missing payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.BadRequest("malformed payload")
	}
	if err := validate.Struct(v); err != nil {
		return errors.BadRequest("invalid payload: " + err.Error())
	}
	return nil
}
