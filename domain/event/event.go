// Package event defines the outbound events fanned out to live connections.
// Each event knows its wire name and the conversation it belongs to; routing
// hints (excluded origin, explicit targets) are expressed through the optional
// interfaces below and interpreted by the fan-out worker.
package event

import (
	"time"

	"chat-core/domain"
)

type DomainEvent interface {
	// ConversationID keys the broadcast group the event belongs to.
	ConversationID() string
	// Name is the wire event name emitted to clients.
	Name() string
}

// Excluder is implemented by events that must skip the originating connection.
type Excluder interface {
	ExcludedConn() string
}

// Targeted is implemented by events addressed to explicit connections instead
// of a whole broadcast group.
type Targeted interface {
	TargetConns() []string
}

// NewMessage fans a freshly persisted message out to the whole group.
type NewMessage struct {
	Message domain.MessageView
}

func (e NewMessage) ConversationID() string { return e.Message.ConversationID }
func (e NewMessage) Name() string           { return "new-message" }

// MessagesRead is the read receipt sent to every other connection in the group.
type MessagesRead struct {
	Conversation string    `json:"conversationId"`
	ReadBy       string    `json:"readBy"`
	ReadAt       time.Time `json:"readAt"`
	Origin       string    `json:"-"`
}

func (e MessagesRead) ConversationID() string { return e.Conversation }
func (e MessagesRead) Name() string           { return "messages-read" }
func (e MessagesRead) ExcludedConn() string   { return e.Origin }

// NewConversation tells the other participant's live connections that a
// conversation now exists; they have already been joined to its group.
type NewConversation struct {
	Conversation domain.Conversation
	Conns        []string
}

func (e NewConversation) ConversationID() string { return e.Conversation.ID }
func (e NewConversation) Name() string           { return "new-conversation" }
func (e NewConversation) TargetConns() []string  { return e.Conns }

// MessageDeletedForAll notifies the whole group that a message row is gone.
type MessageDeletedForAll struct {
	MessageID    string `json:"messageId"`
	Conversation string `json:"conversationId"`
}

func (e MessageDeletedForAll) ConversationID() string { return e.Conversation }
func (e MessageDeletedForAll) Name() string           { return "message-deleted-for-all" }
