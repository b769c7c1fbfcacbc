// Package domain contains core concepts of the chat system.
// This file defines Message records and their display views.
package domain

import (
	"time"
)

// MessageType discriminates the content field: text body for TypeText,
// a stored file reference for everything else.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeDocument MessageType = "document"
	TypeAudio    MessageType = "audio"
	TypeVideo    MessageType = "video"
)

// ValidMessageType reports whether t is one of the known message types.
func ValidMessageType(t MessageType) bool {
	switch t {
	case TypeText, TypeImage, TypeDocument, TypeAudio, TypeVideo:
		return true
	}
	return false
}

// DeleteType selects the message deletion path.
type DeleteType string

const (
	DeleteForMe  DeleteType = "forMe"
	DeleteForAll DeleteType = "forAll"
)

// MessageMetadata carries optional structured attributes of non-text messages.
type MessageMetadata struct {
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	FileSize  int64  `json:"fileSize,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	Duration  int    `json:"duration,omitempty"`
}

// Message is a persisted chat message. Content is never edited after creation;
// the only mutations are the read flag (false -> true) and full removal via the
// delete-for-all path.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversationId"`
	SenderID       string           `json:"senderId"`
	Type           MessageType      `json:"type"`
	Content        string           `json:"content"`
	Metadata       *MessageMetadata `json:"metadata,omitempty"`
	ReplyToID      string           `json:"replyToId,omitempty"`
	IsRead         bool             `json:"isRead"`
	IsDelivered    bool             `json:"isDelivered"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Sender is the minimal profile joined onto message views for direct display.
type Sender struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ReplyPreview is the embedded summary of a reply target.
type ReplyPreview struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	SenderID  string      `json:"senderId"`
	Sender    *Sender     `json:"sender"`
	CreatedAt time.Time   `json:"createdAt"`
}

// MessageView is the denormalized message shape handed to clients, assembled by
// the message service so callers need no follow-up queries. IsMine is a pure
// presentation derivation (senderId == viewerId) stamped at the connection
// boundary, never stored.
type MessageView struct {
	ID             string           `json:"id"`
	Type           MessageType      `json:"type"`
	Content        string           `json:"content"`
	Metadata       *MessageMetadata `json:"metadata"`
	ConversationID string           `json:"conversationId"`
	SenderID       string           `json:"senderId"`
	Sender         *Sender          `json:"sender"`
	ReplyToID      string           `json:"replyToId,omitempty"`
	ReplyTo        *ReplyPreview    `json:"replyTo"`
	IsRead         bool             `json:"isRead"`
	IsDelivered    bool             `json:"isDelivered"`
	IsMine         bool             `json:"isMine"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// MessagePage is one window of visible history.
type MessagePage struct {
	Messages []MessageView `json:"messages"`
	Total    int           `json:"total"`
	HasMore  bool          `json:"hasMore"`
}

// DeleteResult echoes a completed deletion so callers can branch on the type
// to decide fan-out shape.
type DeleteResult struct {
	MessageID      string     `json:"messageId"`
	ConversationID string     `json:"conversationId"`
	DeleteType     DeleteType `json:"deleteType"`
	DeletedAt      time.Time  `json:"deletedAt"`
}

// User is the stored profile referenced by sender joins.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}
