// Package domain contains core concepts of the chat system.
// This file defines Conversation entities and the canonical participant pair.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"
)

// PreviewMaxLen is the maximum length of the denormalized last-message preview.
const PreviewMaxLen = 100

// Conversation is a two-participant message thread. Its identity is stable and
// independent of either participant's visibility state: "deleting" a chat only
// writes a per-user cutoff, the row itself is never removed.
type Conversation struct {
	ID             string              `json:"id"`
	ParticipantIDs [2]string           `json:"participantIds"`
	LastMessage    *LastMessagePreview `json:"lastMessage,omitempty"`
	LastMessageAt  *time.Time          `json:"lastMessageAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// LastMessagePreview is the denormalized preview shown in conversation lists.
type LastMessagePreview struct {
	Content  string      `json:"content"`
	Type     MessageType `json:"type"`
	SenderID string      `json:"senderId"`
}

// ConversationView is a Conversation annotated with the viewer's live unread count.
type ConversationView struct {
	Conversation
	UnreadCount int `json:"unreadCount"`
}

// CanonicalPair orders two participant identifiers so that lookups by either
// ordering resolve to the same pair key. At most one conversation may exist per
// canonical pair.
func CanonicalPair(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// HasParticipant reports whether userID is one of the two members.
func (c Conversation) HasParticipant(userID string) bool {
	return c.ParticipantIDs[0] == userID || c.ParticipantIDs[1] == userID
}

// ActivityTime is the sort key for descending-recency conversation lists:
// last message time when present, creation time otherwise.
func (c Conversation) ActivityTime() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

// TruncatePreview shortens content to PreviewMaxLen runes, appending an
// ellipsis marker when something was cut.
func TruncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewMaxLen {
		return content
	}
	return string(runes[:PreviewMaxLen]) + "..."
}
