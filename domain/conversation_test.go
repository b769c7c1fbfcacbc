package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_CanonicalPair_Order_Independent(t *testing.T) {
	req := require.New(t)

	req.Equal(CanonicalPair("alice", "bob"), CanonicalPair("bob", "alice"))
	req.Equal([2]string{"alice", "bob"}, CanonicalPair("bob", "alice"))
}

func Test_HasParticipant(t *testing.T) {
	req := require.New(t)
	conv := Conversation{ParticipantIDs: CanonicalPair("alice", "bob")}

	req.True(conv.HasParticipant("alice"))
	req.True(conv.HasParticipant("bob"))
	req.False(conv.HasParticipant("mallory"))
}

func Test_ActivityTime_Falls_Back_To_Creation(t *testing.T) {
	req := require.New(t)
	created := time.Now().UTC().Add(-time.Hour)
	conv := Conversation{CreatedAt: created}

	req.Equal(created, conv.ActivityTime())

	lastAt := time.Now().UTC()
	conv.LastMessageAt = &lastAt
	req.Equal(lastAt, conv.ActivityTime())
}

func Test_TruncatePreview(t *testing.T) {
	req := require.New(t)

	short := "see you there"
	req.Equal(short, TruncatePreview(short))

	exact := strings.Repeat("a", PreviewMaxLen)
	req.Equal(exact, TruncatePreview(exact))

	long := strings.Repeat("a", PreviewMaxLen+1)
	req.Equal(exact+"...", TruncatePreview(long))

	// Truncation counts runes, not bytes
	wide := strings.Repeat("é", PreviewMaxLen+10)
	req.Equal(strings.Repeat("é", PreviewMaxLen)+"...", TruncatePreview(wide))
}

func Test_ValidMessageType(t *testing.T) {
	req := require.New(t)

	for _, mt := range []MessageType{TypeText, TypeImage, TypeDocument, TypeAudio, TypeVideo} {
		req.True(ValidMessageType(mt))
	}
	req.False(ValidMessageType("hologram"))
	req.False(ValidMessageType(""))
}
