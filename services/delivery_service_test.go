package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-core/domain"
	"chat-core/errors"
)

type fakeFileStore struct {
	mu      sync.Mutex
	deleted []string
	fail    bool
}

func (f *fakeFileStore) DeleteFile(_ context.Context, reference string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, reference)
	return !f.fail
}

func newDeliveryFixture(t *testing.T) (fixture, *DeliveryService, *fakeFileStore) {
	t.Helper()
	f := newFixture(t)
	files := &fakeFileStore{}
	delivery := NewDeliveryService(f.conversations, f.messages, f.service, files, slog.Default())
	return f, delivery, files
}

func Test_DeleteForMe_Hides_Only_For_Caller(t *testing.T) {
	req := require.New(t)
	f, delivery, files := newDeliveryFixture(t)
	conv := f.conversation(t, "alice", "bob")

	msg, err := f.service.Create("alice", CreateMessageInput{ConversationID: conv.ID, Content: "oops"})
	req.NoError(err)

	// When bob deletes it for himself, twice
	result, err := delivery.DeleteMessage(context.Background(), msg.ID, "bob", domain.DeleteForMe)
	req.NoError(err)
	req.Equal(domain.DeleteForMe, result.DeleteType)
	req.Equal(conv.ID, result.ConversationID)

	_, err = delivery.DeleteMessage(context.Background(), msg.ID, "bob", domain.DeleteForMe)
	req.NoError(err)

	// Then the row survives, alice still sees it, no file was touched
	forAlice, err := f.service.FindVisible(conv.ID, "alice", 1, 50)
	req.NoError(err)
	req.Len(forAlice.Messages, 1)

	forBob, err := f.service.FindVisible(conv.ID, "bob", 1, 50)
	req.NoError(err)
	req.Empty(forBob.Messages)

	req.Empty(files.deleted)
}

func Test_DeleteForAll_Only_Sender(t *testing.T) {
	req := require.New(t)
	f, delivery, _ := newDeliveryFixture(t)
	conv := f.conversation(t, "alice", "bob")

	msg, err := f.service.Create("alice", CreateMessageInput{ConversationID: conv.ID, Content: "mine"})
	req.NoError(err)

	// When the receiver attempts a delete-for-all
	_, err = delivery.DeleteMessage(context.Background(), msg.ID, "bob", domain.DeleteForAll)
	req.ErrorIs(err, errors.ErrForbidden)

	// Then nothing changed
	stored, err := f.messages.Get(msg.ID)
	req.NoError(err)
	req.Equal("mine", stored.Content)
}

func Test_DeleteForAll_Removes_Row_And_Tombstones(t *testing.T) {
	req := require.New(t)
	f, delivery, _ := newDeliveryFixture(t)
	conv := f.conversation(t, "alice", "bob")

	msg, err := f.service.Create("alice", CreateMessageInput{ConversationID: conv.ID, Content: "regret"})
	req.NoError(err)
	req.NoError(f.messages.AddTombstone(msg.ID, "bob"))

	result, err := delivery.DeleteMessage(context.Background(), msg.ID, "alice", domain.DeleteForAll)
	req.NoError(err)
	req.Equal(domain.DeleteForAll, result.DeleteType)

	_, err = f.messages.Get(msg.ID)
	req.ErrorIs(err, errors.ErrNotFound)

	bobSet, err := f.messages.TombstonesFor("bob")
	req.NoError(err)
	req.Empty(bobSet)
}

func Test_DeleteForAll_File_Message_Deletes_Stored_Files(t *testing.T) {
	req := require.New(t)
	f, delivery, files := newDeliveryFixture(t)
	conv := f.conversation(t, "alice", "bob")

	msg, err := f.service.Create("alice", CreateMessageInput{
		ConversationID: conv.ID,
		Content:        "uploads/photos/cat.jpg",
		Type:           domain.TypeImage,
		Metadata:       &domain.MessageMetadata{Thumbnail: "uploads/thumbs/cat.jpg"},
	})
	req.NoError(err)

	_, err = delivery.DeleteMessage(context.Background(), msg.ID, "alice", domain.DeleteForAll)
	req.NoError(err)
	req.Equal([]string{"uploads/photos/cat.jpg", "uploads/thumbs/cat.jpg"}, files.deleted)
}

func Test_DeleteForAll_Survives_File_Store_Failure(t *testing.T) {
	req := require.New(t)
	f, delivery, files := newDeliveryFixture(t)
	files.fail = true
	conv := f.conversation(t, "alice", "bob")

	msg, err := f.service.Create("alice", CreateMessageInput{
		ConversationID: conv.ID,
		Content:        "uploads/docs/report.pdf",
		Type:           domain.TypeDocument,
	})
	req.NoError(err)

	// An orphaned file is acceptable, an orphaned message is not
	_, err = delivery.DeleteMessage(context.Background(), msg.ID, "alice", domain.DeleteForAll)
	req.NoError(err)

	_, err = f.messages.Get(msg.ID)
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_DeleteForMe_After_DeleteForAll_Reports_Missing(t *testing.T) {
	req := require.New(t)
	f, delivery, _ := newDeliveryFixture(t)
	conv := f.conversation(t, "alice", "bob")

	msg, err := f.service.Create("alice", CreateMessageInput{ConversationID: conv.ID, Content: "gone soon"})
	req.NoError(err)

	// Given the sender removed the message for everyone
	_, err = delivery.DeleteMessage(context.Background(), msg.ID, "alice", domain.DeleteForAll)
	req.NoError(err)

	// Then a trailing delete-for-me cannot resurrect a marker for the dead row
	_, err = delivery.DeleteMessage(context.Background(), msg.ID, "bob", domain.DeleteForMe)
	req.ErrorIs(err, errors.ErrNotFound)

	bobSet, err := f.messages.TombstonesFor("bob")
	req.NoError(err)
	req.Empty(bobSet)
}

func Test_DeleteMessage_Non_Member_Forbidden(t *testing.T) {
	req := require.New(t)
	f, delivery, _ := newDeliveryFixture(t)
	conv := f.conversation(t, "alice", "bob")

	msg, err := f.service.Create("alice", CreateMessageInput{ConversationID: conv.ID, Content: "private"})
	req.NoError(err)

	_, err = delivery.DeleteMessage(context.Background(), msg.ID, "mallory", domain.DeleteForMe)
	req.ErrorIs(err, errors.ErrForbidden)
}

func Test_ConversationsWithUnread_Annotates_Counts(t *testing.T) {
	req := require.New(t)
	f, delivery, _ := newDeliveryFixture(t)
	withBob := f.conversation(t, "alice", "bob")
	f.conversation(t, "alice", "clara")

	_, err := f.service.Create("bob", CreateMessageInput{ConversationID: withBob.ID, Content: "ping"})
	req.NoError(err)
	_, err = f.service.Create("bob", CreateMessageInput{ConversationID: withBob.ID, Content: "ping again"})
	req.NoError(err)

	views, err := delivery.ConversationsWithUnread("alice")
	req.NoError(err)
	req.Len(views, 2)

	// Most recently active first: the conversation with messages leads
	req.Equal(withBob.ID, views[0].ID)
	req.Equal(2, views[0].UnreadCount)
	req.Equal(0, views[1].UnreadCount)
}
