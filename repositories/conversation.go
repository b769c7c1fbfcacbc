//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-core/domain"
	"chat-core/errors"
)

type IConversationRepository interface {
	FindByID(id string) (domain.Conversation, error)
	IsMember(conversationID, userID string) (bool, error)
	GetOrCreate(userA, userB string) (domain.Conversation, bool, error)
	ListForUser(userID string) ([]domain.Conversation, error)
	RecordLastMessage(conversationID string, preview domain.LastMessagePreview) error
	SetDeletionMarker(conversationID, userID string) (time.Time, error)
	GetDeletionMarker(conversationID, userID string) (*time.Time, error)
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log}
}

func (r *ConversationRepository) FindByID(id string) (domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyConversation(id), &conv)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, errors.NotFound("conversation not found")
	}
	return conv, err
}

// IsMember reports membership; a missing conversation is false, not an error.
func (r *ConversationRepository) IsMember(conversationID, userID string) (bool, error) {
	conv, err := r.FindByID(conversationID)
	if stderrors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return conv.HasParticipant(userID), nil
}

// GetOrCreate resolves the single conversation for an unordered participant
// pair, creating it lazily. Two concurrent calls for the same pair race on the
// pair key: the loser's transaction conflicts, is re-run, and finds the
// winner's row, so both callers converge on one conversation without any lock
// held across the flow. The returned bool is true when this call created it.
func (r *ConversationRepository) GetOrCreate(userA, userB string) (domain.Conversation, bool, error) {
	pair := domain.CanonicalPair(userA, userB)
	pairKey := keyPair(pair)

	var conv domain.Conversation
	var created bool
	err := runUpdate(r.db, func(txn *badger.Txn) error {
		created = false
		item, err := txn.Get(pairKey)
		if err == nil {
			var id string
			if err := item.Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			return getJSON(txn, keyConversation(id), &conv)
		}
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		conv = domain.Conversation{
			ID:             uuid.NewString(),
			ParticipantIDs: pair,
			CreatedAt:      time.Now().UTC(),
		}
		created = true
		if err := putJSON(txn, keyConversation(conv.ID), conv); err != nil {
			return err
		}
		if err := txn.Set(pairKey, []byte(conv.ID)); err != nil {
			return err
		}
		for _, p := range pair {
			if err := txn.Set(keyUserConversation(p, conv.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return conv, created, nil
}

// ListForUser returns every conversation the user participates in, most
// recently active first. Conversations without messages sort by creation time.
func (r *ConversationRepository) ListForUser(userID string) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("userconv:" + userID + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			var conv domain.Conversation
			if err := getJSON(txn, keyConversation(id), &conv); err != nil {
				return err
			}
			conversations = append(conversations, conv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].ActivityTime().After(conversations[j].ActivityTime())
	})
	return conversations, nil
}

// RecordLastMessage overwrites the denormalized preview after each successful
// message creation, truncating the content and stamping the activity time.
func (r *ConversationRepository) RecordLastMessage(conversationID string, preview domain.LastMessagePreview) error {
	preview.Content = domain.TruncatePreview(preview.Content)
	now := time.Now().UTC()

	err := runUpdate(r.db, func(txn *badger.Txn) error {
		var conv domain.Conversation
		if err := getJSON(txn, keyConversation(conversationID), &conv); err != nil {
			return err
		}
		conv.LastMessage = &preview
		conv.LastMessageAt = &now
		return putJSON(txn, keyConversation(conversationID), conv)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.NotFound("conversation not found")
	}
	return err
}

// SetDeletionMarker upserts the caller's cutoff for a conversation. To a
// non-member this fails exactly like a missing conversation.
func (r *ConversationRepository) SetDeletionMarker(conversationID, userID string) (time.Time, error) {
	conv, err := r.FindByID(conversationID)
	if err != nil {
		return time.Time{}, err
	}
	if !conv.HasParticipant(userID) {
		return time.Time{}, errors.NotFound("conversation not found")
	}

	now := time.Now().UTC()
	err = runUpdate(r.db, func(txn *badger.Txn) error {
		return txn.Set(
			keyConversationDeletion(conversationID, userID),
			[]byte(strconv.FormatInt(now.UnixNano(), 10)),
		)
	})
	if err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// GetDeletionMarker returns the user's cutoff, or nil when none was ever set.
func (r *ConversationRepository) GetDeletionMarker(conversationID, userID string) (*time.Time, error) {
	var raw []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyConversationDeletion(conversationID, userID))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	nanos, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, err
	}
	cutoff := time.Unix(0, nanos).UTC()
	return &cutoff, nil
}
