//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"chat-core/domain"
	"chat-core/errors"
)

type IMessageRepository interface {
	Store(msg domain.Message) error
	Get(id string) (domain.Message, error)
	ListByConversation(conversationID string) ([]domain.Message, error)
	UpdateByConversation(conversationID string, apply func(*domain.Message) bool) (int, error)
	AddTombstone(messageID, userID string) error
	TombstonesFor(userID string) (map[string]struct{}, error)
	DeleteWithTombstones(id string) error
}

// MessageRepository owns message rows and delete-for-me tombstones. The
// primary key embeds the zero-padded creation timestamp so a prefix scan
// yields messages in chronological order; a msgref index resolves lookups by
// id to the primary key.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

func (r *MessageRepository) Store(msg domain.Message) error {
	primary := keyMessage(msg.ConversationID, msg.CreatedAt.UnixNano(), msg.ID)
	return runUpdate(r.db, func(txn *badger.Txn) error {
		if err := putJSON(txn, primary, msg); err != nil {
			return err
		}
		return txn.Set(keyMessageRef(msg.ID), primary)
	})
}

func (r *MessageRepository) Get(id string) (domain.Message, error) {
	var msg domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		primary, err := resolveRef(txn, id)
		if err != nil {
			return err
		}
		return getJSON(txn, primary, &msg)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.NotFound("message not found")
	}
	return msg, err
}

// ListByConversation returns every message of a conversation, oldest first.
// Visibility filtering is the service's concern.
func (r *MessageRepository) ListByConversation(conversationID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:" + conversationID + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var msg domain.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	return messages, err
}

// UpdateByConversation rewrites every message of a conversation for which
// apply returns true, in one transaction. Used for the monotonic bulk
// read-flag update; apply mutates the message in place.
func (r *MessageRepository) UpdateByConversation(conversationID string, apply func(*domain.Message) bool) (int, error) {
	var updated int
	err := runUpdate(r.db, func(txn *badger.Txn) error {
		updated = 0
		prefix := []byte("msg:" + conversationID + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		type pending struct {
			key []byte
			msg domain.Message
		}
		var writes []pending

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var msg domain.Message
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}
			if apply(&msg) {
				writes = append(writes, pending{key: item.KeyCopy(nil), msg: msg})
			}
		}

		for _, w := range writes {
			if err := putJSON(txn, w.key, w.msg); err != nil {
				return err
			}
		}
		updated = len(writes)
		return nil
	})
	return updated, err
}

// AddTombstone upserts a delete-for-me marker; re-deleting is a no-op. The
// msgref lookup runs inside the transaction so its key is in the read set: a
// concurrent delete-for-all removes msgref, the commit conflicts, and the
// retry observes the row as gone. No tombstone can outlive its message.
func (r *MessageRepository) AddTombstone(messageID, userID string) error {
	err := runUpdate(r.db, func(txn *badger.Txn) error {
		if _, err := resolveRef(txn, messageID); err != nil {
			return err
		}
		if err := txn.Set(keyTombstone(userID, messageID), nil); err != nil {
			return err
		}
		return txn.Set(keyTombstoneRef(messageID, userID), nil)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.NotFound("message not found")
	}
	return err
}

// TombstonesFor returns the set of message ids the user deleted for themselves.
func (r *MessageRepository) TombstonesFor(userID string) (map[string]struct{}, error) {
	deleted := make(map[string]struct{})
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msgdel:" + userID + ":")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			deleted[string(it.Item().Key()[len(prefix):])] = struct{}{}
		}
		return nil
	})
	return deleted, err
}

// DeleteWithTombstones removes a message row together with every tombstone
// referencing it, as one atomic unit. The transaction re-checks existence, so
// a concurrent deletion surfaces as NotFound instead of racing past it.
func (r *MessageRepository) DeleteWithTombstones(id string) error {
	err := runUpdate(r.db, func(txn *badger.Txn) error {
		primary, err := resolveRef(txn, id)
		if err != nil {
			return err
		}

		refPrefix := []byte("msgdelref:" + id + ":")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		var userIDs []string
		for it.Seek(refPrefix); it.ValidForPrefix(refPrefix); it.Next() {
			userIDs = append(userIDs, string(it.Item().Key()[len(refPrefix):]))
		}
		it.Close()

		for _, userID := range userIDs {
			if err := txn.Delete(keyTombstone(userID, id)); err != nil {
				return err
			}
			if err := txn.Delete(keyTombstoneRef(id, userID)); err != nil {
				return err
			}
		}
		if err := txn.Delete(primary); err != nil {
			return err
		}
		return txn.Delete(keyMessageRef(id))
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.NotFound("message not found")
	}
	return err
}

func resolveRef(txn *badger.Txn, id string) ([]byte, error) {
	item, err := txn.Get(keyMessageRef(id))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
