// Package repositories persists conversations, messages, and per-user deletion
// markers in BadgerDB. Values are JSON-encoded; keys follow prefix schemas that
// make every query a prefix scan:
//
//	conv:{id}                      conversation row
//	pair:{a}|{b}                   canonical participant pair -> conversation id
//	userconv:{user}:{conv}         membership index for per-user listing
//	convdel:{conv}:{user}          conversation deletion cutoff (unix nanos)
//	msg:{conv}:{ts}:{id}           message row, 19-digit zero-padded timestamp
//	msgref:{id}                    message id -> primary key
//	msgdel:{user}:{id}             delete-for-me tombstone, scanned per user
//	msgdelref:{id}:{user}          tombstone reverse index, cleaned on removal
//	user:{id}                      profile row for sender joins
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// runUpdate commits fn, retrying on optimistic-concurrency conflicts. Badger
// aborts a transaction whose read set was written by a concurrent commit; the
// closure is re-run against the new state, so every retry observes the effect
// of the winning writer.
func runUpdate(db *badger.DB, fn func(txn *badger.Txn) error) error {
	for {
		err := db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
}

func putJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func keyConversation(id string) []byte { return []byte("conv:" + id) }

func keyPair(pair [2]string) []byte {
	return []byte("pair:" + pair[0] + "|" + pair[1])
}

func keyUserConversation(userID, convID string) []byte {
	return []byte("userconv:" + userID + ":" + convID)
}

func keyConversationDeletion(convID, userID string) []byte {
	return []byte("convdel:" + convID + ":" + userID)
}

func keyMessage(convID string, unixNano int64, msgID string) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", convID, unixNano, msgID))
}

func keyMessageRef(msgID string) []byte { return []byte("msgref:" + msgID) }

func keyTombstone(userID, msgID string) []byte {
	return []byte("msgdel:" + userID + ":" + msgID)
}

func keyTombstoneRef(msgID, userID string) []byte {
	return []byte("msgdelref:" + msgID + ":" + userID)
}

func keyUser(id string) []byte { return []byte("user:" + id) }
