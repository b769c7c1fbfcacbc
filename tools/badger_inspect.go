// Read-only dump of the chat database for operational debugging. Opens the
// store with BypassLockGuard so it works while the server holds the lock.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"

	"chat-core/domain"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Sender", "Read", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Reference keys carry no payload worth rendering.
			if strings.HasPrefix(key, "msgref:") || strings.HasPrefix(key, "pair:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				table.Append(toRow(key, v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func toRow(key string, val []byte) []string {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var msg domain.Message
		if err := json.Unmarshal(val, &msg); err != nil {
			return []string{key, "MESSAGE", "--:--:--", "--------", "-", "Error: unmarshal failed"}
		}
		detail := msg.Content
		if len(detail) > 60 {
			detail = detail[:60] + "..."
		}
		return []string{
			key,
			strings.ToUpper(string(msg.Type)),
			msg.CreatedAt.Format("15:04:05"),
			shortID(msg.SenderID),
			fmt.Sprintf("%t", msg.IsRead),
			detail,
		}
	case strings.HasPrefix(key, "conv:"):
		var conv domain.Conversation
		if err := json.Unmarshal(val, &conv); err != nil {
			return []string{key, "CONVERSATION", "--:--:--", "--------", "-", "Error: unmarshal failed"}
		}
		detail := fmt.Sprintf("%s <-> %s", shortID(conv.ParticipantIDs[0]), shortID(conv.ParticipantIDs[1]))
		if conv.LastMessage != nil {
			detail += " | " + conv.LastMessage.Content
		}
		return []string{key, "CONVERSATION", conv.ActivityTime().Format("15:04:05"), "-", "-", detail}
	default:
		return []string{key, "RAW", "--:--:--", "--------", "-", "Size: " + fmt.Sprint(len(val)) + " bytes"}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// Corruption needs one open in write mode to truncate the value log.
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
