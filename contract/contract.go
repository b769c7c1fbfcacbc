//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-core/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives fan-out events for one live connection.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// ISessionRegistry tracks live connections per user and per-conversation
// broadcast groups. Implementations must be safe for concurrent use by many
// connection-lifecycle handlers.
type ISessionRegistry interface {
	Register(userID, connID string, sink EventSink)
	Unregister(userID, connID string)
	ConnectionsOf(userID string) []string
	JoinConversation(conversationID string, connIDs ...string)
	JoinUser(conversationID, userID string) []string
	SinksForConversation(conversationID string) []EventSink
	SinksForConversationExcept(conversationID, exceptConn string) []EventSink
	SinksFor(connIDs []string) []EventSink
}

// FileStore is the external file-storage collaborator. DeleteFile is best
// effort: it reports success but never errors into the caller's critical path.
type FileStore interface {
	DeleteFile(ctx context.Context, reference string) bool
}

// TokenVerifier is the identity collaborator invoked once per connection at
// handshake time. It returns the verified user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}
