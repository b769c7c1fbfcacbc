// Package runtime owns the in-memory session state and the supervised workers
// that move events from the persistence boundary to live connections. Nothing
// here is durable: the registry is rebuilt from nothing on process restart.
package runtime

import (
	"sync"

	"chat-core/contract"
)

type Set map[string]struct{}

type session struct {
	userID string
	sink   contract.EventSink
}

// Registry tracks live connections per user (multi-device) and the broadcast
// group of each conversation. All maps are guarded by one RWMutex; no
// operation blocks on I/O, so contention stays short even with many
// connection-lifecycle events firing in parallel.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]session // connID -> owning user + sink
	userConns  map[string]Set     // userID -> connIDs
	groups     map[string]Set     // conversationID -> connIDs
	connGroups map[string]Set     // connID -> conversationIDs, for O(1) cleanup
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[string]session),
		userConns:  make(map[string]Set),
		groups:     make(map[string]Set),
		connGroups: make(map[string]Set),
	}
}

// Register adds a live connection for a user. A user may hold any number of
// simultaneous connections.
func (r *Registry) Register(userID, connID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[connID] = session{userID: userID, sink: sink}
	if _, ok := r.userConns[userID]; !ok {
		r.userConns[userID] = make(Set)
	}
	r.userConns[userID][connID] = struct{}{}
}

// Unregister removes a connection from the session map, its user's set, and
// every broadcast group it joined. Removing the last connection of a user
// drops the user's entry entirely so no empty sets leak.
func (r *Registry) Unregister(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, connID)

	if conns, ok := r.userConns[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.userConns, userID)
		}
	}

	for convID := range r.connGroups[connID] {
		if members, ok := r.groups[convID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.groups, convID)
			}
		}
	}
	delete(r.connGroups, connID)
}

// ConnectionsOf returns the live connection ids of a user, empty if none.
func (r *Registry) ConnectionsOf(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]string, 0, len(r.userConns[userID]))
	for connID := range r.userConns[userID] {
		conns = append(conns, connID)
	}
	return conns
}

// JoinConversation adds connections to a conversation's broadcast group.
// Joining twice is a no-op, which keeps membership exactly-once across
// reconnects and racing start-conversation calls.
func (r *Registry) JoinConversation(conversationID string, connIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, connID := range connIDs {
		if _, ok := r.sessions[connID]; !ok {
			continue
		}
		if _, ok := r.groups[conversationID]; !ok {
			r.groups[conversationID] = make(Set)
		}
		r.groups[conversationID][connID] = struct{}{}

		if _, ok := r.connGroups[connID]; !ok {
			r.connGroups[connID] = make(Set)
		}
		r.connGroups[connID][conversationID] = struct{}{}
	}
}

// JoinUser joins every live connection of a user to a conversation's group
// and returns the connection ids that are now members.
func (r *Registry) JoinUser(conversationID, userID string) []string {
	conns := r.ConnectionsOf(userID)
	r.JoinConversation(conversationID, conns...)
	return conns
}

// SinksForConversation resolves the broadcast group to the sinks of its
// currently live connections.
func (r *Registry) SinksForConversation(conversationID string) []contract.EventSink {
	return r.sinksWhere(conversationID, "")
}

// SinksForConversationExcept is SinksForConversation minus the originating
// connection, used for read receipts.
func (r *Registry) SinksForConversationExcept(conversationID, exceptConn string) []contract.EventSink {
	return r.sinksWhere(conversationID, exceptConn)
}

func (r *Registry) sinksWhere(conversationID, exceptConn string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.groups[conversationID]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for connID := range members {
		if connID == exceptConn {
			continue
		}
		if sess, exists := r.sessions[connID]; exists {
			sinks = append(sinks, sess.sink)
		}
	}
	return sinks
}

// SinksFor resolves explicit connection ids; dead connections are skipped.
func (r *Registry) SinksFor(connIDs []string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for _, connID := range connIDs {
		if sess, ok := r.sessions[connID]; ok {
			sinks = append(sinks, sess.sink)
		}
	}
	return sinks
}
