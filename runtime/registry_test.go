package runtime

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-core/domain/event"
)

type Sink struct {
	name string
}

func (s Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func TestRegistry_Register_One_User_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	sink := Sink{name: "alice-phone"}

	// Given no user is connected
	req.Empty(registry.sessions)
	req.Empty(registry.userConns)

	// When a connection registers
	registry.Register("alice", connID, sink)

	// Then
	req.Len(registry.sessions, 1)
	req.Equal([]string{connID}, registry.ConnectionsOf("alice"))
}

func TestRegistry_Register_Multi_Device(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	phone := uuid.NewString()
	laptop := uuid.NewString()

	// When the same user connects twice
	registry.Register("alice", phone, Sink{name: "phone"})
	registry.Register("alice", laptop, Sink{name: "laptop"})

	// Then both connections are live
	req.Len(registry.ConnectionsOf("alice"), 2)
	req.Len(registry.sessions, 2)
}

func TestRegistry_Unregister_Cleans_User_And_Groups(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	convID := uuid.NewString()

	// Given a registered connection inside a broadcast group
	registry.Register("alice", connID, Sink{})
	registry.JoinConversation(convID, connID)
	req.Len(registry.SinksForConversation(convID), 1)

	// When it unregisters
	registry.Unregister("alice", connID)

	// Then no session, user entry, or group membership leaks
	req.Empty(registry.sessions)
	req.Empty(registry.userConns)
	req.Empty(registry.groups)
	req.Empty(registry.connGroups)
	req.Nil(registry.SinksForConversation(convID))
}

func TestRegistry_Unregister_Leaves_Other_Device(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	phone := uuid.NewString()
	laptop := uuid.NewString()
	convID := uuid.NewString()

	registry.Register("alice", phone, Sink{name: "phone"})
	registry.Register("alice", laptop, Sink{name: "laptop"})
	registry.JoinConversation(convID, phone, laptop)

	// When one device drops
	registry.Unregister("alice", phone)

	// Then the other keeps receiving
	req.Equal([]string{laptop}, registry.ConnectionsOf("alice"))
	req.Len(registry.SinksForConversation(convID), 1)
}

func TestRegistry_JoinConversation_Idempotent_And_Skips_Dead(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	convID := uuid.NewString()

	registry.Register("alice", connID, Sink{})

	// When the connection joins twice, alongside a connection that never registered
	registry.JoinConversation(convID, connID)
	registry.JoinConversation(convID, connID, "never-registered")

	// Then membership stays exactly-once and the dead id was ignored
	req.Len(registry.groups[convID], 1)
	req.Len(registry.SinksForConversation(convID), 1)
}

func TestRegistry_JoinUser_Joins_All_Devices(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	phone := uuid.NewString()
	laptop := uuid.NewString()
	convID := uuid.NewString()

	registry.Register("bob", phone, Sink{name: "phone"})
	registry.Register("bob", laptop, Sink{name: "laptop"})

	conns := registry.JoinUser(convID, "bob")

	req.ElementsMatch([]string{phone, laptop}, conns)
	req.Len(registry.SinksForConversation(convID), 2)
}

func TestRegistry_SinksForConversationExcept_Skips_Origin(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	origin := uuid.NewString()
	other := uuid.NewString()
	convID := uuid.NewString()

	registry.Register("alice", origin, Sink{name: "origin"})
	registry.Register("bob", other, Sink{name: "other"})
	registry.JoinConversation(convID, origin, other)

	sinks := registry.SinksForConversationExcept(convID, origin)

	req.Len(sinks, 1)
	req.Equal(Sink{name: "other"}, sinks[0])
}

func TestRegistry_SinksFor_Resolves_Only_Live(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()

	registry.Register("alice", connID, Sink{name: "live"})

	sinks := registry.SinksFor([]string{connID, "gone"})

	req.Len(sinks, 1)
	req.Equal(Sink{name: "live"}, sinks[0])
}

func TestRegistry_Concurrent_Lifecycle(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	convID := uuid.NewString()

	// When many connections register, join, and unregister in parallel
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user_%d", i)
			connID := uuid.NewString()
			registry.Register(userID, connID, Sink{name: userID})
			registry.JoinConversation(convID, connID)
			registry.SinksForConversation(convID)
			registry.Unregister(userID, connID)
		}(i)
	}
	wg.Wait()

	// Then the registry drains back to empty
	req.Empty(registry.sessions)
	req.Empty(registry.groups)
}
