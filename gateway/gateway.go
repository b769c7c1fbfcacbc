// Package gateway is the realtime connection and event-routing layer. It
// authenticates each connection once at handshake, validates event payload
// shape before dispatch, delegates to the conversation/message/delivery
// services, and publishes fan-out events after persistence has committed.
// The core services carry no transport types; this package is the websocket
// adapter over them.
package gateway

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
	"chat-core/repositories"
	"chat-core/services"
	"chat-core/sink"
)

type Gateway struct {
	log           *slog.Logger
	registry      contract.ISessionRegistry
	conversations repositories.IConversationRepository
	messages      services.IMessageService
	delivery      services.IDeliveryService
	verifier      contract.TokenVerifier
	events        chan event.DomainEvent
	upgrader      websocket.Upgrader
	bufferSize    int
}

func NewGateway(
	log *slog.Logger,
	registry contract.ISessionRegistry,
	conversations repositories.IConversationRepository,
	messages services.IMessageService,
	delivery services.IDeliveryService,
	verifier contract.TokenVerifier,
	events chan event.DomainEvent,
	connectionBufferSize int) *Gateway {
	return &Gateway{
		log:           log,
		registry:      registry,
		conversations: conversations,
		messages:      messages,
		delivery:      delivery,
		verifier:      verifier,
		events:        events,
		bufferSize:    connectionBufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

type connectedPayload struct {
	UserID        string                    `json:"userId"`
	Conversations []domain.ConversationView `json:"conversations"`
}

// HandleWS upgrades the transport and drives the per-connection state
// machine: Connecting -> Authenticated -> Active -> Closed. A connection that
// fails authentication is told why and closed without ever becoming Active.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug("upgrade failed", "error", err)
		return
	}

	c := &Conn{
		id:     uuid.NewString(),
		state:  StateConnecting,
		ws:     ws,
		sink:   sink.NewConnSink(g.bufferSize),
		direct: make(chan outbound, g.bufferSize),
		done:   make(chan struct{}),
		log:    g.log,
	}

	// The write pump is not running yet, so the rejection frame can be
	// written synchronously and is on the wire before the close handshake.
	userID, err := g.verifier.Verify(bearerToken(r))
	if err != nil {
		g.log.Warn("handshake rejected", "conn_id", c.id, "error", err)
		c.state = StateClosed
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = ws.WriteJSON(outbound{
			Event: EvSocketError,
			Data:  socketError{Action: "connect", Message: errors.ClientMessage(errors.ErrAuthFailure)},
		})
		_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
		_ = ws.Close()
		return
	}
	c.userID = userID
	c.state = StateAuthenticated
	go c.writePump()

	g.activate(c)
	g.readLoop(c)
}

// activate registers the connection, joins it to the broadcast group of every
// conversation the user belongs to, and emits the connection-ready payload.
func (g *Gateway) activate(c *Conn) {
	g.registry.Register(c.userID, c.id, c.sink)

	conversations, err := g.conversations.ListForUser(c.userID)
	if err != nil {
		g.log.Error("listing conversations failed", "user_id", c.userID, "error", err)
	}
	for _, conv := range conversations {
		g.registry.JoinConversation(conv.ID, c.id)
	}

	views, err := g.delivery.ConversationsWithUnread(c.userID)
	if err != nil {
		g.log.Error("unread annotation failed", "user_id", c.userID, "error", err)
	}
	c.state = StateActive
	c.send(EvConnected, connectedPayload{UserID: c.userID, Conversations: views})

	g.log.Info("connection active",
		"conn_id", c.id, "user_id", c.userID, "conversations", len(conversations))
}

// readLoop consumes inbound frames until the transport dies, then unwinds the
// session. Handlers run inline, so one connection never blocks another's
// handler; in-flight persistence finishes even when the socket is already
// gone, and the resulting sends are dropped.
func (g *Gateway) readLoop(c *Conn) {
	defer func() {
		c.state = StateClosed
		close(c.done)
		g.registry.Unregister(c.userID, c.id)
		g.log.Info("connection closed", "conn_id", c.id, "user_id", c.userID)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		g.dispatch(c, data)
	}
}

// dispatch validates the envelope and routes one inbound event. Every failure
// becomes a structured socket-error back to the originating connection;
// nothing may crash the connection handler.
func (g *Gateway) dispatch(c *Conn, data []byte) {
	var env envelope
	if err := decodeEnvelope(data, &env); err != nil {
		c.sendError("unknown", err)
		return
	}

	var err error
	switch env.Event {
	case EvStartConversation:
		err = g.handleStartConversation(c, env)
	case EvSendMessage:
		err = g.handleSendMessage(c, env)
	case EvGetMessages:
		err = g.handleGetMessages(c, env)
	case EvMarkAsRead:
		err = g.handleMarkAsRead(c, env)
	case EvGetConversations:
		err = g.handleGetConversations(c)
	case EvDeleteChat:
		err = g.handleDeleteChat(c, env)
	case EvDeleteMessage:
		err = g.handleDeleteMessage(c, env)
	default:
		err = errors.BadRequest("unknown event: " + env.Event)
	}
	if err != nil {
		c.sendError(env.Event, err)
	}
}

// publish enqueues a fan-out event. The handler has already persisted its
// effect, so channel order equals durable creation order per conversation.
func (g *Gateway) publish(evt event.DomainEvent) {
	select {
	case g.events <- evt:
	default:
		g.log.Warn("event channel full, dropping fan-out", "event", evt.Name())
	}
}

// bearerToken extracts the credential from the Authorization header or the
// token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
