package gateway

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"chat-core/domain/event"
	"chat-core/errors"
	"chat-core/sink"
)

// Connection lifecycle states.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateActive
	StateClosed
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Conn is one live websocket connection of an authenticated user. Fan-out
// events arrive through its sink; direct replies through the direct channel.
// Only the write pump touches the underlying websocket for writes.
type Conn struct {
	id     string
	userID string
	state  ConnState
	ws     *websocket.Conn
	sink   *sink.ConnSink
	direct chan outbound
	done   chan struct{}
	log    *slog.Logger
}

// send queues a caller-only reply. Sends racing a closed connection are
// dropped, matching the dangling-send rule for disconnects mid-operation.
func (c *Conn) send(eventName string, data any) {
	select {
	case c.direct <- outbound{Event: eventName, Data: data}:
	case <-c.done:
	}
}

func (c *Conn) sendError(action string, err error) {
	c.log.Warn("socket error", "action", action, "conn_id", c.id, "error", err)
	c.send(EvSocketError, socketError{Action: action, Message: errors.ClientMessage(err)})
}

// writePump is the single writer on the websocket. It drains direct replies
// and fan-out events, translates events to wire frames, and keeps the
// connection alive with pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case out := <-c.direct:
			if !c.write(out) {
				return
			}
		case evt := <-c.sink.Events:
			if !c.write(c.toWire(evt)) {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) write(out outbound) bool {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(out); err != nil {
		c.log.Debug("write failed", "conn_id", c.id, "error", err)
		return false
	}
	return true
}

// toWire converts a fan-out event to its wire frame. isMine is stamped here,
// per viewer, because the same event reaches both participants.
func (c *Conn) toWire(evt event.DomainEvent) outbound {
	switch e := evt.(type) {
	case event.NewMessage:
		view := e.Message
		view.IsMine = view.SenderID == c.userID
		return outbound{Event: e.Name(), Data: view}
	case event.NewConversation:
		return outbound{Event: e.Name(), Data: e.Conversation}
	default:
		return outbound{Event: evt.Name(), Data: evt}
	}
}
