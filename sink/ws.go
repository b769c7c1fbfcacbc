// Package sink bridges the fan-out pipeline to individual live connections.
package sink

import (
	"context"

	"chat-core/domain/event"
)

// ConnSink buffers events for one websocket connection. The connection's
// write pump drains Events; Consume blocks at most the fanout's delivery
// timeout, and a connection that died mid-operation simply stops draining, so
// dangling sends are dropped once that deadline passes.
type ConnSink struct {
	Events chan event.DomainEvent
}

func NewConnSink(bufferSize int) *ConnSink {
	return &ConnSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fanout worker. It hands the event to the owning
// connection's channel, waiting out short backpressure; a buffer still full at
// the context deadline means the connection stopped draining, and the event is
// dropped with the deadline error.
func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
