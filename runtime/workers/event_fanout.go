package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-core/contract"
	"chat-core/domain/event"
)

// EventFanout drains the post-persist event channel and routes each event to
// the sinks of the relevant broadcast group. Handlers enqueue only after the
// persistence layer has committed, and a single fanout goroutine consumes the
// channel, so within one conversation delivery order equals durable creation
// order.
//
// Delivery to an individual sink is best effort: a full or dead connection
// drops the event rather than blocking the pipeline.
type EventFanout struct {
	log      *slog.Logger
	registry contract.ISessionRegistry
	events   chan event.DomainEvent
	timeout  time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.ISessionRegistry,
	events chan event.DomainEvent, timeout time.Duration) *EventFanout {
	return &EventFanout{log: log, registry: registry, events: events, timeout: timeout}
}

var _ contract.Worker = (*EventFanout)(nil)

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout resolves the event's targets and pushes it to each sink. Targeted
// events address explicit connections, Excluder events skip their origin,
// everything else goes to the whole conversation group.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	var sinks []contract.EventSink
	switch e := evt.(type) {
	case event.Targeted:
		sinks = w.registry.SinksFor(e.TargetConns())
	case event.Excluder:
		sinks = w.registry.SinksForConversationExcept(evt.ConversationID(), e.ExcludedConn())
	default:
		sinks = w.registry.SinksForConversation(evt.ConversationID())
	}

	for _, sink := range sinks {
		deliverCtx, cancel := context.WithTimeout(ctx, w.timeout)
		if err := sink.Consume(deliverCtx, evt); err != nil {
			w.log.Debug("event dropped", "event", evt.Name(), "error", err)
		}
		cancel()
	}
}
