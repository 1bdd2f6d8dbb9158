package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(BranchAddedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case BranchAddedEvent:
		event.Publish(b.dispatcher, e)
	case BranchRemovedEvent:
		event.Publish(b.dispatcher, e)
	case BranchNegotiatedEvent:
		event.Publish(b.dispatcher, e)
	case StreamsConfiguredEvent:
		event.Publish(b.dispatcher, e)
	case SessionStateEvent:
		event.Publish(b.dispatcher, e)
	case ControlChangedEvent:
		event.Publish(b.dispatcher, e)
	case IspAppliedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type selects the events it receives. Returns an unsubscribe
// function; an unknown handler type gets a no-op.
// Usage: unsub := bus.Subscribe(func(e ControlChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(BranchAddedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BranchRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BranchNegotiatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamsConfiguredEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ControlChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(IspAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel forwards events of type T to ch, dropping them when
// ch is full. Used by the SSE endpoint's select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
