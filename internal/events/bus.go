package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// A nil bus drops the event so components can run without one.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case ColorChangedEvent:
		event.Publish(b.dispatcher, e)
	case TransitionStartedEvent:
		event.Publish(b.dispatcher, e)
	case TransitionFinishedEvent:
		event.Publish(b.dispatcher, e)
	case ConnectivityChangedEvent:
		event.Publish(b.dispatcher, e)
	case BadRequestEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Usage: unsub := bus.Subscribe(func(e ColorChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ColorChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TransitionStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TransitionFinishedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConnectivityChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BadRequestEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}

// SubscribeToChannel bridges a typed subscription to a channel. Events are
// dropped when the channel is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
