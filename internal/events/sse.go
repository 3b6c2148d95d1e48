package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels.
// Huma SSE handlers need a channel-based select loop. Events are dropped
// when the channel is full so a slow client never blocks publishers.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// SubscribeControlEvents forwards task, panel and serial events to ch.
func SubscribeControlEvents(bus *Bus, ch chan<- any) func() {
	unsubscribers := []func(){
		SubscribeToChannel[TaskEvent](bus, ch),
		SubscribeToChannel[PanelStateChangedEvent](bus, ch),
		SubscribeToChannel[SerialStateChangedEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubscribers {
			unsub()
		}
	}
}
