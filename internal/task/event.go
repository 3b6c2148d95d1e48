package task

import (
	"time"

	"github.com/smazurov/coolledctl/internal/events"
)

// Event converts one task signal to its event bus form. It matches the
// RunnerOptions.OnSignal signature once bound to a publisher.
func Event(h *Handle, sig Signal, o Outcome) events.TaskEvent {
	ev := events.TaskEvent{
		TaskID:    h.ID(),
		Name:      h.Name(),
		Signal:    string(sig),
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}
	switch sig {
	case SignalProgress, SignalResult:
		ev.Value = o.Value
	case SignalError:
		if o.Failure != nil {
			ev.Failure = &events.TaskFailure{
				Kind:    o.Failure.Kind,
				Message: o.Failure.Message,
				Trace:   o.Failure.Trace,
			}
		}
	}
	return ev
}

// PublishSignals returns an OnSignal hook that publishes every signal to bus.
func PublishSignals(bus interface{ Publish(events.Event) }) func(*Handle, Signal, Outcome) {
	return func(h *Handle, sig Signal, o Outcome) {
		bus.Publish(Event(h, sig, o))
	}
}
