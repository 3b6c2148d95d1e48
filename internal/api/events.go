package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/coolledctl/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of task signals, panel changes and serial channel state",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"task":                 events.TaskEvent{},
		"panel-state-changed":  events.PanelStateChangedEvent{},
		"serial-state-changed": events.SerialStateChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)
		unsubscribe := events.SubscribeControlEvents(s.eventBus, eventCh)
		defer unsubscribe()

		// Current state first so a fresh page can render without polling
		if !s.sendInitialState(send) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

func (s *Server) sendInitialState(send sse.Sender) bool {
	now := time.Now().Format(time.RFC3339)

	if s.options.Serial != nil {
		cfg := s.options.Serial.Config()
		if err := send.Data(events.SerialStateChangedEvent{
			Port:      cfg.Port,
			State:     string(s.options.Serial.State()),
			Timestamp: now,
		}); err != nil {
			return false
		}
	}

	if s.options.Panel != nil {
		data := s.panelData()
		if err := send.Data(events.PanelStateChangedEvent{
			Toggles:   data.Toggles,
			Bits:      data.Bits,
			Command:   data.Command,
			Timestamp: now,
		}); err != nil {
			return false
		}
	}
	return true
}
