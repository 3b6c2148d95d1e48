package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/coolledctl/internal/api/models"
	"github.com/smazurov/coolledctl/internal/metrics"
)

// registerSerialRoutes registers serial channel status endpoints.
func (s *Server) registerSerialRoutes() {
	if s.options.Serial != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "get-serial",
			Method:      http.MethodGet,
			Path:        "/api/serial",
			Summary:     "Get Serial Channel",
			Description: "Get the serial port settings, channel state and write counters",
			Tags:        []string{"serial"},
			Security:    withAuth(),
			Errors:      []int{401},
		}, func(_ context.Context, _ *struct{}) (*models.SerialResponse, error) {
			cfg := s.options.Serial.Config()
			stats := metrics.Snapshot()
			return &models.SerialResponse{
				Body: models.SerialData{
					Port:        cfg.Port,
					BaudRate:    cfg.BaudRate,
					DataBits:    cfg.DataBits,
					Parity:      cfg.Parity,
					StopBits:    cfg.StopBits,
					ReadTimeout: cfg.ReadTimeout.String(),
					Settings:    cfg.String(),
					State:       string(s.options.Serial.State()),
					Open:        s.options.Serial.IsOpen(),
					Stats: models.SerialStats{
						CommandsSent:  stats.CommandsSent,
						WriteFailures: stats.WriteFailures,
						TaskFailures:  stats.TaskFailures,
						QueueDepth:    stats.QueueDepth,
					},
				},
			}, nil
		})
	}

	if s.options.ListPorts != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "list-serial-ports",
			Method:      http.MethodGet,
			Path:        "/api/serial/ports",
			Summary:     "List Serial Ports",
			Description: "List the serial ports present on the host",
			Tags:        []string{"serial"},
			Security:    withAuth(),
			Errors:      []int{401, 500},
		}, func(_ context.Context, _ *struct{}) (*models.PortsResponse, error) {
			ports, err := s.options.ListPorts()
			if err != nil {
				return nil, huma.Error500InternalServerError("Failed to list serial ports", err)
			}
			if ports == nil {
				ports = []string{}
			}
			return &models.PortsResponse{
				Body: models.PortsData{Ports: ports, Count: len(ports)},
			}, nil
		})
	}
}
