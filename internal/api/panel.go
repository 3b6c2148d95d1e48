package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/coolledctl/internal/api/models"
	"github.com/smazurov/coolledctl/internal/events"
	"github.com/smazurov/coolledctl/internal/panel"
	"github.com/smazurov/coolledctl/internal/serial"
	"github.com/smazurov/coolledctl/internal/task"
)

// registerPanelRoutes registers the toggle endpoints.
func (s *Server) registerPanelRoutes() {
	if s.options.Panel == nil {
		s.logger.Debug("Panel not available, skipping panel routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-panel",
		Method:      http.MethodGet,
		Path:        "/api/panel",
		Summary:     "Get Panel",
		Description: "Get toggle states and the command they map to",
		Tags:        []string{"panel"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.PanelResponse, error) {
		return &models.PanelResponse{Body: s.panelData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "set-toggle",
		Method:        http.MethodPut,
		Path:          "/api/panel/toggles/{name}",
		Summary:       "Set Toggle",
		Description:   "Set one toggle and send the resulting command. The write runs in the background unless wait is set.",
		Tags:          []string{"panel"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 404, 500, 503},
	}, func(ctx context.Context, input *models.ToggleRequest) (*models.DispatchResponse, error) {
		if err := s.requireOpen(); err != nil {
			return nil, err
		}
		h, err := s.options.Panel.SetToggle(input.Name, input.Body.Checked)
		if err != nil {
			return nil, mapPanelError(err)
		}
		return s.dispatchResponse(ctx, h, input.Wait)
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "flip-toggle",
		Method:        http.MethodPost,
		Path:          "/api/panel/toggles/{name}/flip",
		Summary:       "Flip Toggle",
		Description:   "Invert one toggle, like clicking its button, and send the resulting command",
		Tags:          []string{"panel"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 404, 500, 503},
	}, func(ctx context.Context, input *models.FlipRequest) (*models.DispatchResponse, error) {
		if err := s.requireOpen(); err != nil {
			return nil, err
		}
		h, err := s.options.Panel.Flip(input.Name)
		if err != nil {
			return nil, mapPanelError(err)
		}
		return s.dispatchResponse(ctx, h, input.Wait)
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "apply-panel",
		Method:        http.MethodPost,
		Path:          "/api/panel/apply",
		Summary:       "Apply Panel",
		Description:   "Send the command for the current toggle state again",
		Tags:          []string{"panel"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 500, 503},
	}, func(ctx context.Context, input *models.ApplyRequest) (*models.DispatchResponse, error) {
		if err := s.requireOpen(); err != nil {
			return nil, err
		}
		return s.dispatchResponse(ctx, s.options.Panel.ApplyState(), input.Wait)
	})

	s.logger.Debug("Panel routes registered")
}

func (s *Server) panelData() models.PanelData {
	state := s.options.Panel.State()

	toggles := make([]events.Toggle, len(state))
	for i, t := range state {
		toggles[i] = events.Toggle{Name: t.Name, Checked: t.Checked}
	}

	data := models.PanelData{
		Toggles: toggles,
		Bits:    state.Bits(),
		Command: panel.CommandFor(state).Name(),
	}
	if last, ok := s.options.Panel.LastCommand(); ok {
		data.LastCommand = last.Name()
	}
	return data
}

// requireOpen rejects dispatches while the serial channel is not open.
func (s *Server) requireOpen() error {
	if s.options.Serial == nil || s.options.Serial.IsOpen() {
		return nil
	}
	return huma.Error503ServiceUnavailable("Serial channel is not open", serial.ErrNotOpen)
}

func (s *Server) dispatchResponse(ctx context.Context, h *task.Handle, wait bool) (*models.DispatchResponse, error) {
	resp := &models.DispatchResponse{
		Status: http.StatusAccepted,
		Body: models.DispatchData{
			TaskID: h.ID(),
			Panel:  s.panelData(),
		},
	}
	if last, ok := s.options.Panel.LastCommand(); ok {
		resp.Body.Command = last.Name()
	}

	if !wait {
		return resp, nil
	}

	outcome, err := h.Wait(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Request ended before the write finished", err)
	}
	if !outcome.OK() {
		return nil, huma.Error500InternalServerError("Command write failed", outcome.Err())
	}

	resp.Status = http.StatusOK
	resp.Body.Outcome = &models.OutcomeData{Status: "ok", Result: outcome.Value}
	return resp, nil
}

func mapPanelError(err error) error {
	if errors.Is(err, panel.ErrUnknownToggle) {
		return huma.Error404NotFound("Toggle not found", err)
	}
	return huma.Error500InternalServerError("Failed to change toggle", err)
}
