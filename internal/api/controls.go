package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camerasrc/internal/api/models"
	"github.com/smazurov/camerasrc/internal/controls"
)

func (s *Server) registerControlRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-controls",
		Method:      http.MethodGet,
		Path:        "/api/controls",
		Summary:     "List Controls",
		Description: "Every control with its range, default and current value",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ControlListResponse, error) {
		all := controls.All()
		out := make([]models.ControlData, 0, len(all))
		for _, ctrl := range all {
			data := s.controlData(ctrl)
			if v, err := s.src.GetControl(ctrl.Name); err == nil {
				data.Value = v
			}
			out = append(out, data)
		}
		return &models.ControlListResponse{
			Body: models.ControlListData{Controls: out, Count: len(out)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-control",
		Method:      http.MethodGet,
		Path:        "/api/controls/{name}",
		Summary:     "Get Control",
		Description: "Read one control. Live controls are read back from the camera.",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 502},
	}, func(_ context.Context, input *models.ControlPath) (*models.ControlResponse, error) {
		ctrl, ok := controls.Lookup(input.Name)
		if !ok {
			return nil, huma.Error404NotFound("unknown control " + input.Name)
		}
		v, err := s.src.GetControl(input.Name)
		if err != nil {
			return nil, mapError(err)
		}
		data := s.controlData(ctrl)
		data.Value = v
		return &models.ControlResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-control",
		Method:      http.MethodPut,
		Path:        "/api/controls/{name}",
		Summary:     "Set Control",
		Description: "Validate and cache a control value; dispatching controls are pushed to an open camera",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 502},
	}, func(_ context.Context, input *models.ControlSetRequest) (*models.ControlResponse, error) {
		ctrl, ok := controls.Lookup(input.Name)
		if !ok {
			return nil, huma.Error404NotFound("unknown control " + input.Name)
		}
		if err := s.src.SetControl(input.Name, input.Body.Value); err != nil {
			return nil, mapError(err)
		}
		data := s.controlData(ctrl)
		if v, err := s.src.GetControl(input.Name); err == nil {
			data.Value = v
		}
		return &models.ControlResponse{Body: data}, nil
	})
}

func (s *Server) controlData(ctrl *controls.Control) models.ControlData {
	data := models.ControlData{
		Name:        ctrl.Name,
		Kind:        string(ctrl.Kind),
		Description: ctrl.Description,
		Default:     ctrl.Default,
		Live:        ctrl.Live,
	}
	switch ctrl.Kind {
	case controls.KindInt, controls.KindFloat:
		lo, hi := ctrl.Min, ctrl.Max
		data.Min, data.Max = &lo, &hi
	case controls.KindEnum:
		data.Values = ctrl.Enum.Nicks()
	}
	return data
}
