package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camerasrc/internal/api/models"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Session",
		Description: "State of the camera session and its configuration quorum",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.SessionResponse, error) {
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-session",
		Method:      http.MethodPost,
		Path:        "/api/session/start",
		Summary:     "Start Session",
		Description: "Open the camera selected by device-name and push the cached controls",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 409, 502},
	}, func(ctx context.Context, _ *struct{}) (*models.SessionResponse, error) {
		if err := s.src.Start(ctx); err != nil {
			return nil, mapError(err)
		}
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-session",
		Method:      http.MethodPost,
		Path:        "/api/session/stop",
		Summary:     "Stop Session",
		Description: "Release waiting branches, stop streaming and close the camera",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 502},
	}, func(_ context.Context, _ *struct{}) (*models.SessionResponse, error) {
		if err := s.src.Stop(); err != nil {
			return nil, mapError(err)
		}
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})
}

func (s *Server) sessionData() models.SessionData {
	info, ok := s.src.Session()
	if !ok {
		return models.SessionData{}
	}
	return models.SessionData{
		Running:   true,
		ID:        info.ID,
		Camera:    info.Camera,
		State:     string(info.State),
		Streaming: info.Streaming,
		Uptime:    info.Uptime,
	}
}
