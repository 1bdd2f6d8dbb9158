package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camerasrc/internal/api/models"
	"github.com/smazurov/camerasrc/internal/branch"
)

func (s *Server) registerBranchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-branches",
		Method:      http.MethodGet,
		Path:        "/api/branches",
		Summary:     "List Branches",
		Description: "Output branches in stream slot order",
		Tags:        []string{"branches"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.BranchListResponse, error) {
		snap := s.src.Branches()
		out := make([]models.BranchData, len(snap))
		for i, b := range snap {
			out[i] = branchData(b)
		}
		return &models.BranchListResponse{
			Body: models.BranchListData{Branches: out, Count: len(out)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-branch",
		Method:        http.MethodPost,
		Path:          "/api/branches",
		Summary:       "Add Branch",
		Description:   "Request an additional output branch; it takes the next stream slot",
		Tags:          []string{"branches"},
		Security:      withAuth(),
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 401, 409},
	}, func(_ context.Context, input *models.BranchCreateRequest) (*models.BranchResponse, error) {
		b, err := s.src.AddBranch(input.Body.ID)
		if err != nil {
			return nil, mapError(err)
		}
		return &models.BranchResponse{Body: branchData(b)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "remove-branch",
		Method:        http.MethodDelete,
		Path:          "/api/branches/{id}",
		Summary:       "Remove Branch",
		Description:   "Release an output branch. The main branch cannot be removed.",
		Tags:          []string{"branches"},
		Security:      withAuth(),
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404, 409},
	}, func(_ context.Context, input *models.BranchPath) (*struct{}, error) {
		if err := s.src.RemoveBranch(input.ID); err != nil {
			return nil, mapError(err)
		}
		return nil, nil
	})
}

func branchData(b branch.Branch) models.BranchData {
	data := models.BranchData{
		ID:         b.ID,
		Slot:       b.Slot,
		Resolved:   b.Resolved,
		ConfigDone: b.ConfigDone,
	}
	if b.Resolved {
		data.Format = b.Config.Format.String()
		data.Width = b.Config.Width
		data.Height = b.Config.Height
		data.Field = b.Config.Field.String()
		data.Stride = b.Config.Stride
	}
	return data
}
