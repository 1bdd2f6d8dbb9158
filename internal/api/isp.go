package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camerasrc/internal/api/models"
)

func parseTag(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, huma.Error400BadRequest(fmt.Sprintf("invalid tag %q", s), err)
	}
	return uint32(v), nil
}

func formatTag(tag uint32) string {
	return fmt.Sprintf("0x%08x", tag)
}

func (s *Server) registerIspRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-isp-tags",
		Method:      http.MethodGet,
		Path:        "/api/isp/tags",
		Summary:     "List ISP Tags",
		Description: "Tags cached in the ISP control register, applied or not",
		Tags:        []string{"isp"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.IspTagListResponse, error) {
		tags := s.src.ISP().Tags()
		out := make([]models.IspTagData, len(tags))
		for i, t := range tags {
			out[i] = models.IspTagData{Tag: formatTag(t.Tag), Size: t.Size, Enabled: t.Enabled}
		}
		return &models.IspTagListResponse{
			Body: models.IspTagListData{Tags: out, Count: len(out)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-isp-tag",
		Method:      http.MethodGet,
		Path:        "/api/isp/tags/{tag}",
		Summary:     "Get ISP Tag",
		Description: "Read a tag payload back from the camera. The camera may have transformed it.",
		Tags:        []string{"isp"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 409, 502},
	}, func(_ context.Context, input *models.IspTagPath) (*models.IspPayloadResponse, error) {
		tag, err := parseTag(input.Tag)
		if err != nil {
			return nil, err
		}
		payload, err := s.src.ISP().Get(tag)
		if err != nil {
			return nil, mapError(err)
		}
		return &models.IspPayloadResponse{
			Body: models.IspPayloadData{Tag: formatTag(tag), Payload: payload},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "set-isp-tag",
		Method:        http.MethodPut,
		Path:          "/api/isp/tags/{tag}",
		Summary:       "Set ISP Tag",
		Description:   "Cache a tag payload, or remove the tag with a null payload. Nothing reaches the camera before apply.",
		Tags:          []string{"isp"},
		Security:      withAuth(),
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{400, 401},
	}, func(_ context.Context, input *models.IspTagSetRequest) (*struct{}, error) {
		tag, err := parseTag(input.Tag)
		if err != nil {
			return nil, err
		}
		s.src.ISP().SetTag(tag, input.Body.Payload)
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "apply-isp",
		Method:        http.MethodPost,
		Path:          "/api/isp/apply",
		Summary:       "Apply ISP Controls",
		Description:   "Push the enabled tag set and every cached payload in one parameter update",
		Tags:          []string{"isp"},
		Security:      withAuth(),
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 502},
	}, func(_ context.Context, _ *struct{}) (*struct{}, error) {
		if err := s.src.ISP().Apply(); err != nil {
			return nil, mapError(err)
		}
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "load-isp",
		Method:      http.MethodPost,
		Path:        "/api/isp/load",
		Summary:     "Load ISP Control File",
		Description: "Replace the register with the records of a control file. A truncated trailing record is ignored.",
		Tags:        []string{"isp"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 502},
	}, func(_ context.Context, input *models.IspLoadRequest) (*models.IspLoadResponse, error) {
		n, err := s.src.ISP().LoadFile(input.Body.Path)
		if err != nil {
			return nil, mapError(err)
		}
		if input.Body.Apply {
			if err := s.src.ISP().Apply(); err != nil {
				return nil, mapError(err)
			}
		}
		return &models.IspLoadResponse{
			Body: models.IspLoadData{Records: n, Applied: input.Body.Apply},
		}, nil
	})
}
