package models

// IspTagData summarizes one ISP tag.
type IspTagData struct {
	Tag     string `json:"tag" example:"0x00001234" doc:"Tag identifier"`
	Size    int    `json:"size" example:"64" doc:"Payload size in bytes"`
	Enabled bool   `json:"enabled" doc:"Whether the tag is in the enabled set"`
}

type IspTagListData struct {
	Tags  []IspTagData `json:"tags" doc:"Cached tags in ascending order"`
	Count int          `json:"count" doc:"Number of cached tags"`
}

type IspTagListResponse struct {
	Body IspTagListData
}

type IspTagPath struct {
	Tag string `path:"tag" example:"0x1234" doc:"Tag identifier, decimal or 0x-prefixed hex"`
}

type IspPayloadData struct {
	Tag     string `json:"tag" example:"0x00001234" doc:"Tag identifier"`
	Payload []byte `json:"payload" doc:"Base64 payload as the camera reports it"`
}

type IspPayloadResponse struct {
	Body IspPayloadData
}

type IspTagSetRequest struct {
	Tag  string `path:"tag" example:"0x1234" doc:"Tag identifier, decimal or 0x-prefixed hex"`
	Body struct {
		Payload []byte `json:"payload" required:"false" doc:"Base64 payload; null removes the tag"`
	}
}

type IspLoadRequest struct {
	Body struct {
		Path  string `json:"path" minLength:"1" example:"/etc/camerasrc/isp.bin" doc:"ISP control file"`
		Apply bool   `json:"apply" doc:"Apply the loaded tags immediately"`
	}
}

type IspLoadData struct {
	Records int  `json:"records" example:"12" doc:"Records loaded"`
	Applied bool `json:"applied" doc:"Whether the tags were applied"`
}

type IspLoadResponse struct {
	Body IspLoadData
}
