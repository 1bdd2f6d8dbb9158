package models

// BranchData is one output branch.
type BranchData struct {
	ID         string `json:"id" example:"src_1" doc:"Branch identifier"`
	Slot       int    `json:"slot" example:"1" doc:"Stream slot in the device configuration"`
	Resolved   bool   `json:"resolved" doc:"Whether a stream configuration was matched"`
	ConfigDone bool   `json:"config_done" doc:"Whether the branch reported to the quorum"`
	Format     string `json:"format,omitempty" example:"NV12" doc:"Resolved pixel format"`
	Width      int    `json:"width,omitempty" example:"1920" doc:"Resolved width"`
	Height     int    `json:"height,omitempty" example:"1080" doc:"Resolved height"`
	Field      string `json:"field,omitempty" example:"any" doc:"Resolved field order"`
	Stride     int    `json:"stride,omitempty" example:"1920" doc:"Device stride in bytes"`
}

type BranchListData struct {
	Branches []BranchData `json:"branches" doc:"Branches in slot order"`
	Count    int          `json:"count" example:"2" doc:"Active branch count"`
}

type BranchListResponse struct {
	Body BranchListData
}

type BranchCreateRequest struct {
	Body struct {
		ID string `json:"id" minLength:"1" maxLength:"64" example:"src_1" doc:"New branch identifier"`
	}
}

type BranchResponse struct {
	Body BranchData
}

type BranchPath struct {
	ID string `path:"id" example:"src_1" doc:"Branch identifier"`
}

// Session models
type SessionData struct {
	Running   bool   `json:"running" doc:"Whether a camera session is open"`
	ID        string `json:"id,omitempty" doc:"Session identifier"`
	Camera    int    `json:"camera" example:"0" doc:"Camera index"`
	State     string `json:"state,omitempty" enum:"WAITING,CONFIGURING,CONFIGURED,CANCELLED" doc:"Configuration quorum state"`
	Streaming bool   `json:"streaming" doc:"Whether the camera is streaming"`
	Uptime    string `json:"uptime,omitempty" example:"1m2.5s" doc:"Time since the session opened"`
}

type SessionResponse struct {
	Body SessionData
}
