package models

// ControlData describes one control and its current value.
type ControlData struct {
	Name        string   `json:"name" example:"exposure-time" doc:"Control name"`
	Kind        string   `json:"kind" enum:"int,float,bool,string,enum" doc:"Value type"`
	Description string   `json:"description" doc:"What the control does"`
	Min         *float64 `json:"min,omitempty" doc:"Lower bound for numeric controls"`
	Max         *float64 `json:"max,omitempty" doc:"Upper bound for numeric controls"`
	Default     any      `json:"default,omitempty" doc:"Default value"`
	Values      []string `json:"values,omitempty" doc:"Accepted nicks for enum controls"`
	Live        bool     `json:"live" doc:"Read back from the camera rather than the cache"`
	Value       any      `json:"value,omitempty" doc:"Current value"`
}

type ControlListData struct {
	Controls []ControlData `json:"controls" doc:"Every control in table order"`
	Count    int           `json:"count" example:"70" doc:"Number of controls"`
}

type ControlListResponse struct {
	Body ControlListData
}

type ControlPath struct {
	Name string `path:"name" example:"gain" doc:"Control name"`
}

type ControlResponse struct {
	Body ControlData
}

type ControlSetRequest struct {
	Name string `path:"name" example:"gain" doc:"Control name"`
	Body struct {
		Value any `json:"value" doc:"New value; enum controls take a nick or its number"`
	}
}
