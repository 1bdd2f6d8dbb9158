package events

// Event type constants for kelindar/event.
const (
	TypeBranchAdded uint32 = iota + 1
	TypeBranchRemoved
	TypeBranchNegotiated
	TypeStreamsConfigured
	TypeSessionState
	TypeControlChanged
	TypeIspApplied
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// BranchAddedEvent is published when an output branch is requested.
type BranchAddedEvent struct {
	BranchID  string `json:"branch_id" example:"src_1" doc:"Branch identifier"`
	Slot      int    `json:"slot" example:"1" doc:"Stream slot assigned to the branch"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BranchAddedEvent.
func (e BranchAddedEvent) Type() uint32 { return TypeBranchAdded }

// BranchRemovedEvent is published when an output branch is released.
type BranchRemovedEvent struct {
	BranchID  string `json:"branch_id" example:"src_1" doc:"Branch identifier"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BranchRemovedEvent.
func (e BranchRemovedEvent) Type() uint32 { return TypeBranchRemoved }

// BranchNegotiatedEvent carries the device configuration a branch resolved to.
type BranchNegotiatedEvent struct {
	BranchID  string `json:"branch_id" example:"src" doc:"Branch identifier"`
	Format    string `json:"format" example:"NV12" doc:"Pixel format"`
	Width     int    `json:"width" example:"1920" doc:"Frame width"`
	Height    int    `json:"height" example:"1080" doc:"Frame height"`
	Field     string `json:"field" example:"any" doc:"Field order"`
	Stride    int    `json:"stride" example:"1920" doc:"Device line stride in bytes"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BranchNegotiatedEvent.
func (e BranchNegotiatedEvent) Type() uint32 { return TypeBranchNegotiated }

// StreamsConfiguredEvent is published once per session after the single
// device configuration call succeeds.
type StreamsConfiguredEvent struct {
	SessionID     string   `json:"session_id" doc:"Device session identifier"`
	Branches      []string `json:"branches" doc:"Configured branches in slot order"`
	OperationMode string   `json:"operation_mode" example:"0x8001" doc:"Device operation mode"`
	Timestamp     string   `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamsConfiguredEvent.
func (e StreamsConfiguredEvent) Type() uint32 { return TypeStreamsConfigured }

// SessionStateEvent reports device session lifecycle changes.
type SessionStateEvent struct {
	SessionID string `json:"session_id" doc:"Device session identifier"`
	State     string `json:"state" example:"started" doc:"opened, streaming or closed"`
	Camera    int    `json:"camera" example:"0" doc:"Camera index"`
	Error     string `json:"error,omitempty" doc:"Failure that ended the session"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStateEvent.
func (e SessionStateEvent) Type() uint32 { return TypeSessionState }

// ControlChangedEvent is published for every accepted control value,
// including values clamped into the camera's range.
type ControlChangedEvent struct {
	Control   string `json:"control" example:"exposure-time" doc:"Control name"`
	Value     any    `json:"value" doc:"Value now in effect"`
	Requested any    `json:"requested,omitempty" doc:"Value asked for when it was clamped"`
	Clamped   bool   `json:"clamped" doc:"Whether the value was clamped"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ControlChangedEvent.
func (e ControlChangedEvent) Type() uint32 { return TypeControlChanged }

// IspAppliedEvent is published after the ISP register is pushed.
type IspAppliedEvent struct {
	Tags      int    `json:"tags" example:"4" doc:"Enabled tags pushed"`
	Error     string `json:"error,omitempty" doc:"Push failure"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for IspAppliedEvent.
func (e IspAppliedEvent) Type() uint32 { return TypeIspApplied }
