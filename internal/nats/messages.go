package nats

import (
	"encoding/json"

	"github.com/smazurov/camerasrc/internal/events"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "camerasrc"

// EventSubject returns the subject an event called name is published on.
func EventSubject(prefix, name string) string {
	return prefix + ".events." + name
}

// ControlSubject returns the request subject for a control verb (get or set).
func ControlSubject(prefix, verb string) string {
	return prefix + ".control." + verb
}

// ControlRequest asks for a control to be read or written.
type ControlRequest struct {
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
}

// ControlReply answers a ControlRequest. Error is empty on success.
type ControlReply struct {
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Marshal serializes the reply to JSON.
func (r ControlReply) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalControlRequest parses a request body.
func UnmarshalControlRequest(data []byte) (ControlRequest, error) {
	var req ControlRequest
	err := json.Unmarshal(data, &req)
	return req, err
}

// eventName maps an event to the last subject token.
func eventName(ev events.Event) string {
	switch ev.(type) {
	case events.BranchAddedEvent:
		return "branch-added"
	case events.BranchRemovedEvent:
		return "branch-removed"
	case events.BranchNegotiatedEvent:
		return "branch-negotiated"
	case events.StreamsConfiguredEvent:
		return "streams-configured"
	case events.SessionStateEvent:
		return "session-state"
	case events.ControlChangedEvent:
		return "control-changed"
	case events.IspAppliedEvent:
		return "isp-applied"
	default:
		return "unknown"
	}
}
