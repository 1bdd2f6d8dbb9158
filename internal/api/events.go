package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/camerasrc/internal/api/models"
	"github.com/smazurov/camerasrc/internal/events"
)

// registerEventRoutes registers the SSE stream of source events.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Branch, session, control and ISP events as they happen",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"session":            models.SessionData{},
		"branch-added":       events.BranchAddedEvent{},
		"branch-removed":     events.BranchRemovedEvent{},
		"branch-negotiated":  events.BranchNegotiatedEvent{},
		"streams-configured": events.StreamsConfiguredEvent{},
		"session-state":      events.SessionStateEvent{},
		"control-changed":    events.ControlChangedEvent{},
		"isp-applied":        events.IspAppliedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.BranchAddedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.BranchRemovedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.BranchNegotiatedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.StreamsConfiguredEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.SessionStateEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.ControlChangedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.IspAppliedEvent](s.bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		if err := send.Data(s.sessionData()); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
