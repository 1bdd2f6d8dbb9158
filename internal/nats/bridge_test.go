package nats

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/camerasrc/internal/events"
)

type fakeControls struct {
	mu     sync.Mutex
	values map[string]any
}

var errUnknown = errors.New("unknown control")

func (f *fakeControls) SetControl(name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[name]; !ok {
		return errUnknown
	}
	f.values[name] = value
	return nil
}

func (f *fakeControls) GetControl(name string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[name]
	if !ok {
		return nil, errUnknown
	}
	return v, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(ServerOptions{Port: -1, Name: "test-server", Logger: quietLogger()})
	if err := srv.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func connect(t *testing.T, url string) *nats.Conn {
	t.Helper()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func request(t *testing.T, nc *nats.Conn, subject string, req ControlRequest) ControlReply {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := nc.Request(subject, data, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	var reply ControlReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		t.Fatal(err)
	}
	return reply
}

func TestServerStartStop(t *testing.T) {
	srv := NewServer(ServerOptions{Port: -1, Logger: quietLogger()})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	if !srv.IsRunning() {
		t.Error("server not running after Start")
	}
	if srv.ClientURL() == "" {
		t.Error("empty client URL")
	}
	srv.Stop()
	if srv.IsRunning() {
		t.Error("server still running after Stop")
	}
}

func TestBridgeForwardsEvents(t *testing.T) {
	srv := startServer(t)
	bus := events.New()
	bridge := NewBridge(srv.ClientURL(), "cam0", bus, nil, quietLogger())
	if err := bridge.Start(); err != nil {
		t.Fatal(err)
	}
	defer bridge.Stop()

	nc := connect(t, srv.ClientURL())
	sub, err := nc.SubscribeSync(EventSubject("cam0", "control-changed"))
	if err != nil {
		t.Fatal(err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatal(err)
	}

	bus.Publish(events.ControlChangedEvent{Control: "gain", Value: 12, Requested: 40, Clamped: true})

	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("no event: %v", err)
	}
	var got events.ControlChangedEvent
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Control != "gain" || !got.Clamped {
		t.Errorf("event = %+v", got)
	}
}

func TestBridgeServesControls(t *testing.T) {
	srv := startServer(t)
	target := &fakeControls{values: map[string]any{"gain": 1.0}}
	bridge := NewBridge(srv.ClientURL(), "", nil, target, quietLogger())
	if err := bridge.Start(); err != nil {
		t.Fatal(err)
	}
	defer bridge.Stop()
	if !bridge.IsConnected() {
		t.Fatal("bridge not connected")
	}

	nc := connect(t, srv.ClientURL())

	reply := request(t, nc, ControlSubject(DefaultPrefix, "set"), ControlRequest{Name: "gain", Value: 20})
	if reply.Error != "" || reply.Value != 20.0 {
		t.Errorf("set reply = %+v", reply)
	}

	reply = request(t, nc, ControlSubject(DefaultPrefix, "get"), ControlRequest{Name: "gain"})
	if reply.Error != "" || reply.Value != 20.0 {
		t.Errorf("get reply = %+v", reply)
	}

	reply = request(t, nc, ControlSubject(DefaultPrefix, "set"), ControlRequest{Name: "zoom", Value: 2})
	if reply.Error == "" {
		t.Errorf("unknown control accepted: %+v", reply)
	}
}

func TestBridgeUnreachableServer(t *testing.T) {
	bridge := NewBridge("nats://127.0.0.1:1", "", events.New(), &fakeControls{}, quietLogger())
	if err := bridge.Start(); err == nil {
		bridge.Stop()
		t.Fatal("Start succeeded without a server")
	}
	if bridge.IsConnected() {
		t.Error("bridge reports a connection")
	}
	bridge.Stop()
}

func TestEventName(t *testing.T) {
	tests := []struct {
		ev   events.Event
		want string
	}{
		{events.BranchAddedEvent{}, "branch-added"},
		{events.StreamsConfiguredEvent{}, "streams-configured"},
		{events.IspAppliedEvent{}, "isp-applied"},
	}
	for _, tt := range tests {
		if got := eventName(tt.ev); got != tt.want {
			t.Errorf("eventName(%T) = %q, want %q", tt.ev, got, tt.want)
		}
	}
}
