package nats

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/camerasrc/internal/events"
)

// ControlTarget reads and writes controls. source.Source implements it.
type ControlTarget interface {
	SetControl(name string, value any) error
	GetControl(name string) (any, error)
}

// Bridge publishes bus events to NATS and serves control requests.
type Bridge struct {
	url    string
	prefix string
	bus    *events.Bus
	target ControlTarget
	logger *slog.Logger

	mu     sync.Mutex
	conn   *nats.Conn
	subs   []*nats.Subscription
	unsubs []func()
}

// NewBridge creates a bridge. An empty prefix means DefaultPrefix.
func NewBridge(url, prefix string, bus *events.Bus, target ControlTarget, logger *slog.Logger) *Bridge {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		url:    url,
		prefix: prefix,
		bus:    bus,
		target: target,
		logger: logger.With("component", "nats-bridge"),
	}
}

// Start connects, subscribes to the control subjects and starts forwarding
// bus events.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name(b.prefix+"-bridge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}
	b.conn = conn

	if b.target != nil {
		for verb, handler := range map[string]nats.MsgHandler{
			"get": b.handleGet,
			"set": b.handleSet,
		} {
			sub, err := conn.Subscribe(ControlSubject(b.prefix, verb), handler)
			if err != nil {
				b.cleanupLocked()
				return err
			}
			b.subs = append(b.subs, sub)
		}
	}

	if b.bus != nil {
		b.unsubs = []func(){
			b.bus.Subscribe(func(e events.BranchAddedEvent) { b.publish(e) }),
			b.bus.Subscribe(func(e events.BranchRemovedEvent) { b.publish(e) }),
			b.bus.Subscribe(func(e events.BranchNegotiatedEvent) { b.publish(e) }),
			b.bus.Subscribe(func(e events.StreamsConfiguredEvent) { b.publish(e) }),
			b.bus.Subscribe(func(e events.SessionStateEvent) { b.publish(e) }),
			b.bus.Subscribe(func(e events.ControlChangedEvent) { b.publish(e) }),
			b.bus.Subscribe(func(e events.IspAppliedEvent) { b.publish(e) }),
		}
	}

	b.logger.Info("NATS bridge connected", "url", b.url, "prefix", b.prefix)
	return nil
}

func (b *Bridge) publish(ev events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("Failed to marshal event", "error", err)
		return
	}

	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}

	subject := EventSubject(b.prefix, eventName(ev))
	if err := conn.Publish(subject, data); err != nil {
		b.logger.Debug("Failed to publish event", "subject", subject, "error", err)
	}
}

func (b *Bridge) handleGet(msg *nats.Msg) {
	req, err := UnmarshalControlRequest(msg.Data)
	if err != nil {
		b.reply(msg, ControlReply{Error: err.Error()})
		return
	}
	value, err := b.target.GetControl(req.Name)
	if err != nil {
		b.reply(msg, ControlReply{Name: req.Name, Error: err.Error()})
		return
	}
	b.reply(msg, ControlReply{Name: req.Name, Value: value})
}

func (b *Bridge) handleSet(msg *nats.Msg) {
	req, err := UnmarshalControlRequest(msg.Data)
	if err != nil {
		b.reply(msg, ControlReply{Error: err.Error()})
		return
	}
	if err := b.target.SetControl(req.Name, req.Value); err != nil {
		b.logger.Debug("Remote control write rejected", "control", req.Name, "error", err)
		b.reply(msg, ControlReply{Name: req.Name, Error: err.Error()})
		return
	}
	value, _ := b.target.GetControl(req.Name)
	b.logger.Info("Control set over NATS", "control", req.Name)
	b.reply(msg, ControlReply{Name: req.Name, Value: value})
}

func (b *Bridge) reply(msg *nats.Msg, r ControlReply) {
	data, err := r.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal control reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Debug("Failed to respond", "subject", msg.Subject, "error", err)
	}
}

func (b *Bridge) cleanupLocked() {
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Stop unsubscribes and closes the connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()

	// Bus handlers take mu, so they are detached outside of it.
	for _, unsub := range unsubs {
		unsub()
	}

	b.mu.Lock()
	b.cleanupLocked()
	b.mu.Unlock()
	b.logger.Info("NATS bridge stopped")
}

// IsConnected reports whether the bridge holds a live connection.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
