// Package source drives one camera through a device session: it opens the
// camera, negotiates every output branch, configures the device once and
// hands out stamped frames per branch.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/camerasrc/internal/branch"
	"github.com/smazurov/camerasrc/internal/config"
	"github.com/smazurov/camerasrc/internal/controls"
	"github.com/smazurov/camerasrc/internal/device"
	"github.com/smazurov/camerasrc/internal/events"
	"github.com/smazurov/camerasrc/internal/isp"
	"github.com/smazurov/camerasrc/internal/logging"
	"github.com/smazurov/camerasrc/internal/quorum"
	"github.com/smazurov/camerasrc/internal/timestamp"
)

var (
	ErrNotStarted     = errors.New("source not started")
	ErrAlreadyStarted = errors.New("source already started")
	ErrNotNegotiated  = errors.New("branch not negotiated")
	ErrInputBounds    = errors.New("input size out of range")
)

// Caps is the format a branch asks for.
type Caps struct {
	Format    device.FourCC
	Width     int
	Height    int
	Field     device.Field
	FrameRate float64
}

// Options configures a Source.
type Options struct {
	Logger *slog.Logger
	// Bus receives branch, session, control and ISP events. May be nil.
	Bus *events.Bus
	// PoolFactory builds the per-branch buffer pool. Defaults to heap pools.
	PoolFactory device.PoolFactory
	// Clock stamps presentation times. Defaults to a monotonic clock
	// started with each session.
	Clock timestamp.Clock
}

// Source owns the control cache, ISP register and branch registry for one
// camera and the device session while started.
type Source struct {
	driver  device.Driver
	cache   *controls.Cache
	isp     *isp.Register
	ltm     *isp.LTM
	reg     *branch.Registry
	bus     *events.Bus
	pools   device.PoolFactory
	clock   timestamp.Clock
	logger  *slog.Logger
	cameras []device.CameraInfo

	mu   sync.Mutex
	sess *session
}

// New builds a source over driver. The main branch exists from the start.
func New(driver device.Driver, opts Options) (*Source, error) {
	cameras, err := driver.Cameras()
	if err != nil {
		return nil, fmt.Errorf("enumerate cameras: %w", err)
	}
	if len(cameras) == 0 {
		return nil, device.ErrNoCamera
	}

	s := &Source{
		driver:  driver,
		reg:     branch.NewRegistry(),
		bus:     opts.Bus,
		pools:   opts.PoolFactory,
		clock:   opts.Clock,
		logger:  opts.Logger,
		cameras: cameras,
	}
	if s.logger == nil {
		s.logger = logging.GetLogger("source")
	}
	if s.pools == nil {
		s.pools = device.NewMemoryPoolFactory()
	}

	s.cache = controls.NewCache(
		controls.WithCameras(cameras),
		controls.WithOnChange(s.publishChange),
	)
	s.isp = isp.NewRegister(s.cache)
	s.isp.OnApply(s.publishIspApply)
	s.ltm = isp.NewLTM(s.cache)
	if err := s.cache.Handle(controls.NameIspControl, s.isp); err != nil {
		return nil, err
	}
	if err := s.cache.Handle(controls.NameLtmTuning, s.ltm); err != nil {
		return nil, err
	}

	s.logger.Info("Camera source created", "cameras", len(cameras))
	return s, nil
}

// Cameras lists the cameras the driver reported.
func (s *Source) Cameras() []device.CameraInfo {
	return s.cameras
}

// Controls exposes the control cache.
func (s *Source) Controls() *controls.Cache {
	return s.cache
}

// ISP exposes the ISP control register.
func (s *Source) ISP() *isp.Register {
	return s.isp
}

// SetControl sets one control by name.
func (s *Source) SetControl(name string, value any) error {
	return s.cache.Set(name, value)
}

// GetControl reads one control by name.
func (s *Source) GetControl(name string) (any, error) {
	return s.cache.Get(name)
}

// ApplyPresets sets every preset in order. All presets are attempted; the
// failures are joined.
func (s *Source) ApplyPresets(presets config.ControlPresets) error {
	var errs []error
	for _, p := range presets {
		if err := s.cache.Set(p.Name, p.Value); err != nil {
			s.logger.Warn("Control preset rejected", "control", p.Name, "value", p.Value, "error", err)
			errs = append(errs, err)
		}
	}
	if len(presets) > 0 {
		s.logger.Info("Applied control presets", "presets", len(presets), "rejected", len(errs))
	}
	return errors.Join(errs...)
}

// Start opens the camera selected by device-name with num-vc virtual
// channels, attaches the control cache and opens a fresh quorum.
func (s *Source) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		return ErrAlreadyStarted
	}

	camera, err := s.cache.CameraIndex()
	if err != nil {
		return err
	}
	dev, err := s.driver.Device(camera)
	if err != nil {
		return fmt.Errorf("select camera %d: %w", camera, err)
	}
	settings := s.cache.Settings()
	if err := dev.Open(settings.NumVC); err != nil {
		return fmt.Errorf("open camera %d: %w", camera, err)
	}
	if err := s.cache.Attach(dev); err != nil {
		s.cache.Detach()
		if cerr := dev.Close(); cerr != nil {
			s.logger.Warn("Failed to close camera", "camera", camera, "error", cerr)
		}
		return err
	}

	s.reg.ResetConfigDone()
	clock := s.clock
	if clock == nil {
		clock = timestamp.MonotonicClock()
	}
	sess := &session{
		id:       uuid.NewString(),
		camera:   camera,
		dev:      dev,
		clock:    clock,
		baseTime: clock.Now(),
		outputs:  make(map[string]*output),
	}
	sess.quorum = quorum.New(s.reg, s.configureFunc(sess))
	s.sess = sess
	sessionsActive.Set(1)

	s.logger.Info("Camera session opened", "session", sess.id, "camera", camera, "num_vc", settings.NumVC)
	s.publish(events.SessionStateEvent{SessionID: sess.id, State: "opened", Camera: camera, Timestamp: now()})
	return nil
}

// Stop releases every branch waiting on the quorum, stops streaming once,
// detaches the control cache and closes the camera.
func (s *Source) Stop() error {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()
	if sess == nil {
		return nil
	}

	sess.quorum.Cancel()
	var errs []error
	if err := sess.quorum.StopOnce(sess.dev.Stop); err != nil {
		errs = append(errs, fmt.Errorf("stop streaming: %w", err))
	}
	s.cache.Detach()
	sess.closeOutputs()
	if err := sess.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close camera: %w", err))
	}
	s.reg.ResetConfigDone()
	sessionsActive.Set(0)

	err := errors.Join(errs...)
	ev := events.SessionStateEvent{SessionID: sess.id, State: "closed", Camera: sess.camera, Timestamp: now()}
	if err != nil {
		ev.Error = err.Error()
		s.logger.Error("Camera session closed with errors", "session", sess.id, "error", err)
	} else {
		s.logger.Info("Camera session closed", "session", sess.id)
	}
	s.publish(ev)
	return err
}

// AddBranch registers a new output branch.
func (s *Source) AddBranch(id string) (branch.Branch, error) {
	b, err := s.reg.Add(id)
	if err != nil {
		return branch.Branch{}, err
	}
	s.publish(events.BranchAddedEvent{BranchID: b.ID, Slot: b.Slot, Timestamp: now()})
	return b, nil
}

// RemoveBranch drops an output branch. A removal that completes the
// quorum wakes a waiting branch, which then configures the device.
func (s *Source) RemoveBranch(id string) error {
	if err := s.reg.Remove(id); err != nil {
		return err
	}
	if sess := s.current(); sess != nil {
		sess.closeOutput(id)
		sess.quorum.Recheck()
	}
	s.publish(events.BranchRemovedEvent{BranchID: id, Timestamp: now()})
	return nil
}

// Branches lists the registered branches in slot order.
func (s *Source) Branches() []branch.Branch {
	return s.reg.Snapshot()
}

// Negotiate resolves caps for branch id against the camera's stream
// configurations, records the frame rate, waits for the quorum and builds
// the branch's buffer pool.
func (s *Source) Negotiate(ctx context.Context, id string, caps Caps) (device.StreamConfig, error) {
	sess := s.current()
	if sess == nil {
		return device.StreamConfig{}, ErrNotStarted
	}

	supported, err := sess.dev.SupportedConfigs()
	if err != nil {
		return device.StreamConfig{}, fmt.Errorf("enumerate stream configs: %w", err)
	}

	settings := s.cache.Settings()
	req := device.StreamConfig{
		Format: caps.Format,
		Width:  caps.Width,
		Height: caps.Height,
		Field:  caps.Field,
	}
	if req.Field == device.FieldAny {
		req.Field = settings.Interlace
	}
	if configured, member := sess.quorum.Configured(id); configured {
		b, _ := s.reg.Get(id)
		if !member || !b.Config.SameShape(req) {
			s.logger.Warn("Renegotiation after configure rejected", "branch", id, "format", req.Format.String(), "width", req.Width, "height", req.Height)
			return device.StreamConfig{}, fmt.Errorf("%w: %s", quorum.ErrReconfigureUnsupported, id)
		}
	}
	cfg, err := s.reg.Resolve(id, req, supported)
	if err != nil {
		return device.StreamConfig{}, err
	}

	if caps.FrameRate > 0 {
		if err := s.cache.Commit(func(p *device.Params) { p.FrameRate = caps.FrameRate }); err != nil {
			return device.StreamConfig{}, err
		}
	}
	s.publish(events.BranchNegotiatedEvent{
		BranchID:  id,
		Format:    cfg.Format.String(),
		Width:     cfg.Width,
		Height:    cfg.Height,
		Field:     cfg.Field.String(),
		Stride:    cfg.Stride,
		Timestamp: now(),
	})

	if err := sess.quorum.Arrive(ctx, id); err != nil {
		return device.StreamConfig{}, err
	}

	cfg.MemType = settings.MemoryType
	pool, err := s.pools(cfg, settings.BufferCount)
	if err != nil {
		return device.StreamConfig{}, fmt.Errorf("create buffer pool for %s: %w", id, err)
	}
	out := &output{
		cfg:     cfg,
		pool:    pool,
		stamper: timestamp.New(sess.clock, sess.baseTime),
	}
	if settings.PrintFPS {
		out.fps = timestamp.NewFPSMeter(id, s.logger)
	}
	if !sess.setOutput(id, out) {
		pool.Close()
		return device.StreamConfig{}, quorum.ErrCancelled
	}

	s.logger.Debug("Branch ready", "branch", id, "pool_size", pool.Size(), "memory", cfg.MemType.String())
	return cfg, nil
}

// Fill starts streaming on first use, then acquires and stamps the next
// buffer of branch id.
func (s *Source) Fill(ctx context.Context, id string) (*device.Buffer, error) {
	sess := s.current()
	if sess == nil {
		return nil, ErrNotStarted
	}
	out, ok := sess.output(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotNegotiated, id)
	}

	err := sess.quorum.StartOnce(func() error {
		if err := sess.dev.Start(); err != nil {
			return fmt.Errorf("start streaming: %w", err)
		}
		s.logger.Info("Streaming started", "session", sess.id)
		s.publish(events.SessionStateEvent{SessionID: sess.id, State: "streaming", Camera: sess.camera, Timestamp: now()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	buf, err := out.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if out.stamper.Stamp(buf, out.pool.AcquireIndex()) {
		framesStamped.Inc()
	} else {
		framesPassthrough.Inc()
	}
	if out.fps != nil {
		out.fps.Tick()
	}
	return buf, nil
}

// Release returns buf to the pool of branch id.
func (s *Source) Release(id string, buf *device.Buffer) {
	sess := s.current()
	if sess == nil {
		return
	}
	if out, ok := sess.output(id); ok {
		out.pool.Release(buf)
	}
}

// SessionInfo describes the running session.
type SessionInfo struct {
	ID        string       `json:"id"`
	Camera    int          `json:"camera"`
	State     quorum.State `json:"state"`
	Streaming bool         `json:"streaming"`
	Uptime    string       `json:"uptime"`
}

// Session reports the running session, if any.
func (s *Source) Session() (SessionInfo, bool) {
	sess := s.current()
	if sess == nil {
		return SessionInfo{}, false
	}
	return SessionInfo{
		ID:        sess.id,
		Camera:    sess.camera,
		State:     sess.quorum.State(),
		Streaming: sess.quorum.Started(),
		Uptime:    (sess.clock.Now() - sess.baseTime).Round(time.Millisecond).String(),
	}, true
}

func (s *Source) current() *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

func (s *Source) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func (s *Source) publishChange(c controls.Change) {
	s.publish(events.ControlChangedEvent{
		Control:   c.Name,
		Value:     c.Value,
		Requested: c.Requested,
		Clamped:   c.Clamped,
		Timestamp: now(),
	})
}

func (s *Source) publishIspApply(tags int, err error) {
	ev := events.IspAppliedEvent{Tags: tags, Timestamp: now()}
	if err != nil {
		ev.Error = err.Error()
	}
	s.publish(ev)
}
