package controls

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/smazurov/camerasrc/internal/device"
	"github.com/smazurov/camerasrc/internal/logging"
)

// Handler serves an external control such as the ISP control file.
type Handler interface {
	SetControl(value string) error
	GetControl() (any, error)
}

// Change describes one value the cache accepted or adjusted.
type Change struct {
	Name  string
	Value any
	// Requested is set when reconciliation replaced the user's value.
	Requested any
	Clamped   bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger overrides the module logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithCameras restricts device-name to the given cameras.
func WithCameras(cameras []device.CameraInfo) Option {
	return func(c *Cache) { c.cameras = slices.Clone(cameras) }
}

// WithOnChange registers a callback invoked after every accepted change.
// It runs outside the cache lock.
func WithOnChange(fn func(Change)) Option {
	return func(c *Cache) { c.onChange = fn }
}

// Cache holds the control state and the device parameter set. One mutex
// guards both and every push to the device.
type Cache struct {
	mu       sync.Mutex
	state    State
	params   device.Params
	dev      device.Device
	handlers map[string]Handler

	cameras  []device.CameraInfo
	onChange func(Change)
	logger   *slog.Logger
}

// NewCache builds a cache holding every control's default.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		state:    newState(),
		handlers: make(map[string]Handler),
		logger:   logging.GetLogger("controls"),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, ctrl := range controlTable {
		if ctrl.apply == nil || ctrl.Default == "" {
			continue
		}
		_, canonical, err := ctrl.coerce(ctrl.Default)
		if err == nil {
			err = ctrl.apply(&c.params, canonical)
		}
		if err != nil {
			panic(fmt.Sprintf("controls: bad default for %s: %v", ctrl.Name, err))
		}
	}
	return c
}

// Handle registers the handler serving an external control.
func (c *Cache) Handle(name string, h Handler) error {
	ctrl, ok := Lookup(name)
	if !ok || !ctrl.External {
		return fmt.Errorf("%w: %s is not an external control", ErrUnknownControl, name)
	}
	c.mu.Lock()
	c.handlers[name] = h
	c.mu.Unlock()
	return nil
}

// Set validates value, caches it and, when a device is attached and the
// control dispatches, pushes the whole parameter set. A push failure leaves
// the value cached and is returned.
func (c *Cache) Set(name string, value any) (err error) {
	ctrl, ok := Lookup(name)
	if !ok {
		controlSets.WithLabelValues("unknown", "error").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownControl, name)
	}
	defer func() { controlSets.WithLabelValues(name, result(err)).Inc() }()

	if ctrl.External {
		return c.setExternal(ctrl, value)
	}

	stored, canonical, err := ctrl.coerce(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if name == NameDeviceName {
		if err := c.checkCamera(stored.(string)); err != nil {
			return err
		}
	}

	c.mu.Lock()
	if ctrl.apply != nil {
		if err := ctrl.apply(&c.params, canonical); err != nil {
			c.mu.Unlock()
			c.logger.Warn("Rejected control value", "control", name, "value", value, "error", err)
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	c.state.values[name] = stored

	changes := []Change{{Name: name, Value: stored}}
	switch name {
	case NameExposureTime:
		c.state.ManualExposure = true
	case NameGain:
		c.state.ManualGain = true
	case NameSceneMode:
		c.state.ManualScene = true
	}
	switch name {
	case NameExposureTime, NameGain, NameSceneMode, NameDeviceName:
		changes = append(changes, c.reconcileLocked()...)
	}

	var pushErr error
	if c.dev != nil && ctrl.Dispatch {
		pushErr = c.pushLocked()
	}
	c.mu.Unlock()

	c.logger.Debug("Control set", "control", name, "value", stored, "pushed", c.attached() && ctrl.Dispatch)
	c.notify(changes)
	return pushErr
}

func (c *Cache) setExternal(ctrl *Control, value any) error {
	c.mu.Lock()
	h := c.handlers[ctrl.Name]
	c.mu.Unlock()
	if h == nil {
		return fmt.Errorf("%w: %s has no handler", ErrUnknownControl, ctrl.Name)
	}
	s, err := toString(value)
	if err != nil {
		return fmt.Errorf("%s: %w", ctrl.Name, err)
	}
	if err := h.SetControl(s); err != nil {
		return fmt.Errorf("%s: %w", ctrl.Name, err)
	}

	c.mu.Lock()
	c.state.values[ctrl.Name] = s
	c.mu.Unlock()
	c.notify([]Change{{Name: ctrl.Name, Value: s}})
	return nil
}

func (c *Cache) checkCamera(name string) error {
	if name == "" || len(c.cameras) == 0 {
		return nil
	}
	if slices.ContainsFunc(c.cameras, func(ci device.CameraInfo) bool { return ci.Name == name }) {
		return nil
	}
	return fmt.Errorf("%s: %w: unknown camera %q", NameDeviceName, ErrInvalidValue, name)
}

// CameraIndex resolves device-name to a driver index; empty selects camera 0.
func (c *Cache) CameraIndex() (int, error) {
	c.mu.Lock()
	name := c.state.stringValue(NameDeviceName)
	c.mu.Unlock()

	if name == "" {
		return 0, nil
	}
	for _, ci := range c.cameras {
		if ci.Name == name {
			return ci.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown camera %q", ErrInvalidValue, name)
}

// Get returns the value of name. Live controls read the attached device;
// while detached they fall back to the cached value.
func (c *Cache) Get(name string) (any, error) {
	ctrl, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownControl, name)
	}

	c.mu.Lock()
	h := c.handlers[name]
	dev := c.dev
	cached := c.state.Value(name)
	c.mu.Unlock()

	switch {
	case ctrl.External && h != nil:
		return h.GetControl()
	case ctrl.live != nil && dev != nil:
		p, err := dev.GetParameters()
		if err != nil {
			return nil, wrapDevice("get parameters", err)
		}
		return ctrl.live(p), nil
	default:
		return cached, nil
	}
}

// Attach makes dev the push target, reconciles exposure settings against
// its limits and pushes everything cached so far.
func (c *Cache) Attach(dev device.Device) error {
	c.mu.Lock()
	c.dev = dev
	changes := c.reconcileLocked()
	err := c.pushLocked()
	c.mu.Unlock()

	c.notify(changes)
	return err
}

// Detach stops pushing; later sets are cached only.
func (c *Cache) Detach() {
	c.mu.Lock()
	c.dev = nil
	c.mu.Unlock()
}

// Commit applies mutate to the parameter set and pushes it when attached.
func (c *Cache) Commit(mutate func(p *device.Params)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	mutate(&c.params)
	if c.dev == nil {
		return nil
	}
	return c.pushLocked()
}

// Live reads the parameter set back from the attached device.
func (c *Cache) Live() (device.Params, error) {
	c.mu.Lock()
	dev := c.dev
	c.mu.Unlock()
	if dev == nil {
		return device.Params{}, ErrDetached
	}
	p, err := dev.GetParameters()
	if err != nil {
		return device.Params{}, wrapDevice("get parameters", err)
	}
	return p, nil
}

// Params returns a copy of the cached parameter set.
func (c *Cache) Params() device.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.Clone()
}

// State returns a copy of the control state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Settings returns the session-level settings.
func (c *Cache) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.settings()
}

func (c *Cache) attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev != nil
}

// reconcileLocked clamps manually set exposure and gain into the attached
// camera's range for the current scene mode and copies the manual values
// into the parameter set. Caller holds c.mu.
func (c *Cache) reconcileLocked() []Change {
	var changes []Change
	scene := c.state.sceneMode()

	if c.state.ManualScene {
		c.params.SceneMode = scene
	}

	if c.state.ManualExposure {
		exposure := c.state.intValue(NameExposureTime)
		if r, ok := c.exposureRangeLocked(scene); ok {
			if clamped := min(max(exposure, r.Min), r.Max); clamped != exposure {
				changes = append(changes, c.clampedLocked(NameExposureTime, exposure, clamped))
				exposure = clamped
			}
		}
		c.params.ExposureTime = exposure
	}

	if c.state.ManualGain {
		gain := c.state.floatValue(NameGain)
		if r, ok := c.gainRangeLocked(scene); ok {
			if clamped := min(max(gain, r.Min), r.Max); clamped != gain {
				changes = append(changes, c.clampedLocked(NameGain, gain, clamped))
				gain = clamped
			}
		}
		c.params.Gain = gain
	}

	return changes
}

func (c *Cache) clampedLocked(name string, requested, clamped any) Change {
	c.state.values[name] = clamped
	controlClamps.WithLabelValues(name).Inc()
	c.logger.Info("Clamped control to camera range", "control", name, "requested", requested, "value", clamped)
	return Change{Name: name, Value: clamped, Requested: requested, Clamped: true}
}

func (c *Cache) exposureRangeLocked(scene device.SceneMode) (device.ExposureRange, bool) {
	if c.dev == nil {
		return device.ExposureRange{}, false
	}
	ranges, err := c.dev.ExposureTimeRanges()
	if err != nil {
		c.logger.Warn("Failed to read exposure ranges", "error", err)
		return device.ExposureRange{}, false
	}
	i := slices.IndexFunc(ranges, func(r device.ExposureRange) bool { return r.SceneMode == scene })
	if i < 0 {
		return device.ExposureRange{}, false
	}
	return ranges[i], true
}

func (c *Cache) gainRangeLocked(scene device.SceneMode) (device.GainRange, bool) {
	if c.dev == nil {
		return device.GainRange{}, false
	}
	ranges, err := c.dev.GainRanges()
	if err != nil {
		c.logger.Warn("Failed to read gain ranges", "error", err)
		return device.GainRange{}, false
	}
	i := slices.IndexFunc(ranges, func(r device.GainRange) bool { return r.SceneMode == scene })
	if i < 0 {
		return device.GainRange{}, false
	}
	return ranges[i], true
}

func (c *Cache) pushLocked() error {
	err := c.dev.SetParameters(c.params.Clone())
	parameterPushes.WithLabelValues(result(err)).Inc()
	if err != nil {
		c.logger.Error("Failed to push parameters", "error", err)
		return wrapDevice("set parameters", err)
	}
	return nil
}

func (c *Cache) notify(changes []Change) {
	if c.onChange == nil {
		return
	}
	for _, ch := range changes {
		c.onChange(ch)
	}
}

func wrapDevice(op string, err error) error {
	if errors.Is(err, device.ErrDeviceCall) {
		return err
	}
	return device.CallFailed(op, err)
}
