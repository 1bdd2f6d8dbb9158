package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// SimConfig shapes a Simulated camera.
type SimConfig struct {
	Name           string
	Configs        []StreamConfig
	ExposureRanges []ExposureRange
	GainRanges     []GainRange

	// ConfigureDelay stretches Configure so concurrent callers overlap.
	ConfigureDelay time.Duration
	// ConfigureErr, when set, is returned by every Configure call.
	ConfigureErr error
	// Transform rewrites the stored parameters on GetParameters, standing in
	// for firmware that adjusts what it was given.
	Transform func(Params) Params
}

// DefaultSimConfig is a 1080p-capable camera with NV12, YUY2 and UYVY outputs
// and per-scene exposure limits for auto and HDR.
func DefaultSimConfig() SimConfig {
	var configs []StreamConfig
	for _, format := range []FourCC{FormatNV12, FormatYUY2, FormatUYVY} {
		for _, size := range [][2]int{{1920, 1080}, {1280, 720}, {640, 480}} {
			configs = append(configs, NewStreamConfig(format, size[0], size[1], FieldAny))
		}
	}
	configs = append(configs, NewStreamConfig(FormatUYVY, 1920, 1080, FieldAlternate))

	return SimConfig{
		Name:    "simulated",
		Configs: configs,
		ExposureRanges: []ExposureRange{
			{SceneMode: SceneAuto, Min: 90, Max: 33333},
			{SceneMode: SceneHDR, Min: 90, Max: 16666},
		},
		GainRanges: []GainRange{
			{SceneMode: SceneAuto, Min: 0, Max: 60},
			{SceneMode: SceneHDR, Min: 0, Max: 30},
		},
	}
}

// NewStreamConfig fills in stride and frame size for the common formats.
func NewStreamConfig(format FourCC, width, height int, field Field) StreamConfig {
	cfg := StreamConfig{Format: format, Width: width, Height: height, Field: field}
	switch format {
	case FormatNV12:
		cfg.Stride = width
		cfg.Size = width * height * 3 / 2
	case FormatYUY2, FormatUYVY:
		cfg.Stride = width * 2
		cfg.Size = cfg.Stride * height
	case FormatRGB3:
		cfg.Stride = width * 3
		cfg.Size = cfg.Stride * height
	default:
		cfg.Stride = width * 4
		cfg.Size = cfg.Stride * height
	}
	return cfg
}

// Simulated is an in-memory Device.
type Simulated struct {
	cfg SimConfig

	mu          sync.Mutex
	open        bool
	streaming   bool
	numVC       int
	params      Params
	lastStreams StreamList
	lastInput   InputConfig

	ConfigureCalls atomic.Int32
	SetCalls       atomic.Int32
	StartCalls     atomic.Int32
	StopCalls      atomic.Int32
}

// NewSimulated creates a closed simulated camera.
func NewSimulated(cfg SimConfig) *Simulated {
	return &Simulated{cfg: cfg}
}

// Open implements Device.
func (s *Simulated) Open(numVC int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return CallFailed("open", errors.New("already open"))
	}
	s.open = true
	s.numVC = numVC
	return nil
}

// Close implements Device.
func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.streaming = false
	return nil
}

// SupportedConfigs implements Device.
func (s *Simulated) SupportedConfigs() ([]StreamConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, CallFailed("enumerate", ErrNotOpen)
	}
	out := make([]StreamConfig, len(s.cfg.Configs))
	copy(out, s.cfg.Configs)
	return out, nil
}

// Configure implements Device.
func (s *Simulated) Configure(streams StreamList, input InputConfig) error {
	s.ConfigureCalls.Add(1)
	if s.cfg.ConfigureDelay > 0 {
		time.Sleep(s.cfg.ConfigureDelay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return CallFailed("configure", ErrNotOpen)
	}
	if s.cfg.ConfigureErr != nil {
		return CallFailed("configure", s.cfg.ConfigureErr)
	}
	if len(streams.Streams) == 0 {
		return CallFailed("configure", errors.New("empty stream list"))
	}
	s.lastStreams = StreamList{
		Streams:       append([]StreamConfig(nil), streams.Streams...),
		OperationMode: streams.OperationMode,
	}
	s.lastInput = input
	return nil
}

// Start implements Device.
func (s *Simulated) Start() error {
	s.StartCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return CallFailed("start", ErrNotOpen)
	}
	if len(s.lastStreams.Streams) == 0 {
		return CallFailed("start", errors.New("streams not configured"))
	}
	s.streaming = true
	return nil
}

// Stop implements Device.
func (s *Simulated) Stop() error {
	s.StopCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = false
	return nil
}

// SetParameters implements Device.
func (s *Simulated) SetParameters(p Params) error {
	s.SetCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return CallFailed("set parameters", ErrNotOpen)
	}
	s.params = p.Clone()
	return nil
}

// GetParameters implements Device.
func (s *Simulated) GetParameters() (Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return Params{}, CallFailed("get parameters", ErrNotOpen)
	}
	p := s.params.Clone()
	if s.cfg.Transform != nil {
		p = s.cfg.Transform(p)
	}
	return p, nil
}

// ExposureTimeRanges implements Device.
func (s *Simulated) ExposureTimeRanges() ([]ExposureRange, error) {
	return append([]ExposureRange(nil), s.cfg.ExposureRanges...), nil
}

// GainRanges implements Device.
func (s *Simulated) GainRanges() ([]GainRange, error) {
	return append([]GainRange(nil), s.cfg.GainRanges...), nil
}

// Streaming reports whether Start ran without a later Stop.
func (s *Simulated) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// LastConfigure returns the arguments of the most recent successful Configure.
func (s *Simulated) LastConfigure() (StreamList, InputConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStreams, s.lastInput
}

// NumVC returns the virtual channel count passed to Open.
func (s *Simulated) NumVC() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numVC
}

// SimDriver serves a fixed list of simulated cameras.
type SimDriver struct {
	devices []*Simulated
}

// NewSimDriver returns a driver whose camera i is devices[i].
func NewSimDriver(devices ...*Simulated) *SimDriver {
	return &SimDriver{devices: devices}
}

// Cameras implements Driver.
func (d *SimDriver) Cameras() ([]CameraInfo, error) {
	out := make([]CameraInfo, len(d.devices))
	for i, dev := range d.devices {
		name := dev.cfg.Name
		if name == "" {
			name = fmt.Sprintf("sim-%d", i)
		}
		out[i] = CameraInfo{ID: i, Name: name}
	}
	return out, nil
}

// Device implements Driver.
func (d *SimDriver) Device(id int) (Device, error) {
	if id < 0 || id >= len(d.devices) {
		return nil, fmt.Errorf("%w: %d", ErrNoCamera, id)
	}
	return d.devices[id], nil
}
