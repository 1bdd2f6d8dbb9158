package controls

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/smazurov/camerasrc/internal/device"
)

func newTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewCache(opts...)
}

func openSim(t *testing.T, cfg device.SimConfig) *device.Simulated {
	t.Helper()
	sim := device.NewSimulated(cfg)
	if err := sim.Open(0); err != nil {
		t.Fatal(err)
	}
	return sim
}

func mustSet(t *testing.T, c *Cache, name string, value any) {
	t.Helper()
	if err := c.Set(name, value); err != nil {
		t.Fatalf("Set(%s, %v): %v", name, value, err)
	}
}

func mustGet(t *testing.T, c *Cache, name string) any {
	t.Helper()
	v, err := c.Get(name)
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	return v
}

func TestCacheDefaults(t *testing.T) {
	c := newTestCache(t)

	tests := []struct {
		name string
		want any
	}{
		{NameBufferCount, DefaultBufferCount},
		{NameExposureTime, 90},
		{NameGain, 0.0},
		{"wdr-level", 100},
		{NameSceneMode, "auto"},
		{"awb-mode", "auto"},
		{NameIOMode, "userptr"},
		{NamePrintFPS, false},
		{"ae-region", ""},
	}
	for _, tt := range tests {
		if got := mustGet(t, c, tt.name); got != tt.want {
			t.Errorf("Get(%s) = %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
		}
	}

	p := c.Params()
	if p.WdrLevel != 100 {
		t.Errorf("params WdrLevel = %d, want 100", p.WdrLevel)
	}
	if p.ExposureTime != 0 {
		t.Errorf("exposure reached params without a manual set: %d", p.ExposureTime)
	}

	st := c.State()
	if st.ManualExposure || st.ManualGain || st.ManualScene {
		t.Errorf("manual flags set by default: %+v", st)
	}
}

func TestCacheSetBeforeAttachIsDispatchedOnAttach(t *testing.T) {
	c := newTestCache(t)
	sim := openSim(t, device.DefaultSimConfig())

	mustSet(t, c, "brightness", 20)
	mustSet(t, c, "awb-mode", "daylight")
	if sim.SetCalls.Load() != 0 {
		t.Fatal("detached cache pushed to the device")
	}

	if err := c.Attach(sim); err != nil {
		t.Fatal(err)
	}
	if sim.SetCalls.Load() != 1 {
		t.Errorf("SetCalls after Attach = %d, want 1", sim.SetCalls.Load())
	}
	live, err := sim.GetParameters()
	if err != nil {
		t.Fatal(err)
	}
	if live.Enhancement.Brightness != 20 || live.AwbMode != device.AwbDaylight {
		t.Errorf("device params = %+v", live)
	}
}

func TestCacheDispatchWhileAttached(t *testing.T) {
	c := newTestCache(t)
	sim := openSim(t, device.DefaultSimConfig())
	if err := c.Attach(sim); err != nil {
		t.Fatal(err)
	}
	base := sim.SetCalls.Load()

	mustSet(t, c, "contrast", -5)
	if got := sim.SetCalls.Load() - base; got != 1 {
		t.Errorf("dispatching control pushed %d times", got)
	}

	mustSet(t, c, NameBufferCount, 4)
	mustSet(t, c, NamePrintFPS, true)
	if got := sim.SetCalls.Load() - base; got != 1 {
		t.Errorf("cache-only controls pushed, total pushes %d", got)
	}

	c.Detach()
	mustSet(t, c, "contrast", 5)
	if got := sim.SetCalls.Load() - base; got != 1 {
		t.Errorf("detached cache pushed, total pushes %d", got)
	}
}

func TestExposureClampedToSceneRange(t *testing.T) {
	cfg := device.DefaultSimConfig()
	cfg.ExposureRanges = []device.ExposureRange{{SceneMode: device.SceneAuto, Min: 90, Max: 1000}}

	var changes []Change
	c := newTestCache(t, WithOnChange(func(ch Change) { changes = append(changes, ch) }))
	sim := openSim(t, cfg)
	if err := c.Attach(sim); err != nil {
		t.Fatal(err)
	}

	mustSet(t, c, NameExposureTime, 5000)

	if got := mustGet(t, c, NameExposureTime); got != 1000 {
		t.Errorf("cached exposure = %v, want 1000", got)
	}
	if c.Params().ExposureTime != 1000 {
		t.Errorf("params exposure = %d, want 1000", c.Params().ExposureTime)
	}
	live, _ := sim.GetParameters()
	if live.ExposureTime != 1000 {
		t.Errorf("device exposure = %d, want 1000", live.ExposureTime)
	}

	var clamped *Change
	for i := range changes {
		if changes[i].Clamped {
			clamped = &changes[i]
		}
	}
	if clamped == nil || clamped.Requested != 5000 || clamped.Value != 1000 {
		t.Errorf("clamp change = %+v", clamped)
	}
}

func TestGainClampOnlyAfterManualSet(t *testing.T) {
	cfg := device.DefaultSimConfig()
	cfg.GainRanges = []device.GainRange{{SceneMode: device.SceneHDR, Min: 20, Max: 30}}
	c := newTestCache(t)
	if err := c.Attach(openSim(t, cfg)); err != nil {
		t.Fatal(err)
	}

	mustSet(t, c, NameSceneMode, "hdr")
	if got := mustGet(t, c, NameGain); got != 0.0 {
		t.Errorf("gain clamped without manual flag: %v", got)
	}
	if c.Params().Gain != 0 {
		t.Errorf("params gain = %v, want 0", c.Params().Gain)
	}

	mustSet(t, c, NameGain, 10.0)
	if !c.State().ManualGain {
		t.Error("gain set did not raise the manual flag")
	}
	if got := mustGet(t, c, NameGain); got != 20.0 {
		t.Errorf("gain = %v, want clamp to 20", got)
	}
	if c.Params().SceneMode != device.SceneHDR {
		t.Errorf("params scene = %v, want hdr", c.Params().SceneMode)
	}
}

func TestSceneChangeReclampsExposure(t *testing.T) {
	c := newTestCache(t)
	if err := c.Attach(openSim(t, device.DefaultSimConfig())); err != nil {
		t.Fatal(err)
	}

	mustSet(t, c, NameExposureTime, 20000)
	if got := mustGet(t, c, NameExposureTime); got != 20000 {
		t.Fatalf("exposure in auto range = %v", got)
	}

	mustSet(t, c, NameSceneMode, "hdr")
	if got := mustGet(t, c, NameExposureTime); got != 16666 {
		t.Errorf("exposure after hdr = %v, want 16666", got)
	}
}

func TestNoRangeMeansNoClamp(t *testing.T) {
	cfg := device.DefaultSimConfig()
	cfg.ExposureRanges = nil
	c := newTestCache(t)
	if err := c.Attach(openSim(t, cfg)); err != nil {
		t.Fatal(err)
	}

	mustSet(t, c, NameExposureTime, 33000)
	if got := mustGet(t, c, NameExposureTime); got != 33000 {
		t.Errorf("exposure = %v, want unchanged 33000", got)
	}

	mustSet(t, c, NameSceneMode, "ull")
	if got := mustGet(t, c, NameExposureTime); got != 33000 {
		t.Errorf("exposure with no ull range = %v", got)
	}
}

func TestClampOnAttach(t *testing.T) {
	cfg := device.DefaultSimConfig()
	cfg.ExposureRanges = []device.ExposureRange{{SceneMode: device.SceneAuto, Min: 100, Max: 500}}
	c := newTestCache(t)

	mustSet(t, c, NameExposureTime, 90)
	if err := c.Attach(openSim(t, cfg)); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, c, NameExposureTime); got != 100 {
		t.Errorf("exposure after attach = %v, want 100", got)
	}
}

func TestMalformedTextKeepsPreviousValue(t *testing.T) {
	c := newTestCache(t)

	mustSet(t, c, "color-transform", "1,0,0,0,1,0,0,0,1")
	before := c.Params().ColorTransform

	err := c.Set("color-transform", "1,2,3")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
	if c.Params().ColorTransform != before {
		t.Error("rejected matrix modified params")
	}
	if got := mustGet(t, c, "color-transform"); got != "1,0,0,0,1,0,0,0,1" {
		t.Errorf("cached string = %v", got)
	}

	mustSet(t, c, "expo-time-range", "100~200")
	if err := c.Set("expo-time-range", "300~100"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v", err)
	}
	if r := c.Params().ExposureTimeRange; r != (device.IntRange{Min: 100, Max: 200}) {
		t.Errorf("range = %+v", r)
	}

	if err := c.Set("ae-region", "1,2,3,4"); !errors.Is(err, ErrMalformed) {
		t.Errorf("ae-region err = %v", err)
	}
}

func TestColorTransformClampedInParams(t *testing.T) {
	c := newTestCache(t)
	mustSet(t, c, "color-transform", "-3,0,0,0,1,0,0,0,3")

	m := c.Params().ColorTransform
	if m[0][0] != -2 || m[2][2] != 2 || m[1][1] != 1 {
		t.Errorf("matrix = %v", m)
	}
}

func TestSpecialApplyRules(t *testing.T) {
	c := newTestCache(t)

	mustSet(t, c, "converge-speed", "low")
	mustSet(t, c, "converge-speed-mode", "hal")
	mustSet(t, c, "custom-aic-param", "abc")
	mustSet(t, c, NameDeinterlaceMethod, "hw_weaving")
	mustSet(t, c, "gain-range", "1.5~20")

	p := c.Params()
	if p.AeConvergeSpeed != device.ConvergeLow || p.AwbConvergeSpeed != device.ConvergeLow {
		t.Errorf("converge speed = %v/%v", p.AeConvergeSpeed, p.AwbConvergeSpeed)
	}
	if p.AeConvergeSpeedMode != device.ConvergeModeHAL || p.AwbConvergeSpeedMode != device.ConvergeModeHAL {
		t.Errorf("converge mode = %v/%v", p.AeConvergeSpeedMode, p.AwbConvergeSpeedMode)
	}
	if string(p.CustomAicParam) != "abc\x00" {
		t.Errorf("custom aic = %q", p.CustomAicParam)
	}
	if p.DeinterlaceMode != device.DeinterlaceWeaving {
		t.Errorf("deinterlace = %v", p.DeinterlaceMode)
	}
	if p.GainRange != (device.FloatRange{Min: 1.5, Max: 20}) {
		t.Errorf("gain range = %+v", p.GainRange)
	}

	mustSet(t, c, NameDeinterlaceMethod, "sw_bob")
	if c.Params().DeinterlaceMode != device.DeinterlaceOff {
		t.Error("software deinterlace reached the camera")
	}
}

func TestSetValidation(t *testing.T) {
	c := newTestCache(t)

	tests := []struct {
		name    string
		value   any
		wantErr error
	}{
		{"sharpness", 200, ErrOutOfRange},
		{NameBufferCount, 1, ErrOutOfRange},
		{NameGain, 61.0, ErrOutOfRange},
		{NameSceneMode, "sunny", ErrInvalidValue},
		{NameSceneMode, 99, ErrInvalidValue},
		{"brightness", "bright", ErrInvalidValue},
		{NamePrintFPS, 3, ErrInvalidValue},
		{NameInputFormat, "toolong", ErrMalformed},
		{"no-such-control", 1, ErrUnknownControl},
	}
	for _, tt := range tests {
		if err := c.Set(tt.name, tt.value); !errors.Is(err, tt.wantErr) {
			t.Errorf("Set(%s, %v) err = %v, want %v", tt.name, tt.value, err, tt.wantErr)
		}
	}
}

func TestSetCoercesInputShapes(t *testing.T) {
	c := newTestCache(t)

	mustSet(t, c, "hue", int64(-12))
	mustSet(t, c, "saturation", float64(7))
	mustSet(t, c, "iris-level", "40")
	mustSet(t, c, NameSceneMode, int(device.SceneULL))
	mustSet(t, c, NamePrintField, "true")
	mustSet(t, c, NameGain, int64(12))

	if got := mustGet(t, c, "hue"); got != -12 {
		t.Errorf("hue = %v", got)
	}
	if got := mustGet(t, c, "saturation"); got != 7 {
		t.Errorf("saturation = %v", got)
	}
	if got := mustGet(t, c, NameSceneMode); got != "ull" {
		t.Errorf("scene = %v", got)
	}
	if got := mustGet(t, c, NameGain); got != 12.0 {
		t.Errorf("gain = %v", got)
	}
	if err := c.Set("saturation", 1.5); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("fractional int err = %v", err)
	}
}

func TestDewarpingReadsDevice(t *testing.T) {
	cfg := device.DefaultSimConfig()
	cfg.Transform = func(p device.Params) device.Params {
		p.DewarpingMode = device.DewarpingHitchview
		return p
	}
	c := newTestCache(t)
	mustSet(t, c, NameDewarpingMode, "rearview")

	if got := mustGet(t, c, NameDewarpingMode); got != "rearview" {
		t.Errorf("detached get = %v, want cached rearview", got)
	}

	if err := c.Attach(openSim(t, cfg)); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, c, NameDewarpingMode); got != "hitchview" {
		t.Errorf("live get = %v, want hitchview", got)
	}
}

type stubHandler struct {
	mu   sync.Mutex
	last string
	err  error
}

func (h *stubHandler) SetControl(v string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.last = v
	return nil
}

func (h *stubHandler) GetControl() (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return "live:" + h.last, nil
}

func TestExternalControls(t *testing.T) {
	c := newTestCache(t)

	if err := c.Set(NameIspControl, "/tmp/isp.bin"); !errors.Is(err, ErrUnknownControl) {
		t.Errorf("unhandled external err = %v", err)
	}
	if err := c.Handle("sharpness", &stubHandler{}); err == nil {
		t.Error("Handle accepted a regular control")
	}

	h := &stubHandler{}
	if err := c.Handle(NameIspControl, h); err != nil {
		t.Fatal(err)
	}
	mustSet(t, c, NameIspControl, "/tmp/isp.bin")
	if got := mustGet(t, c, NameIspControl); got != "live:/tmp/isp.bin" {
		t.Errorf("Get = %v", got)
	}

	h.err = errors.New("boom")
	if err := c.Set(NameIspControl, "/tmp/other.bin"); err == nil {
		t.Error("handler error not returned")
	}
}

func TestDeviceNameSelection(t *testing.T) {
	c := newTestCache(t, WithCameras([]device.CameraInfo{{ID: 0, Name: "front"}, {ID: 1, Name: "rear"}}))

	if idx, err := c.CameraIndex(); err != nil || idx != 0 {
		t.Errorf("default CameraIndex = %d, %v", idx, err)
	}
	mustSet(t, c, NameDeviceName, "rear")
	if idx, err := c.CameraIndex(); err != nil || idx != 1 {
		t.Errorf("CameraIndex = %d, %v", idx, err)
	}
	if err := c.Set(NameDeviceName, "side"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("unknown camera err = %v", err)
	}
}

func TestSettings(t *testing.T) {
	c := newTestCache(t)
	mustSet(t, c, NameIOMode, "dma_import")
	mustSet(t, c, NameInterlaceMode, "alternate")
	mustSet(t, c, NameInputWidth, 1920)
	mustSet(t, c, NameInputFormat, "NV12")
	mustSet(t, c, NameSceneMode, "hdr")
	mustSet(t, c, NameNumVC, 4)

	s := c.Settings()
	if s.MemoryType != device.MemoryDMABuf {
		t.Errorf("MemoryType = %v", s.MemoryType)
	}
	if s.Interlace != device.FieldAlternate {
		t.Errorf("Interlace = %v", s.Interlace)
	}
	if s.InputWidth != 1920 || s.InputFormat != device.FormatNV12 {
		t.Errorf("input = %dx? %v", s.InputWidth, s.InputFormat)
	}
	if s.SceneMode != device.SceneHDR || s.NumVC != 4 || s.BufferCount != DefaultBufferCount {
		t.Errorf("settings = %+v", s)
	}
}

type failingDevice struct {
	*device.Simulated
}

func (failingDevice) SetParameters(device.Params) error {
	return errors.New("i2c timeout")
}

func TestPushFailureKeepsCachedValue(t *testing.T) {
	c := newTestCache(t)
	dev := failingDevice{openSim(t, device.DefaultSimConfig())}

	if err := c.Attach(dev); !errors.Is(err, device.ErrDeviceCall) {
		t.Fatalf("Attach err = %v, want ErrDeviceCall", err)
	}

	err := c.Set("brightness", 10)
	if !errors.Is(err, device.ErrDeviceCall) {
		t.Fatalf("Set err = %v, want ErrDeviceCall", err)
	}
	if got := mustGet(t, c, "brightness"); got != 10 {
		t.Errorf("brightness = %v, want cached 10", got)
	}
}

func TestLiveRequiresDevice(t *testing.T) {
	c := newTestCache(t)
	if _, err := c.Live(); !errors.Is(err, ErrDetached) {
		t.Errorf("Live err = %v", err)
	}
}

func TestConcurrentSets(t *testing.T) {
	c := newTestCache(t)
	if err := c.Attach(openSim(t, device.DefaultSimConfig())); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set("brightness", i)
			_ = c.Set(NameExposureTime, 100+i)
			_, _ = c.Get(NameDewarpingMode)
		}()
	}
	wg.Wait()

	if !c.State().ManualExposure {
		t.Error("manual exposure flag lost")
	}
}
