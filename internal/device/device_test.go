package device

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseFourCC(t *testing.T) {
	tests := []struct {
		in      string
		want    FourCC
		wantErr bool
	}{
		{"NV12", FormatNV12, false},
		{"yuy2", FormatYUY2, false},
		{"YUYV", FormatYUY2, false},
		{"BGRx", FormatBGRx, false},
		{"GREY", FourCC('G' | 'R'<<8 | 'E'<<16 | 'Y'<<24), false},
		{"toolong", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseFourCC(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFourCC(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFourCC(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if FormatNV12.String() != "NV12" {
		t.Errorf("NV12 String() = %q", FormatNV12.String())
	}
}

func TestSceneModeOperationMode(t *testing.T) {
	tests := []struct {
		scene  SceneMode
		want   OperationMode
		wantOK bool
	}{
		{SceneAuto, 0x8001, true},
		{SceneHDR, 0x8002, true},
		{SceneULL, 0x8003, true},
		{SceneHLC, 0x8004, true},
		{SceneCustomAIC, 0x8005, true},
		{SceneVideoLL, 0x8006, true},
		{SceneStillCapture, 0x8007, true},
		{SceneNormal, 0, true},
		{SceneIndoor, 0x8001, false},
		{SceneDisabled, 0x8001, false},
	}
	for _, tt := range tests {
		got, ok := tt.scene.OperationMode()
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("scene %d: got (%#x, %v), want (%#x, %v)", tt.scene, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParamsCloneIsDeep(t *testing.T) {
	p := Params{
		AeRegions:          []Region{{Left: 1}},
		IspControls:        map[uint32][]byte{7: {1, 2}},
		EnabledIspControls: []uint32{7},
	}
	c := p.Clone()
	c.AeRegions[0].Left = 9
	c.IspControls[7][0] = 9
	c.EnabledIspControls[0] = 9

	if p.AeRegions[0].Left != 1 || p.IspControls[7][0] != 1 || p.EnabledIspControls[0] != 7 {
		t.Errorf("Clone shares memory with the original: %+v", p)
	}
}

func TestSimulatedRequiresOpen(t *testing.T) {
	sim := NewSimulated(DefaultSimConfig())

	if _, err := sim.SupportedConfigs(); !errors.Is(err, ErrNotOpen) || !errors.Is(err, ErrDeviceCall) {
		t.Errorf("SupportedConfigs on closed device: %v", err)
	}
	if err := sim.SetParameters(Params{}); !errors.Is(err, ErrDeviceCall) {
		t.Errorf("SetParameters on closed device: %v", err)
	}

	if err := sim.Open(2); err != nil {
		t.Fatal(err)
	}
	if sim.NumVC() != 2 {
		t.Errorf("NumVC = %d", sim.NumVC())
	}
	if err := sim.Open(2); err == nil {
		t.Error("second Open should fail")
	}
}

func TestSimulatedConfigureAndStart(t *testing.T) {
	sim := NewSimulated(DefaultSimConfig())
	if err := sim.Open(0); err != nil {
		t.Fatal(err)
	}

	if err := sim.Start(); err == nil {
		t.Fatal("Start before Configure should fail")
	}

	list := StreamList{
		Streams:       []StreamConfig{NewStreamConfig(FormatNV12, 1920, 1080, FieldAny)},
		OperationMode: OperationModeAuto,
	}
	if err := sim.Configure(list, InputConfig{Width: 1920, Height: 1080}); err != nil {
		t.Fatal(err)
	}
	if err := sim.Start(); err != nil {
		t.Fatal(err)
	}
	if !sim.Streaming() {
		t.Error("Streaming() = false after Start")
	}

	got, input := sim.LastConfigure()
	if len(got.Streams) != 1 || got.Streams[0].Stride != 1920 || input.Width != 1920 {
		t.Errorf("LastConfigure = %+v, %+v", got, input)
	}
	if sim.ConfigureCalls.Load() != 1 || sim.StartCalls.Load() != 2 {
		t.Errorf("calls: configure=%d start=%d", sim.ConfigureCalls.Load(), sim.StartCalls.Load())
	}
}

func TestSimulatedTransform(t *testing.T) {
	cfg := DefaultSimConfig()
	cfg.Transform = func(p Params) Params {
		p.IspControls[1] = append(p.IspControls[1], 0xff)
		return p
	}
	sim := NewSimulated(cfg)
	if err := sim.Open(0); err != nil {
		t.Fatal(err)
	}
	if err := sim.SetParameters(Params{IspControls: map[uint32][]byte{1: {0x01}}}); err != nil {
		t.Fatal(err)
	}

	got, err := sim.GetParameters()
	if err != nil {
		t.Fatal(err)
	}
	if len(got.IspControls[1]) != 2 || got.IspControls[1][1] != 0xff {
		t.Errorf("transformed payload = %v", got.IspControls[1])
	}
}

func TestSimDriver(t *testing.T) {
	driver := NewSimDriver(NewSimulated(SimConfig{Name: "front"}), NewSimulated(SimConfig{}))

	cams, err := driver.Cameras()
	if err != nil {
		t.Fatal(err)
	}
	if len(cams) != 2 || cams[0].Name != "front" || cams[1].Name != "sim-1" {
		t.Errorf("Cameras = %+v", cams)
	}
	if _, err := driver.Device(5); !errors.Is(err, ErrNoCamera) {
		t.Errorf("Device(5) err = %v", err)
	}
}

func TestMemoryPool(t *testing.T) {
	pool := NewMemoryPool(2, 16)

	if pool.AcquireIndex() != NoOffset {
		t.Errorf("AcquireIndex before Acquire = %d", pool.AcquireIndex())
	}

	ctx := context.Background()
	a, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if a.PTS == NoTimestamp || a.Offset != NoOffset {
		t.Errorf("acquired buffer metadata: %+v", a)
	}
	if pool.AcquireIndex() != 0 {
		t.Errorf("AcquireIndex after first Acquire = %d", pool.AcquireIndex())
	}
	if _, err := pool.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire on exhausted pool: %v", err)
	}

	pool.Release(a)
	if _, err := pool.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if pool.AcquireIndex() != 2 {
		t.Errorf("AcquireIndex = %d, want 2", pool.AcquireIndex())
	}

	pool.Close()
	if _, err := pool.Acquire(ctx); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Acquire after Close: %v", err)
	}
}
