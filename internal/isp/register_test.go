package isp

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/smazurov/camerasrc/internal/controls"
	"github.com/smazurov/camerasrc/internal/device"
)

func attachedCache(t *testing.T, cfg device.SimConfig) (*controls.Cache, *device.Simulated) {
	t.Helper()
	sim := device.NewSimulated(cfg)
	if err := sim.Open(0); err != nil {
		t.Fatal(err)
	}
	cache := controls.NewCache()
	if err := cache.Attach(sim); err != nil {
		t.Fatal(err)
	}
	return cache, sim
}

func TestDecodeStopsAtTruncatedRecord(t *testing.T) {
	blob := Encode([]Record{
		{Tag: 0x11, Payload: []byte{1, 2, 3, 4}},
		{Tag: 0x22, Payload: []byte{5}},
	})
	blob = append(blob, 0xaa, 0xbb, 0xcc)

	records, rest := Decode(blob)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Tag != 0x11 || records[1].Tag != 0x22 {
		t.Errorf("tags = %x, %x", records[0].Tag, records[1].Tag)
	}
	if rest != 3 {
		t.Errorf("rest = %d, want 3", rest)
	}
}

func TestDecodeOversizedRecord(t *testing.T) {
	blob := Encode([]Record{{Tag: 1, Payload: []byte{9}}})
	// Header claims 100 bytes but only 2 follow.
	blob = append(blob, 0x02, 0, 0, 0, 100, 0, 0, 0, 1, 2)

	records, rest := Decode(blob)
	if len(records) != 1 || rest != 10 {
		t.Errorf("records = %d rest = %d, want 1 and 10", len(records), rest)
	}
}

func TestDecodeLittleEndianHeader(t *testing.T) {
	blob := []byte{0x78, 0x56, 0x34, 0x12, 0x02, 0x00, 0x00, 0x00, 0xde, 0xad}
	records, rest := Decode(blob)
	if rest != 0 || len(records) != 1 {
		t.Fatalf("records = %v rest = %d", records, rest)
	}
	if records[0].Tag != 0x12345678 || !bytes.Equal(records[0].Payload, []byte{0xde, 0xad}) {
		t.Errorf("record = %+v", records[0])
	}
}

func TestSetTagNeedsApply(t *testing.T) {
	cache, sim := attachedCache(t, device.DefaultSimConfig())
	reg := NewRegister(cache)

	reg.SetTag(7, []byte("abc"))
	live, _ := sim.GetParameters()
	if _, ok := live.IspControls[7]; ok {
		t.Fatal("SetTag reached the device before Apply")
	}

	if err := reg.Apply(); err != nil {
		t.Fatal(err)
	}
	live, _ = sim.GetParameters()
	if !bytes.Equal(live.IspControls[7], []byte("abc")) {
		t.Errorf("device payload = %q", live.IspControls[7])
	}
	if !reflect.DeepEqual(live.EnabledIspControls, []uint32{7}) {
		t.Errorf("enabled = %v", live.EnabledIspControls)
	}
}

func TestSetTagNilRemoves(t *testing.T) {
	cache, sim := attachedCache(t, device.DefaultSimConfig())
	reg := NewRegister(cache)

	reg.SetTag(1, []byte{1})
	reg.SetTag(2, []byte{2})
	reg.SetTag(1, nil)

	want := []TagInfo{{Tag: 2, Size: 1, Enabled: true}}
	if got := reg.Tags(); !reflect.DeepEqual(got, want) {
		t.Errorf("Tags = %+v", got)
	}

	if err := reg.Apply(); err != nil {
		t.Fatal(err)
	}
	live, _ := sim.GetParameters()
	if _, ok := live.IspControls[1]; ok {
		t.Error("removed tag reached the device")
	}
	if !reflect.DeepEqual(live.EnabledIspControls, []uint32{2}) {
		t.Errorf("enabled = %v", live.EnabledIspControls)
	}
}

func TestBulkLoadReplacesPriorState(t *testing.T) {
	cache, _ := attachedCache(t, device.DefaultSimConfig())
	reg := NewRegister(cache)
	reg.SetTag(99, []byte{9})

	blob := Encode([]Record{{Tag: 3, Payload: []byte{1, 1}}, {Tag: 4, Payload: []byte{2}}})
	blob = append(blob, 1, 2, 3)

	if n := reg.BulkLoad(blob); n != 2 {
		t.Errorf("BulkLoad = %d, want 2", n)
	}
	want := []TagInfo{{Tag: 3, Size: 2, Enabled: true}, {Tag: 4, Size: 1, Enabled: true}}
	if got := reg.Tags(); !reflect.DeepEqual(got, want) {
		t.Errorf("Tags = %+v", got)
	}
}

func TestGetReadsDevice(t *testing.T) {
	cfg := device.DefaultSimConfig()
	cfg.Transform = func(p device.Params) device.Params {
		if v, ok := p.IspControls[5]; ok {
			p.IspControls[5] = append(v, 0xff)
		}
		return p
	}
	cache, _ := attachedCache(t, cfg)
	reg := NewRegister(cache)

	reg.SetTag(5, []byte{0x01})
	if err := reg.Apply(); err != nil {
		t.Fatal(err)
	}

	got, err := reg.Get(5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0x01, 0xff}) {
		t.Errorf("Get = %x, want device-transformed 01ff", got)
	}

	if _, err := reg.Get(6); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("missing tag err = %v", err)
	}
}

func TestGetDetached(t *testing.T) {
	reg := NewRegister(controls.NewCache())
	if _, err := reg.Get(1); !errors.Is(err, controls.ErrDetached) {
		t.Errorf("err = %v", err)
	}
}

func TestApplyBeforeAttachReachesDeviceOnAttach(t *testing.T) {
	cache := controls.NewCache()
	reg := NewRegister(cache)
	reg.SetTag(8, []byte{8})
	if err := reg.Apply(); err != nil {
		t.Fatal(err)
	}

	sim := device.NewSimulated(device.DefaultSimConfig())
	if err := sim.Open(0); err != nil {
		t.Fatal(err)
	}
	if err := cache.Attach(sim); err != nil {
		t.Fatal(err)
	}
	live, _ := sim.GetParameters()
	if !bytes.Equal(live.IspControls[8], []byte{8}) {
		t.Errorf("payload after attach = %v", live.IspControls[8])
	}
}

func TestControlHandlers(t *testing.T) {
	cache, _ := attachedCache(t, device.DefaultSimConfig())
	reg := NewRegister(cache)
	ltm := NewLTM(cache)
	if err := cache.Handle(controls.NameIspControl, reg); err != nil {
		t.Fatal(err)
	}
	if err := cache.Handle(controls.NameLtmTuning, ltm); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	ispPath := filepath.Join(dir, "isp.bin")
	if err := os.WriteFile(ispPath, Encode([]Record{{Tag: 0x10, Payload: []byte{1, 2}}}), 0o644); err != nil {
		t.Fatal(err)
	}
	ltmPath := filepath.Join(dir, "ltm.bin")
	if err := os.WriteFile(ltmPath, []byte("tuning"), 0o644); err != nil {
		t.Fatal(err)
	}

	var applied int
	reg.OnApply(func(tags int, err error) { applied = tags })

	if err := cache.Set(controls.NameIspControl, ispPath); err != nil {
		t.Fatal(err)
	}
	if applied != 1 {
		t.Errorf("OnApply tags = %d, want 1", applied)
	}
	got, err := cache.Get(controls.NameIspControl)
	if err != nil {
		t.Fatal(err)
	}
	if want := []TagInfo{{Tag: 0x10, Size: 2, Enabled: true}}; !reflect.DeepEqual(got, want) {
		t.Errorf("isp-control get = %+v", got)
	}

	if err := cache.Set(controls.NameLtmTuning, ltmPath); err != nil {
		t.Fatal(err)
	}
	data, err := cache.Get(controls.NameLtmTuning)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data.([]byte), []byte("tuning")) {
		t.Errorf("ltm get = %q", data)
	}

	if err := cache.Set(controls.NameIspControl, filepath.Join(dir, "missing.bin")); !errors.Is(err, ErrFile) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestEmptyFilesRejected(t *testing.T) {
	cache, sim := attachedCache(t, device.DefaultSimConfig())
	reg := NewRegister(cache)
	ltm := NewLTM(cache)
	reg.SetTag(7, []byte{1, 2})
	if err := reg.Apply(); err != nil {
		t.Fatal(err)
	}

	empty := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if n, err := reg.LoadFile(empty); !errors.Is(err, ErrFile) || n != 0 {
		t.Errorf("LoadFile = %d, %v", n, err)
	}
	if want := []TagInfo{{Tag: 7, Size: 2, Enabled: true}}; !reflect.DeepEqual(reg.Tags(), want) {
		t.Errorf("Tags = %+v", reg.Tags())
	}
	if err := ltm.Load(empty); !errors.Is(err, ErrFile) {
		t.Errorf("LTM Load err = %v", err)
	}

	live, err := sim.GetParameters()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(live.EnabledIspControls, []uint32{7}) {
		t.Errorf("enabled = %v", live.EnabledIspControls)
	}
}
