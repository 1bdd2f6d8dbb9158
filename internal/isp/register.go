package isp

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/smazurov/camerasrc/internal/device"
	"github.com/smazurov/camerasrc/internal/logging"
)

var (
	// ErrTagNotFound is returned by Get when the device holds no payload for a tag.
	ErrTagNotFound = errors.New("isp tag not found")
	// ErrFile wraps failures reading an ISP control or LTM tuning file.
	ErrFile = errors.New("isp file unreadable")
)

// Target is where the register commits payloads and reads them back.
// controls.Cache implements it.
type Target interface {
	Commit(mutate func(p *device.Params)) error
	Live() (device.Params, error)
}

// TagInfo summarizes one stored tag.
type TagInfo struct {
	Tag     uint32 `json:"tag"`
	Size    int    `json:"size"`
	Enabled bool   `json:"enabled"`
}

// Register caches tag payloads and the enabled tag set until Apply.
type Register struct {
	mu      sync.Mutex
	store   map[uint32][]byte
	enabled map[uint32]struct{}
	target  Target
	logger  *slog.Logger
	onApply func(tags int, err error)
}

// NewRegister creates an empty register committing to target.
func NewRegister(target Target) *Register {
	return &Register{
		store:   make(map[uint32][]byte),
		enabled: make(map[uint32]struct{}),
		target:  target,
		logger:  logging.GetLogger("isp"),
	}
}

// OnApply registers a callback run after every Apply.
func (r *Register) OnApply(fn func(tags int, err error)) {
	r.mu.Lock()
	r.onApply = fn
	r.mu.Unlock()
}

// SetTag stores payload for tag and enables it. A nil payload removes the
// tag from both the store and the enabled set. Nothing reaches the device
// before Apply.
func (r *Register) SetTag(tag uint32, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setLocked(tag, payload)
}

func (r *Register) setLocked(tag uint32, payload []byte) {
	if payload == nil {
		delete(r.store, tag)
		delete(r.enabled, tag)
		return
	}
	r.store[tag] = slices.Clone(payload)
	r.enabled[tag] = struct{}{}
}

// BulkLoad replaces the whole register with the records of blob. A
// truncated trailing record is dropped without error; the count of loaded
// records is returned.
func (r *Register) BulkLoad(blob []byte) int {
	records, rest := Decode(blob)

	r.mu.Lock()
	clear(r.store)
	clear(r.enabled)
	for _, rec := range records {
		r.setLocked(rec.Tag, rec.Payload)
	}
	r.mu.Unlock()

	if rest > 0 {
		r.logger.Warn("Ignoring truncated ISP record", "records", len(records), "trailing_bytes", rest)
	}
	r.logger.Debug("Loaded ISP controls", "records", len(records))
	return len(records)
}

// LoadFile bulk-loads the ISP control file at path.
func (r *Register) LoadFile(path string) (int, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFile, err)
	}
	if len(blob) == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrFile, path)
	}
	return r.BulkLoad(blob), nil
}

// Apply pushes the enabled tag set and every stored payload in one
// parameter-set dispatch.
func (r *Register) Apply() error {
	r.mu.Lock()
	payloads := make(map[uint32][]byte, len(r.store))
	for tag, p := range r.store {
		payloads[tag] = slices.Clone(p)
	}
	enabled := slices.Sorted(maps.Keys(r.enabled))
	onApply := r.onApply
	r.mu.Unlock()

	err := r.target.Commit(func(p *device.Params) {
		p.IspControls = payloads
		p.EnabledIspControls = enabled
	})
	ispApplies.WithLabelValues(result(err)).Inc()
	ispTags.Set(float64(len(enabled)))
	if err != nil {
		r.logger.Error("Failed to apply ISP controls", "tags", len(enabled), "error", err)
	} else {
		r.logger.Info("Applied ISP controls", "tags", len(enabled))
	}
	if onApply != nil {
		onApply(len(enabled), err)
	}
	return err
}

// Get reads the payload for tag back from the device.
func (r *Register) Get(tag uint32) ([]byte, error) {
	p, err := r.target.Live()
	if err != nil {
		return nil, err
	}
	payload, ok := p.IspControls[tag]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%08x", ErrTagNotFound, tag)
	}
	return payload, nil
}

// Tags lists the cached tags in ascending order.
func (r *Register) Tags() []TagInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TagInfo, 0, len(r.store))
	for _, tag := range slices.Sorted(maps.Keys(r.store)) {
		_, on := r.enabled[tag]
		out = append(out, TagInfo{Tag: tag, Size: len(r.store[tag]), Enabled: on})
	}
	return out
}

// SetControl serves the isp-control control: load the file and apply it.
func (r *Register) SetControl(path string) error {
	if _, err := r.LoadFile(path); err != nil {
		return err
	}
	return r.Apply()
}

// GetControl serves the isp-control control with the live enabled tags.
func (r *Register) GetControl() (any, error) {
	p, err := r.target.Live()
	if err != nil {
		return nil, err
	}
	out := make([]TagInfo, 0, len(p.EnabledIspControls))
	for _, tag := range p.EnabledIspControls {
		out = append(out, TagInfo{Tag: tag, Size: len(p.IspControls[tag]), Enabled: true})
	}
	return out, nil
}
