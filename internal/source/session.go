package source

import (
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/camerasrc/internal/branch"
	"github.com/smazurov/camerasrc/internal/controls"
	"github.com/smazurov/camerasrc/internal/device"
	"github.com/smazurov/camerasrc/internal/events"
	"github.com/smazurov/camerasrc/internal/quorum"
	"github.com/smazurov/camerasrc/internal/timestamp"
)

// session is one open/close cycle of the camera.
type session struct {
	id       string
	camera   int
	dev      device.Device
	quorum   *quorum.Quorum
	clock    timestamp.Clock
	baseTime time.Duration

	mu      sync.Mutex
	outputs map[string]*output
	closed  bool
}

// output is the per-branch capture state built at negotiation.
type output struct {
	cfg     device.StreamConfig
	pool    device.BufferPool
	stamper *timestamp.Timestamper
	fps     *timestamp.FPSMeter
}

func (s *session) output(id string) (*output, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.outputs[id]
	return out, ok
}

// setOutput installs out for id. It reports false once the session's
// outputs were closed; the caller still owns out then.
func (s *session) setOutput(id string, out *output) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	prev := s.outputs[id]
	s.outputs[id] = out
	s.mu.Unlock()
	if prev != nil {
		prev.pool.Close()
	}
	return true
}

func (s *session) closeOutput(id string) {
	s.mu.Lock()
	out := s.outputs[id]
	delete(s.outputs, id)
	s.mu.Unlock()
	if out != nil {
		out.pool.Close()
	}
}

func (s *session) closeOutputs() {
	s.mu.Lock()
	outs := s.outputs
	s.outputs = make(map[string]*output)
	s.closed = true
	s.mu.Unlock()
	for _, out := range outs {
		out.pool.Close()
	}
}

// validateInput checks the sensor input size before configuring.
func validateInput(settings controls.Settings) error {
	for _, v := range []struct {
		name string
		val  int
	}{
		{controls.NameInputWidth, settings.InputWidth},
		{controls.NameInputHeight, settings.InputHeight},
	} {
		if v.val < controls.MinInputSize || v.val > controls.MaxInputSize {
			return fmt.Errorf("%w: %s %d not in [%d, %d]",
				ErrInputBounds, v.name, v.val, controls.MinInputSize, controls.MaxInputSize)
		}
	}
	return nil
}

// configureFunc builds the single device configuration call of sess.
func (s *Source) configureFunc(sess *session) quorum.ConfigureFunc {
	return func(branches []branch.Branch) error {
		settings := s.cache.Settings()
		if err := validateInput(settings); err != nil {
			s.logger.Error("Refusing to configure camera", "session", sess.id, "error", err)
			return err
		}

		mode, ok := settings.SceneMode.OperationMode()
		if !ok {
			s.logger.Error("Scene mode has no operation mode, using auto",
				"scene_mode", int(settings.SceneMode))
			mode = device.OperationModeAuto
		}

		list := device.StreamList{OperationMode: mode}
		ids := make([]string, 0, len(branches))
		for _, b := range branches {
			cfg := b.Config
			cfg.MemType = settings.MemoryType
			list.Streams = append(list.Streams, cfg)
			ids = append(ids, b.ID)
		}
		input := device.InputConfig{
			Width:  settings.InputWidth,
			Height: settings.InputHeight,
			Format: settings.InputFormat,
		}

		start := time.Now()
		if err := sess.dev.Configure(list, input); err != nil {
			return fmt.Errorf("configure streams: %w", err)
		}
		configureSeconds.Observe(time.Since(start).Seconds())

		s.logger.Info("Camera configured",
			"session", sess.id,
			"streams", len(list.Streams),
			"operation_mode", fmt.Sprintf("0x%04x", uint32(mode)),
			"memory", settings.MemoryType.String())
		s.publish(events.StreamsConfiguredEvent{
			SessionID:     sess.id,
			Branches:      ids,
			OperationMode: fmt.Sprintf("0x%04x", uint32(mode)),
			Timestamp:     now(),
		})
		return nil
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
