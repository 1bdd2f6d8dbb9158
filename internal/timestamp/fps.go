package timestamp

import (
	"log/slog"
	"time"
)

// FPSInterval is how many frames the meter averages over.
const FPSInterval = 60

// FPSMeter logs a branch's average frame rate every FPSInterval frames.
type FPSMeter struct {
	branch string
	logger *slog.Logger
	now    func() time.Time

	frames int
	since  time.Time
	last   float64
}

// NewFPSMeter creates a meter for branch logging to logger.
func NewFPSMeter(branch string, logger *slog.Logger) *FPSMeter {
	return &FPSMeter{branch: branch, logger: logger, now: time.Now}
}

// Tick counts one frame. It returns the average rate and true when an
// interval completes.
func (m *FPSMeter) Tick() (float64, bool) {
	now := m.now()
	if m.since.IsZero() {
		m.since = now
	}
	m.frames++
	if m.frames < FPSInterval {
		return 0, false
	}

	elapsed := now.Sub(m.since)
	var fps float64
	if elapsed > 0 {
		fps = float64(m.frames) / elapsed.Seconds()
	}
	m.frames = 0
	m.since = now
	m.last = fps

	m.logger.Info("Average frame rate", "branch", m.branch, "fps", fps, "frames", FPSInterval)
	return fps, true
}

// Last returns the most recent average.
func (m *FPSMeter) Last() float64 {
	return m.last
}
