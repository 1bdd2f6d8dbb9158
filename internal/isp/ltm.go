package isp

import (
	"fmt"
	"os"

	"github.com/smazurov/camerasrc/internal/device"
)

// LTM loads local tone mapping tuning blobs into the parameter set.
type LTM struct {
	target Target
}

// NewLTM creates an LTM loader committing to target.
func NewLTM(target Target) *LTM {
	return &LTM{target: target}
}

// Load reads the tuning file at path and commits it.
func (l *LTM) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFile, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrFile, path)
	}
	return l.target.Commit(func(p *device.Params) { p.LtmTuning = data })
}

// SetControl serves the ltm-tuning-data control.
func (l *LTM) SetControl(path string) error {
	return l.Load(path)
}

// GetControl returns the tuning data the device currently holds.
func (l *LTM) GetControl() (any, error) {
	p, err := l.target.Live()
	if err != nil {
		return nil, err
	}
	return p.LtmTuning, nil
}
