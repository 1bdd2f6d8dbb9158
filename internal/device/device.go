package device

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceCall wraps every failure reported by the camera library.
	ErrDeviceCall = errors.New("device call failed")
	// ErrNotOpen is returned by calls that need an opened device.
	ErrNotOpen = errors.New("device not open")
	// ErrNoCamera is returned when the selected camera index does not exist.
	ErrNoCamera = errors.New("no such camera")
)

// CameraInfo identifies one camera known to a Driver.
type CameraInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Device is one physical camera.
type Device interface {
	// Open prepares the camera with the given number of virtual channels.
	Open(numVC int) error
	Close() error

	// SupportedConfigs enumerates every stream configuration the camera offers.
	SupportedConfigs() ([]StreamConfig, error)
	// Configure sets up all streams at once. It is called once per session.
	Configure(streams StreamList, input InputConfig) error
	Start() error
	Stop() error

	SetParameters(p Params) error
	GetParameters() (Params, error)

	// ExposureTimeRanges and GainRanges report per-scene-mode limits. An empty
	// result means the camera imposes none.
	ExposureTimeRanges() ([]ExposureRange, error)
	GainRanges() ([]GainRange, error)
}

// Driver enumerates cameras and opens them.
type Driver interface {
	Cameras() ([]CameraInfo, error)
	Device(id int) (Device, error)
}

// CallError records which device operation failed.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap makes errors.Is match both ErrDeviceCall and the cause.
func (e *CallError) Unwrap() []error {
	return []error{ErrDeviceCall, e.Err}
}

// CallFailed wraps err as a device call failure for op.
func CallFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CallError{Op: op, Err: err}
}
