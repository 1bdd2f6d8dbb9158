// Package v4l2 probes Video4Linux2 capture nodes for the stream
// configurations they can produce. It uses raw ioctls and needs no cgo.
//
//	devices, _ := v4l2.FindDevices()
//	for _, dev := range devices {
//	    sizes, _ := v4l2.FrameSizes(dev.DevicePath)
//	}
package v4l2

import (
	"bytes"
	"errors"
)

// ErrUnsupported is returned on platforms without V4L2.
var ErrUnsupported = errors.New("v4l2 is not supported on this platform")

// DeviceInfo describes one capture node.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	Driver     string
	BusInfo    string
	Caps       uint32
}

// FrameSize is one pixel format at one resolution.
type FrameSize struct {
	PixelFormat uint32
	Width       uint32
	Height      uint32
}

// Capability flags.
const (
	capVideoCapture = 0x00000001
	capDeviceCaps   = 0x80000000
)

// Frame size enumeration types.
const (
	frmsizeTypeDiscrete   = 1
	frmsizeTypeContinuous = 2
	frmsizeTypeStepwise   = 3
)

const bufTypeVideoCapture = 1

var commonSizes = [][2]uint32{
	{640, 480},
	{1280, 720},
	{1920, 1080},
	{2560, 1440},
	{3840, 2160},
}

// stepwiseSizes picks the common resolutions that fit a stepwise range.
func stepwiseSizes(format, minW, maxW, minH, maxH uint32) []FrameSize {
	var out []FrameSize
	for _, s := range commonSizes {
		if s[0] >= minW && s[0] <= maxW && s[1] >= minH && s[1] <= maxH {
			out = append(out, FrameSize{PixelFormat: format, Width: s[0], Height: s[1]})
		}
	}
	return out
}

// FormatFourCC renders a pixel format code as its four characters.
func FormatFourCC(format uint32) string {
	return string([]byte{byte(format), byte(format >> 8), byte(format >> 16), byte(format >> 24)})
}

// effectiveCaps returns the per-node capabilities when the driver reports them.
func effectiveCaps(caps, deviceCaps uint32) uint32 {
	if caps&capDeviceCaps != 0 {
		return deviceCaps
	}
	return caps
}

func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
