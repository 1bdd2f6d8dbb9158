//go:build !linux

package v4l2

// QueryCapability is unavailable without V4L2.
func QueryCapability(string) (DeviceInfo, error) {
	return DeviceInfo{}, ErrUnsupported
}

// FindDevices reports no devices without V4L2.
func FindDevices() ([]DeviceInfo, error) {
	return nil, nil
}

// FrameSizes is unavailable without V4L2.
func FrameSizes(string) ([]FrameSize, error) {
	return nil, ErrUnsupported
}
