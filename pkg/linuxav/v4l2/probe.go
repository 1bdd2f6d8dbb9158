//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

const sysfsRoot = "/sys/class/video4linux"

func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func withDevice(path string, fn func(fd int) error) error {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer unix.Close(fd)
	return fn(fd)
}

// QueryCapability reads the driver identity and capabilities of path.
func QueryCapability(path string) (DeviceInfo, error) {
	var info DeviceInfo
	err := withDevice(path, func(fd int) error {
		var c v4l2Capability
		if err := ioctl(fd, vidiocQuerycap, unsafe.Pointer(&c)); err != nil {
			return fmt.Errorf("query capabilities of %s: %w", path, err)
		}
		info = DeviceInfo{
			DevicePath: path,
			DeviceName: cstr(c.card[:]),
			Driver:     cstr(c.driver[:]),
			BusInfo:    cstr(c.busInfo[:]),
			Caps:       effectiveCaps(c.capabilities, c.deviceCaps),
		}
		return nil
	})
	return info, err
}

// FindDevices lists the video capture nodes on the system.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", sysfsRoot, err)
	}

	var devices []DeviceInfo
	for _, entry := range entries {
		path := filepath.Join("/dev", entry.Name())
		info, err := QueryCapability(path)
		if err != nil {
			slog.With("component", "v4l2").Debug("Skipping video node", "path", path, "error", err)
			continue
		}
		if info.Caps&capVideoCapture == 0 {
			continue
		}
		devices = append(devices, info)
	}
	return devices, nil
}

// FrameSizes enumerates every pixel format of path and the sizes it offers.
// Stepwise and continuous ranges are reduced to the common sizes they contain.
func FrameSizes(path string) ([]FrameSize, error) {
	var out []FrameSize
	err := withDevice(path, func(fd int) error {
		for i := uint32(0); ; i++ {
			desc := v4l2Fmtdesc{index: i, typ: bufTypeVideoCapture}
			if err := ioctl(fd, vidiocEnumFmt, unsafe.Pointer(&desc)); err != nil {
				if errors.Is(err, unix.EINVAL) {
					return nil
				}
				return fmt.Errorf("enumerate format %d: %w", i, err)
			}
			sizes, err := enumSizes(fd, desc.pixelformat)
			if err != nil {
				return err
			}
			out = append(out, sizes...)
		}
	})
	return out, err
}

func enumSizes(fd int, format uint32) ([]FrameSize, error) {
	var out []FrameSize
	for i := uint32(0); ; i++ {
		fs := v4l2Frmsizeenum{index: i, pixelFormat: format}
		if err := ioctl(fd, vidiocEnumFramesizes, unsafe.Pointer(&fs)); err != nil {
			if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOTTY) {
				return out, nil
			}
			return nil, fmt.Errorf("enumerate sizes of %s: %w", FormatFourCC(format), err)
		}
		switch fs.typ {
		case frmsizeTypeDiscrete:
			out = append(out, FrameSize{PixelFormat: format, Width: fs.union[0], Height: fs.union[1]})
		case frmsizeTypeContinuous, frmsizeTypeStepwise:
			// min_width, max_width, step_width, min_height, max_height, step_height
			u := fs.union
			return append(out, stepwiseSizes(format, u[0], u[1], u[3], u[4])...), nil
		}
	}
}
