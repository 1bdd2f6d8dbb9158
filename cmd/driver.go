package cmd

import (
	"fmt"

	"github.com/smazurov/camerasrc/internal/device"
	"github.com/smazurov/camerasrc/pkg/linuxav/v4l2"
)

// NewDriver returns a camera driver. Without nodes it serves one simulated
// camera; otherwise every V4L2 node becomes a simulated camera offering the
// stream configurations the node enumerates.
func NewDriver(nodes []string) (device.Driver, error) {
	if len(nodes) == 0 {
		return device.NewSimDriver(device.NewSimulated(device.DefaultSimConfig())), nil
	}

	cams := make([]*device.Simulated, 0, len(nodes))
	for _, node := range nodes {
		cfg, err := probeSimConfig(node)
		if err != nil {
			return nil, err
		}
		cams = append(cams, device.NewSimulated(cfg))
	}
	return device.NewSimDriver(cams...), nil
}

func probeSimConfig(node string) (device.SimConfig, error) {
	info, err := v4l2.QueryCapability(node)
	if err != nil {
		return device.SimConfig{}, err
	}
	sizes, err := v4l2.FrameSizes(node)
	if err != nil {
		return device.SimConfig{}, err
	}
	configs := streamConfigs(sizes)
	if len(configs) == 0 {
		return device.SimConfig{}, fmt.Errorf("%s enumerates no frame sizes", node)
	}

	cfg := device.DefaultSimConfig()
	cfg.Name = info.DeviceName
	cfg.Configs = configs
	return cfg, nil
}

func streamConfigs(sizes []v4l2.FrameSize) []device.StreamConfig {
	out := make([]device.StreamConfig, 0, len(sizes))
	for _, s := range sizes {
		out = append(out, device.NewStreamConfig(device.FourCC(s.PixelFormat), int(s.Width), int(s.Height), device.FieldAny))
	}
	return out
}
