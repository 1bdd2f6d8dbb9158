package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/smazurov/camerasrc/internal/device"
	"github.com/smazurov/camerasrc/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

type probedNode struct {
	Path    string                `json:"path"`
	Name    string                `json:"name"`
	Driver  string                `json:"driver"`
	BusInfo string                `json:"bus_info"`
	Configs []device.StreamConfig `json:"configs"`
}

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe [device...]",
		Short: "List V4L2 capture nodes and their stream configurations",
		Long: `Enumerates pixel formats and frame sizes of the given V4L2 nodes, or of every ` +
			`capture node on the system when none are named.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := probeNodes(args)
			if err != nil {
				return err
			}
			return writeProbe(cmd.OutOrStdout(), nodes, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a listing")
	return cmd
}

func probeNodes(paths []string) ([]probedNode, error) {
	if len(paths) == 0 {
		devices, err := v4l2.FindDevices()
		if err != nil {
			return nil, err
		}
		for _, d := range devices {
			paths = append(paths, d.DevicePath)
		}
	}

	nodes := make([]probedNode, 0, len(paths))
	for _, path := range paths {
		info, err := v4l2.QueryCapability(path)
		if err != nil {
			return nil, err
		}
		sizes, err := v4l2.FrameSizes(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		}
		nodes = append(nodes, probedNode{
			Path:    path,
			Name:    info.DeviceName,
			Driver:  info.Driver,
			BusInfo: info.BusInfo,
			Configs: streamConfigs(sizes),
		})
	}
	return nodes, nil
}

func writeProbe(w io.Writer, nodes []probedNode, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(nodes)
	}
	if len(nodes) == 0 {
		_, err := fmt.Fprintln(w, "no capture devices found")
		return err
	}
	for _, n := range nodes {
		fmt.Fprintf(w, "%s: %s (%s, %s)\n", n.Path, n.Name, n.Driver, n.BusInfo)
		for _, c := range n.Configs {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
	return nil
}
