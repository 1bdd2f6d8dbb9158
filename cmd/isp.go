package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/smazurov/camerasrc/internal/isp"
	"github.com/spf13/cobra"
)

// CreateIspCmd creates the isp command with its inspect and pack subcommands.
func CreateIspCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "isp",
		Short: "Work with ISP control files",
	}

	inspect := &cobra.Command{
		Use:   "inspect <file>",
		Short: "List the records of an ISP control file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return inspectBlob(cmd.OutOrStdout(), blob)
		},
	}

	pack := &cobra.Command{
		Use:     "pack <output> <tag>=<hex>...",
		Short:   "Write an ISP control file from tag and hex payload pairs",
		Example: "  camerasrc isp pack isp.bin 0x1001=0a0b0c 0x1002=ff",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			records := make([]isp.Record, 0, len(args)-1)
			for _, arg := range args[1:] {
				rec, err := parseRecordArg(arg)
				if err != nil {
					return err
				}
				records = append(records, rec)
			}
			if err := os.WriteFile(args[0], isp.Encode(records), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(records), args[0])
			return nil
		},
	}

	cmd.AddCommand(inspect, pack)
	return cmd
}

func inspectBlob(w io.Writer, blob []byte) error {
	records, rest := isp.Decode(blob)
	for _, rec := range records {
		if _, err := fmt.Fprintln(w, rec); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "%d records", len(records))
	if rest > 0 {
		fmt.Fprintf(w, ", %d trailing bytes ignored", rest)
	}
	_, err := fmt.Fprintln(w)
	return err
}

func parseRecordArg(arg string) (isp.Record, error) {
	tagStr, payloadStr, ok := strings.Cut(arg, "=")
	if !ok {
		return isp.Record{}, fmt.Errorf("record %q: want <tag>=<hex>", arg)
	}
	tag, err := strconv.ParseUint(tagStr, 0, 32)
	if err != nil {
		return isp.Record{}, fmt.Errorf("record %q: invalid tag: %w", arg, err)
	}
	payload, err := hex.DecodeString(payloadStr)
	if err != nil {
		return isp.Record{}, fmt.Errorf("record %q: invalid payload: %w", arg, err)
	}
	return isp.Record{Tag: uint32(tag), Payload: payload}, nil
}
