package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/camerasrc/internal/branch"
	"github.com/smazurov/camerasrc/internal/config"
	"github.com/smazurov/camerasrc/internal/device"
	"github.com/smazurov/camerasrc/internal/logging"
	"github.com/smazurov/camerasrc/internal/source"
	"github.com/spf13/cobra"
)

type runOptions struct {
	Branches  int
	Frames    int
	Format    string
	Width     int
	Height    int
	FrameRate float64
}

type branchResult struct {
	ID      string
	Config  device.StreamConfig
	Frames  int
	LastPTS time.Duration
}

// CreateRunCmd creates the run command.
func CreateRunCmd() *cobra.Command {
	var (
		opts      runOptions
		nodes     []string
		presets   string
		ispFile   string
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture frames through several branches without the API server",
		Long: `Opens a camera session, negotiates every branch concurrently so the camera is ` +
			`configured once, then pulls frames through each branch and prints what arrived.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.Initialize(logging.Config{Level: logLevel, Format: logFormat})
			logger := logging.GetLogger("run")

			driver, err := NewDriver(nodes)
			if err != nil {
				return err
			}
			src, err := source.New(driver, source.Options{Logger: logging.GetLogger("source")})
			if err != nil {
				return err
			}

			if presets != "" {
				p, err := config.LoadControlPresets(presets)
				if err != nil {
					return err
				}
				if err := src.ApplyPresets(p); err != nil {
					logger.Warn("Some presets were rejected", "error", err)
				}
			}
			if ispFile != "" {
				if _, err := src.ISP().LoadFile(ispFile); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results, err := runCapture(ctx, src, opts, logger)
			writeResults(cmd.OutOrStdout(), results)
			return err
		},
	}

	cmd.Flags().IntVar(&opts.Branches, "branches", 2, "Number of branches including the main one")
	cmd.Flags().IntVar(&opts.Frames, "frames", 30, "Frames to pull per branch")
	cmd.Flags().StringVar(&opts.Format, "format", "NV12", "Pixel format every branch asks for")
	cmd.Flags().IntVar(&opts.Width, "width", 1920, "Frame width")
	cmd.Flags().IntVar(&opts.Height, "height", 1080, "Frame height")
	cmd.Flags().Float64Var(&opts.FrameRate, "framerate", 30, "Frame rate")
	cmd.Flags().StringSliceVar(&nodes, "device", nil, "V4L2 nodes to take stream configurations from")
	cmd.Flags().StringVar(&presets, "presets", "", "TOML file with a [controls] table")
	cmd.Flags().StringVar(&ispFile, "isp-control", "", "ISP control file applied when the session opens")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "Logging format (text, json)")
	return cmd
}

func runCapture(ctx context.Context, src *source.Source, opts runOptions, logger *slog.Logger) ([]branchResult, error) {
	if opts.Branches < 1 {
		return nil, fmt.Errorf("need at least one branch, got %d", opts.Branches)
	}
	format, err := device.ParseFourCC(opts.Format)
	if err != nil {
		return nil, err
	}
	caps := source.Caps{Format: format, Width: opts.Width, Height: opts.Height, FrameRate: opts.FrameRate}

	ids := []string{branch.MainID}
	for i := 1; i < opts.Branches; i++ {
		b, err := src.AddBranch(fmt.Sprintf("%s_%d", branch.MainID, i))
		if err != nil {
			return nil, err
		}
		ids = append(ids, b.ID)
	}

	if err := src.Start(ctx); err != nil {
		return nil, err
	}
	if len(src.ISP().Tags()) > 0 {
		if err := src.ISP().Apply(); err != nil {
			logger.Warn("Failed to apply ISP controls", "error", err)
		}
	}
	defer func() {
		if err := src.Stop(); err != nil {
			logger.Warn("Failed to stop session", "error", err)
		}
	}()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		errs    []error
		results = make([]branchResult, len(ids))
	)
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := pullFrames(ctx, src, id, caps, opts.Frames)
			results[i] = res
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", id, err))
				mu.Unlock()
				// Drop it so the quorum stops waiting for it.
				_ = src.RemoveBranch(id)
			}
		}()
	}
	wg.Wait()
	return results, errors.Join(errs...)
}

func pullFrames(ctx context.Context, src *source.Source, id string, caps source.Caps, frames int) (branchResult, error) {
	res := branchResult{ID: id}
	cfg, err := src.Negotiate(ctx, id, caps)
	if err != nil {
		return res, err
	}
	res.Config = cfg

	for range frames {
		buf, err := src.Fill(ctx, id)
		if err != nil {
			return res, err
		}
		res.Frames++
		res.LastPTS = buf.PTS
		src.Release(id, buf)
	}
	return res, nil
}

func writeResults(w io.Writer, results []branchResult) {
	for _, r := range results {
		if r.ID == "" {
			continue
		}
		fmt.Fprintf(w, "%-8s %-40s frames=%d last_pts=%s\n", r.ID, r.Config, r.Frames, r.LastPTS)
	}
}
