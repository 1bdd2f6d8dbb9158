package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/camerasrc/cmd"
	"github.com/smazurov/camerasrc/internal/api"
	"github.com/smazurov/camerasrc/internal/config"
	"github.com/smazurov/camerasrc/internal/events"
	"github.com/smazurov/camerasrc/internal/logging"
	"github.com/smazurov/camerasrc/internal/nats"
	"github.com/smazurov/camerasrc/internal/source"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"camerasrc.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Camera settings
	CameraDevices string `help:"Comma separated V4L2 nodes to take stream configurations from" default:"" toml:"camera.devices" env:"CAMERA_DEVICES"`
	CameraPresets string `help:"TOML file with a [controls] table applied at startup and on change" default:"" toml:"camera.presets_file" env:"CAMERA_PRESETS"`
	CameraIsp     string `help:"ISP control file loaded at startup and on change" default:"" toml:"camera.isp_control_file" env:"CAMERA_ISP_CONTROL"`
	CameraWatch   bool   `help:"Reload presets and ISP file when they change" default:"true" toml:"camera.watch" env:"CAMERA_WATCH"`
	CameraStart   bool   `help:"Open the camera session at startup" default:"false" toml:"camera.autostart" env:"CAMERA_AUTOSTART"`

	// Metrics settings
	MetricsEnabled bool `help:"Serve Prometheus metrics at /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// NATS settings
	NatsEnabled bool   `help:"Publish events and serve control requests over NATS" default:"false" toml:"nats.enabled" env:"NATS_ENABLED"`
	NatsURL     string `help:"NATS server URL, empty runs an embedded server" default:"" toml:"nats.url" env:"NATS_URL"`
	NatsPort    int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`
	NatsPrefix  string `help:"Subject prefix" default:"camerasrc" toml:"nats.prefix" env:"NATS_PREFIX"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSource   string `help:"Source logging level" default:"info" toml:"logging.source" env:"LOGGING_SOURCE"`
	LoggingControls string `help:"Controls logging level" default:"info" toml:"logging.controls" env:"LOGGING_CONTROLS"`
	LoggingQuorum   string `help:"Configuration quorum logging level" default:"info" toml:"logging.quorum" env:"LOGGING_QUORUM"`
	LoggingIsp      string `help:"ISP logging level" default:"info" toml:"logging.isp" env:"LOGGING_ISP"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingNats     string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"source":   opts.LoggingSource,
				"controls": opts.LoggingControls,
				"quorum":   opts.LoggingQuorum,
				"isp":      opts.LoggingIsp,
				"api":      opts.LoggingAPI,
				"nats":     opts.LoggingNats,
			},
		})
		logger := logging.GetLogger("main")

		driver, err := cmd.NewDriver(splitList(opts.CameraDevices))
		if err != nil {
			logger.Error("Failed to set up camera driver", "error", err)
			os.Exit(1)
		}

		eventBus := events.New()
		src, err := source.New(driver, source.Options{Bus: eventBus})
		if err != nil {
			logger.Error("Failed to create camera source", "error", err)
			os.Exit(1)
		}

		if opts.CameraPresets != "" {
			applyPresetsFile(src, opts.CameraPresets, logger)
		}
		if opts.CameraIsp != "" {
			if _, loadErr := src.ISP().LoadFile(opts.CameraIsp); loadErr != nil {
				logger.Warn("Failed to load ISP control file", "error", loadErr)
			}
		}

		var watchers []interface{ Stop() error }
		if opts.CameraWatch {
			watchers = startWatchers(src, opts, logger)
		}

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Source:       src,
			Bus:          eventBus,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = promhttp.Handler()
		}
		server := api.NewServer(apiOpts)

		var natsServer *nats.Server
		var bridge *nats.Bridge

		hooks.OnStart(func() {
			if opts.NatsEnabled {
				natsServer, bridge = startNats(src, eventBus, opts)
			}

			if opts.CameraStart {
				if startErr := src.Start(context.Background()); startErr != nil {
					logger.Error("Failed to open camera session", "error", startErr)
				} else if len(src.ISP().Tags()) > 0 {
					if applyErr := src.ISP().Apply(); applyErr != nil {
						logger.Warn("Failed to apply ISP controls", "error", applyErr)
					}
				}
			}

			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("sd_notify failed", "error", notifyErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if bridge != nil {
				bridge.Stop()
			}
			if natsServer != nil {
				natsServer.Stop()
			}
			for _, w := range watchers {
				_ = w.Stop()
			}
			if _, running := src.Session(); running {
				if stopErr := src.Stop(); stopErr != nil {
					logger.Error("Error closing camera session", "error", stopErr)
				}
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateProbeCmd())
	cli.Root().AddCommand(cmd.CreateIspCmd())
	cli.Root().AddCommand(cmd.CreateRunCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyPresetsFile(src *source.Source, path string, logger *slog.Logger) {
	presets, err := config.LoadControlPresets(path)
	if err != nil {
		logger.Warn("Failed to load control presets", "error", err)
		return
	}
	if err := src.ApplyPresets(presets); err != nil {
		logger.Warn("Some control presets were rejected", "error", err)
	}
	logger.Info("Applied control presets", "path", path, "count", len(presets))
}

func startWatchers(src *source.Source, opts *Options, logger *slog.Logger) []interface{ Stop() error } {
	var started []interface{ Stop() error }

	if opts.CameraPresets != "" {
		w := config.NewConfigWatcher(opts.CameraPresets, config.LoadControlPresets, logger)
		w.OnReload(func(presets config.ControlPresets) {
			if err := src.ApplyPresets(presets); err != nil {
				logger.Warn("Some reloaded presets were rejected", "error", err)
				return
			}
			logger.Info("Reloaded control presets", "count", len(presets))
		})
		if err := w.Start(); err != nil {
			logger.Warn("Failed to watch presets, hot-reload disabled", "error", err)
		} else {
			started = append(started, w)
		}
	}

	if opts.CameraIsp != "" {
		w := config.NewConfigWatcher(opts.CameraIsp, os.ReadFile, logger)
		w.OnReload(func(blob []byte) {
			if len(blob) == 0 {
				logger.Warn("Ignoring empty ISP control file", "path", opts.CameraIsp)
				return
			}
			n := src.ISP().BulkLoad(blob)
			if _, running := src.Session(); !running {
				logger.Info("Reloaded ISP controls, applying at next session", "records", n)
				return
			}
			if err := src.ISP().Apply(); err != nil {
				logger.Warn("Failed to apply reloaded ISP controls", "error", err)
			}
		})
		if err := w.Start(); err != nil {
			logger.Warn("Failed to watch ISP control file, hot-reload disabled", "error", err)
		} else {
			started = append(started, w)
		}
	}

	return started
}

func startNats(src *source.Source, bus *events.Bus, opts *Options) (*nats.Server, *nats.Bridge) {
	logger := logging.GetLogger("nats")

	var srv *nats.Server
	url := opts.NatsURL
	if url == "" {
		srv = nats.NewServer(nats.ServerOptions{Port: opts.NatsPort, Name: opts.NatsPrefix, Logger: logger})
		if err := srv.Start(); err != nil {
			logger.Error("Failed to start embedded NATS server", "error", err)
			return nil, nil
		}
		url = srv.ClientURL()
	}

	bridge := nats.NewBridge(url, opts.NatsPrefix, bus, src, logger)
	if err := bridge.Start(); err != nil {
		logger.Error("Failed to start NATS bridge", "url", url, "error", err)
		if srv != nil {
			srv.Stop()
		}
		return nil, nil
	}
	return srv, bridge
}
