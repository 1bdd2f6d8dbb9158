package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func resetRegistry(t *testing.T) {
	t.Helper()
	prev := std
	std = newRegistry()
	t.Cleanup(func() { std = prev })
}

func TestModuleLevelOverride(t *testing.T) {
	resetRegistry(t)

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"quorum": "debug",
			"api":    "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"quorum", true, true, true},
		{"api", false, false, true},
		{"controls", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetRegistry(t)

	before := GetLogger("isp")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Format: "text", Modules: map[string]string{"isp": "debug"}})

	after := GetLogger("isp")
	if before != after {
		t.Error("GetLogger should return the cached logger after Initialize")
	}
	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("cached logger should pick up the module override")
	}
}

func TestSetLevel(t *testing.T) {
	resetRegistry(t)
	Initialize(Config{Level: "warn", Format: "text"})

	logger := GetLogger("branch")
	if logger.Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}

	if err := SetLevel("branch", "debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled after SetLevel")
	}
	if got := Levels()["branch"]; got != "debug" {
		t.Errorf("Levels()[branch] = %q, want debug", got)
	}

	if err := SetLevel("branch", "loud"); err == nil {
		t.Error("SetLevel should reject unknown levels")
	}
}

func TestSetLevelBeforeGetLogger(t *testing.T) {
	resetRegistry(t)

	if err := SetLevel("device", "error"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if GetLogger("device").Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled after SetLevel(error)")
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")
	logger.Info("both handlers")

	output := buf.String()
	if n := strings.Count(output, "debug only message"); n != 1 {
		t.Errorf("debug message written %d times, want 1. Output: %s", n, output)
	}
	if n := strings.Count(output, "both handlers"); n != 2 {
		t.Errorf("info message written %d times, want 2. Output: %s", n, output)
	}
	if !strings.Contains(output, "module=test") {
		t.Errorf("attrs not propagated. Output: %s", output)
	}
}

func TestFieldName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"module", "MODULE"},
		{"remote_addr", "REMOTE_ADDR"},
		{"isp.tag", "ISP_TAG"},
		{"exposure-time", "EXPOSURE_TIME"},
	}
	for _, tt := range tests {
		if got := fieldName(tt.in); got != tt.want {
			t.Errorf("fieldName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFlattenAttrGroups(t *testing.T) {
	fields := map[string]string{}
	flattenAttr(fields, "", slog.Group("range", slog.Int("min", 90), slog.Float64("max", 1.5)))

	if fields["RANGE_MIN"] != "90" {
		t.Errorf("RANGE_MIN = %q, want 90", fields["RANGE_MIN"])
	}
	if fields["RANGE_MAX"] != "1.5" {
		t.Errorf("RANGE_MAX = %q, want 1.5", fields["RANGE_MAX"])
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"DEBUG", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"invalid", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseLevel(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}
