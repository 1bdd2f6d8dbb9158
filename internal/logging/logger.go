package logging

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// registry holds one logger and one LevelVar per module. Loggers handed out
// before Initialize keep working; Initialize only swaps levels and handlers.
type registry struct {
	mu          sync.RWMutex
	config      Config
	initialized bool
	loggers     map[string]*slog.Logger
	levels      map[string]*slog.LevelVar
	global      *slog.LevelVar
}

var std = newRegistry()

func newRegistry() *registry {
	return &registry{
		loggers: make(map[string]*slog.Logger),
		levels:  make(map[string]*slog.LevelVar),
		global:  &slog.LevelVar{},
	}
}

// Initialize sets up the logging system.
func Initialize(config Config) {
	std.initialize(config)
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	return std.logger(module)
}

// SetLevel changes the level of one module at runtime.
func SetLevel(module, level string) error {
	return std.setLevel(module, level)
}

// Levels returns the current level of every module logger created so far.
func Levels() map[string]string {
	return std.snapshot()
}

func (r *registry) initialize(config Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.config = config
	r.initialized = true

	globalLevel, ok := parseLevel(config.Level)
	if !ok {
		globalLevel = slog.LevelInfo
	}
	r.global.Set(globalLevel)

	for module, levelVar := range r.levels {
		levelVar.Set(r.moduleLevel(module, globalLevel))
		r.loggers[module] = slog.New(createHandler(config.Format, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(createHandler(config.Format, r.global)))
}

func (r *registry) logger(module string) *slog.Logger {
	r.mu.RLock()
	logger, exists := r.loggers[module]
	r.mu.RUnlock()
	if exists {
		return logger
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if logger, exists := r.loggers[module]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	format := "text"
	level := slog.LevelInfo
	if r.initialized {
		format = r.config.Format
		if parsed, ok := parseLevel(r.config.Level); ok {
			level = parsed
		}
		level = r.moduleLevel(module, level)
	}
	levelVar.Set(level)

	logger = slog.New(createHandler(format, levelVar)).With("module", module)
	r.loggers[module] = logger
	r.levels[module] = levelVar
	return logger
}

// moduleLevel returns the configured override for module, or fallback.
// Caller holds r.mu.
func (r *registry) moduleLevel(module string, fallback slog.Level) slog.Level {
	if levelStr, exists := r.config.Modules[module]; exists {
		if parsed, ok := parseLevel(levelStr); ok {
			return parsed
		}
	}
	return fallback
}

func (r *registry) setLevel(module, level string) error {
	parsed, ok := parseLevel(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	// Make sure the module exists so the level sticks for later GetLogger calls.
	r.logger(module)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[module].Set(parsed)
	if r.config.Modules == nil {
		r.config.Modules = make(map[string]string)
	}
	r.config.Modules[module] = strings.ToLower(level)
	return nil
}

func (r *registry) snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]string, 0, len(r.levels))
	for module := range r.levels {
		modules = append(modules, module)
	}
	sort.Strings(modules)

	out := make(map[string]string, len(modules))
	for _, module := range modules {
		out[module] = strings.ToLower(r.levels[module].Level().String())
	}
	return out
}

// createHandler builds the output chain for one level source: stdout when it
// is attached to something useful, plus the systemd journal when present.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdoutHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if isStdoutAvailable() {
		handlers = append(handlers, stdoutHandler)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}

	switch len(handlers) {
	case 0:
		return stdoutHandler
	case 1:
		return handlers[0]
	default:
		return NewMultiHandler(handlers...)
	}
}

// isStdoutAvailable checks if stdout is connected to a terminal, pipe, socket, or file.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
