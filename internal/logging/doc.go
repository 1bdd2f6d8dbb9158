// Package logging provides structured logging with per-module log levels.
//
// Every subsystem asks for its own logger once and keeps it:
//
//	logger := logging.GetLogger("quorum")
//	logger.Debug("Branch arrived", "branch", id, "slot", slot)
//
// Loggers obtained before [Initialize] stay valid; Initialize only adjusts
// their levels and output handlers. Levels can also be changed while the
// process runs with [SetLevel], which the HTTP API exposes.
//
// Output goes to stdout (text or JSON) and, when journald is reachable, to the
// systemd journal through [JournalHandler]:
//
//	journalctl -t camerasrc MODULE=controls
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	quorum = "debug"
//	api = "warn"
package logging
