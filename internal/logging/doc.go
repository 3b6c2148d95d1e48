// Package logging provides structured logging with per-module log levels.
//
// Loggers are plain *slog.Logger values carrying a "module" attribute.
// Output goes to stdout (text or JSON), to the systemd journal when
// journald is reachable, and to an in-memory ring buffer that backs the
// log stream endpoint.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"serial": "debug",
//			"http":   "warn",
//		},
//	})
//
// Then, per package:
//
//	logger := logging.GetLogger("panel")
//	logger.Info("LED on", "bits", "1")
//
// Levels can be changed at runtime with SetLevels; the config watcher
// does this when the [logging] table of the config file changes.
//
// Journal entries are tagged with SyslogIdentifier:
//
//	journalctl -t coolledctl -f
//	journalctl -t coolledctl MODULE=serial
package logging
