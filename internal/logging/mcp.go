package logging

import (
	"log/slog"
)

// SetupMCPMode redirects the default logger to the rotating log file for the
// lifetime of an MCP stdio session. `roux serve` calls this before touching
// the transport: once stdin/stdout are handed to the JSON-RPC loop, a stray
// log line on either stream desyncs the client's frame reader, so logging
// has to live exclusively in the file, at debug level, for the whole run.
func SetupMCPMode() (func(), error) {
	cfg := Config{
		Level:         "debug",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)

	slog.Info("MCP mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level),
		slog.Bool("stderr_disabled", true))

	return cleanup, nil
}

// SetupMCPModeWithLevel is SetupMCPMode with a caller-chosen level, for
// operators who want MCP-safe (file-only) logging without the forced debug
// verbosity — e.g. a long-running vault watch where debug logs would rotate
// out useful history too quickly.
func SetupMCPModeWithLevel(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}
