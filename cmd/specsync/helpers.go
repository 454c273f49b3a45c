package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"specsync/internal/config"
	"specsync/internal/logging"
)

// exitConfig is the exit code for configuration and layout problems,
// as opposed to partial runtime failures (1).
const exitConfig = 2

// newLogger creates a logger with the specified output format. The
// level can be raised with SPECSYNC_LOG_LEVEL=debug.
func newLogger(format string) *logging.Logger {
	level := logging.InfoLevel
	if os.Getenv("SPECSYNC_LOG_LEVEL") == "debug" {
		level = logging.DebugLevel
	}
	return logging.NewLogger(logging.Config{
		Format: logging.ParseFormat(format),
		Level:  level,
	})
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// exitOnError prints an error and exits, using the config exit code
// for ConfigError and 1 for everything else.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		os.Exit(exitConfig)
	}
	os.Exit(1)
}
