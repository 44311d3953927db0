package nets

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/okian/crease/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initialises the structured logger and mirrors the progress
// log to logFile when one is given.
func SetupLogging(logFile string, verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if logFile == "" {
		log.SetOutput(os.Stdout)
		return nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, file))
	return nil
}

// ShowHelp prints usage information for the nets tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Crease Nets
===========

Plays many innings concurrently against a running crease server, checks the
leaderboard and prints the best scorecard.

Usage:
  go run ./cmd/nets [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -batters int
        Number of concurrent batters (default 8)
  -innings int
        Innings played by each batter (default 3)
  -players string
        Comma separated player keys (default: every player the server offers)
  -seed int
        Gesture seed, 0 for a random one
  -timeout duration
        HTTP request timeout (default 10s)
  -settle duration
        How long to wait for the leaderboard to catch up (default 5s)
  -watch
        Follow the first batter's event stream
  -copy
        Copy the best share text to the clipboard
  -log string
        Also write progress to this file
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # A quick session against a local server
  go run ./cmd/nets

  # Heavier load, reproducible gestures
  go run ./cmd/nets -batters 64 -innings 5 -seed 7

  # Share the best innings
  go run ./cmd/nets -copy
`)
}
