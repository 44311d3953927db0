// Command nets plays practice innings against a running crease server.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/okian/crease/internal/nets"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL = flag.String("url", nets.DefaultBaseURL, "Base URL of the service")
		batters = flag.Int("batters", nets.DefaultBatters, "Number of concurrent batters")
		innings = flag.Int("innings", nets.DefaultInnings, "Innings played by each batter")
		players = flag.String("players", "", "Comma separated player keys")
		seed    = flag.Int64("seed", 0, "Gesture seed, 0 for a random one")
		timeout = flag.Duration("timeout", nets.DefaultTimeout, "HTTP request timeout")
		settle  = flag.Duration("settle", nets.DefaultSettle, "How long to wait for the leaderboard")
		watch   = flag.Bool("watch", false, "Follow the first batter's event stream")
		copyOut = flag.Bool("copy", false, "Copy the best share text to the clipboard")
		logFile = flag.String("log", "", "Also write progress to this file")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		nets.ShowHelp()
		return
	}

	if err := nets.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &nets.Config{
		BaseURL: *baseURL,
		Batters: *batters,
		Innings: *innings,
		Players: splitList(*players),
		Seed:    *seed,
		Timeout: *timeout,
		Settle:  *settle,
		Watch:   *watch,
		Copy:    *copyOut,
		Verbose: *verbose,
	}

	if _, err := nets.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Nets failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
