package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kdore/gantry/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override gantry config path (optional)")
	sendPath := flag.String("send", "", "G-code file to queue for upload (optional)")
	pollSeconds := flag.Int("poll", 0, "poll interval in seconds (optional, defaults to config)")
	debugLog := flag.String("debug-log", "", "write connection diagnostics to this file (optional)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		SendPath:   *sendPath,
		DebugLog:   *debugLog,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "gantry: %v\n", err)
		return 1
	}
	return 0
}
