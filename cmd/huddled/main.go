package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/huddle/internal/daemon"
	"github.com/matheus3301/huddle/internal/session"
	"go.uber.org/fx"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	levelFlag := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	stderrFlag := flag.Bool("stderr", false, "also log to stderr")
	watchFlag := flag.String("watch-addr", "", "serve the change feed over WebSocket on this address (overrides config)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := *levelFlag
	if level == "" {
		level = session.LogLevel()
	}

	watchAddr := *watchFlag
	if watchAddr == "" {
		watchAddr = session.WatchAddr()
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			SessionName: sessionName,
			LogLevel:    level,
			Stderr:      *stderrFlag,
			WatchAddr:   watchAddr,
		}),
	)

	app.Run()
}
