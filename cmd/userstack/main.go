// Package main provides the userstack CLI for identifying a session and
// reporting events from scripts, CI jobs and terminals.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

var version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		log.WithError(err).Debug("command failed")
		stop()
		os.Exit(1)
	}
}
