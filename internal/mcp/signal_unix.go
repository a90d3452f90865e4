//go:build !windows

package mcp

import (
	"os"
	"os/signal"
	"syscall"
)

// notifySignals stops the stdio server on SIGINT or SIGTERM.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
