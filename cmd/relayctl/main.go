// Package main provides the relay command-line client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/connect-relay/internal/cmd/relayctl"
	"github.com/louisbranch/connect-relay/internal/platform/config"
)

func main() {
	cfg, err := relayctl.ParseConfig(flag.CommandLine, os.Args[1:])
	if errors.Is(err, relayctl.ErrUsage) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := relayctl.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
