// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the lantern authorization server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lanternid/lantern/cmd/lantern/app"
	"github.com/lanternid/lantern/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	// Create a context that will be canceled on signal
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	// Execute the root command with context
	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		logger.Errorf("Error executing command: %v", err)
		os.Exit(1)
	}
}
