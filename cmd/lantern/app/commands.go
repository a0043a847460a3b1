// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package app defines the lantern CLI commands.
package app

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for lantern.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lantern",
		Short: "OAuth 2.0 / OpenID Connect authorization server",
		Long: `Lantern serves the OAuth 2.0 / OpenID Connect authorization endpoint:
request validation, interactive consent flows and the final authorization
response for the code, implicit and hybrid grants.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}
