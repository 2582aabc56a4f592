// Package main is the entry point for the apiguard binary: a reference
// server wiring the request-security pipeline in front of a minimal chat
// API, plus a rule-auditing helper for the content filter.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apiguard",
		Short: "Request-time security pipeline for the companion chat API",
		Long: `apiguard composes the API security layer every chat route runs through:
rate limiting, session validation, payload schema checks, content filtering,
and structured security event logging.`,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newFilterCmd())
	return rootCmd
}
