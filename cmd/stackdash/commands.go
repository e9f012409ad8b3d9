// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	apiURL     string
	jsonOutput bool
	noColor    bool
	verbose    bool

	watchInterval string // CLI override for the setup view refresh interval

	rootCmd = &cobra.Command{
		Use:   "stackdash",
		Short: "A cli to inspect the health and setup readiness of your local stack",
		Long: `StackDash monitors a local service stack: which tools are
				installed, which services respond, and how far initial setup
				has progressed.`,
	}

	// --- Status ---
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the setup readiness snapshot",
		Run:   runStatusCommand, // Defined in cmd_status.go
	}

	// --- Services ---
	servicesCmd = &cobra.Command{
		Use:   "services [service_id]",
		Short: "Show the status of monitored services",
		Run:   runServicesCommand, // Defined in cmd_status.go
	}

	// --- Prerequisites ---
	prereqsCmd = &cobra.Command{
		Use:     "prerequisites",
		Short:   "Check which required tools are installed",
		Aliases: []string{"prereqs"},
		Run:     runPrereqsCommand, // Defined in cmd_status.go
	}

	// --- Watch ---
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Continuously poll setup readiness until complete",
		Run:   runWatchCommand, // Defined in cmd_watch.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultAPIURL(),
		"Base URL of the dashboard service")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output as JSON for scripting")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show detailed output")

	watchCmd.Flags().StringVarP(&watchInterval, "interval", "i", "",
		"Refresh interval (e.g. 2s, 10s); defaults to 5s")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(prereqsCmd)
	rootCmd.AddCommand(watchCmd)
}

// defaultAPIURL resolves the dashboard URL from the environment.
func defaultAPIURL() string {
	if url := os.Getenv("STACKDASH_API_URL"); url != "" {
		return url
	}
	return "http://localhost:4000"
}
