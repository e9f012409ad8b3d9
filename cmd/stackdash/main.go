// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/stackdash/stackdash/pkg/logging"
)

var logger *logging.Logger

func main() {
	logger = logging.New(logging.Config{
		Level:   logging.LevelWarn,
		LogDir:  "~/.stackdash/logs",
		Service: "cli",
	})
	defer logger.Close()

	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
