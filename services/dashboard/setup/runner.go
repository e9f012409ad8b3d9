// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package setup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// CommandRunner abstracts external process execution for command probes.
//
// This interface isolates the probes from the operating system so they can
// be tested without spawning real processes.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple goroutines;
// the prerequisite aggregator runs probes in parallel.
//
// # Context Handling
//
// Run accepts a context.Context for cancellation and timeout. Probes pass a
// per-probe deadline so one slow tool cannot stall the batch.
type CommandRunner interface {
	// LookPath reports whether the named executable resolves on PATH.
	//
	// # Outputs
	//
	//   - string: Absolute path of the executable when found.
	//   - error: Non-nil when the executable is not found.
	LookPath(name string) (string, error)

	// Run executes a command synchronously and returns its output.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout.
	//   - name: The executable name or path.
	//   - args: Command arguments (variadic).
	//
	// # Outputs
	//
	//   - stdout: Captured standard output.
	//   - stderr: Captured standard error.
	//   - exitCode: Process exit code; -1 when the process did not run.
	//   - error: Non-nil if the command failed to start or was cancelled.
	//     A non-zero exit is reported via exitCode, not error.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// ExecRunner implements CommandRunner using os/exec.
//
// This is the production implementation. Use MockRunner in tests.
type ExecRunner struct{}

// NewExecRunner creates a CommandRunner that executes real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// LookPath reports whether the named executable resolves on PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes a command synchronously and returns its output.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Process ran but exited non-zero; that is a result, not an error.
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		return stdout.String(), stderr.String(), -1, fmt.Errorf("failed to run %s: %w", name, err)
	}

	return stdout.String(), stderr.String(), 0, nil
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockRunner is a test double for CommandRunner.
//
// Configure the mock by setting function fields before use. Unset fields
// fall back to a "not found" / non-zero-exit default. Calls are recorded
// for assertion.
//
// # Examples
//
//	mock := &MockRunner{
//	    LookPathFunc: func(name string) (string, error) {
//	        if name == "docker" {
//	            return "/usr/bin/docker", nil
//	        }
//	        return "", exec.ErrNotFound
//	    },
//	}
type MockRunner struct {
	// LookPathFunc is called when LookPath is invoked.
	LookPathFunc func(name string) (string, error)

	// RunFunc is called when Run is invoked.
	RunFunc func(ctx context.Context, name string, args ...string) (string, string, int, error)

	// LookPathCalls records the names passed to LookPath.
	LookPathCalls []string

	// RunCalls records each Run invocation as "name arg1 arg2 ...".
	RunCalls []string

	mu sync.Mutex
}

// LookPath implements CommandRunner for MockRunner.
func (m *MockRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	m.LookPathCalls = append(m.LookPathCalls, name)
	m.mu.Unlock()

	if m.LookPathFunc != nil {
		return m.LookPathFunc(name)
	}
	return "", exec.ErrNotFound
}

// Run implements CommandRunner for MockRunner.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	m.mu.Lock()
	m.RunCalls = append(m.RunCalls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, name, args...)
	}
	return "", "", 1, nil
}
