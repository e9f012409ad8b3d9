// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package setup

import (
	"context"
	"sync"
)

// PrereqChecker aggregates host tool probes into a prerequisite list.
//
// # Description
//
// CheckAll fans every prerequisite's probe out concurrently, waits for all
// of them to settle (never short-circuiting on a failure), and returns one
// Prerequisite per definition in declaration order regardless of completion
// order. Status is always resolved to installed or missing; checking never
// escapes the aggregator.
//
// # Limitations
//
//   - No retries at this layer. The dashboard poller re-polls periodically,
//     which gives eventual retry.
type PrereqChecker interface {
	// CheckAll probes every prerequisite once.
	//
	// # Outputs
	//
	//   - []Prerequisite: One entry per definition, declaration order.
	//   - error: Non-nil only if the aggregation itself failed; individual
	//     probe failures are folded into the entries.
	CheckAll(ctx context.Context) ([]Prerequisite, error)
}

// DefaultPrereqChecker is the production PrereqChecker.
//
// The definition list is fixed at construction: the base list plus at most
// one cloud CLI entry selected by the detected environment.
type DefaultPrereqChecker struct {
	prober *CommandProber
	env    Environment
	defs   []PrerequisiteDefinition
}

// NewPrereqChecker creates a checker for the given environment.
func NewPrereqChecker(runner CommandRunner, env Environment) *DefaultPrereqChecker {
	return &DefaultPrereqChecker{
		prober: NewCommandProber(runner, DefaultProbeTimeout),
		env:    env,
		defs:   PrerequisitesFor(env),
	}
}

// NewPrereqCheckerWithDefs creates a checker over an explicit definition
// list, used by tests and custom configurations.
func NewPrereqCheckerWithDefs(runner CommandRunner, env Environment, defs []PrerequisiteDefinition) *DefaultPrereqChecker {
	return &DefaultPrereqChecker{
		prober: NewCommandProber(runner, DefaultProbeTimeout),
		env:    env,
		defs:   defs,
	}
}

// CheckAll probes every prerequisite once, concurrently.
func (c *DefaultPrereqChecker) CheckAll(ctx context.Context) ([]Prerequisite, error) {
	// Results are buffered by definition index, never appended in
	// completion order, so output order always matches declaration order.
	results := make([]*ProbeResult, len(c.defs))
	var wg sync.WaitGroup

	for i, def := range c.defs {
		wg.Add(1)
		go func(idx int, def PrerequisiteDefinition) {
			defer wg.Done()
			// A panicking probe must not take the batch down; the slot is
			// left nil and resolved to missing below.
			defer func() { _ = recover() }()
			r := c.prober.Probe(ctx, def, PolicyFor(c.env, def))
			results[idx] = &r
		}(i, def)
	}
	wg.Wait()

	prereqs := make([]Prerequisite, len(c.defs))
	for i, def := range c.defs {
		prereqs[i] = resolvePrerequisite(def, results[i])
	}
	return prereqs, nil
}

// resolvePrerequisite maps a probe outcome back onto its definition. A
// missing outcome (the defensive case: the probe never reported) resolves
// to missing rather than leaking the checking state.
func resolvePrerequisite(def PrerequisiteDefinition, result *ProbeResult) Prerequisite {
	p := Prerequisite{
		Name:        def.Name,
		Status:      StatusMissing,
		Required:    def.Required,
		Description: def.Description,
	}
	if result == nil {
		return p
	}
	if result.Installed {
		p.Status = StatusInstalled
		p.Version = result.Version
	}
	return p
}

// AllRequiredInstalled reports whether every required prerequisite is
// installed. Optional prerequisites never affect the result.
func AllRequiredInstalled(prereqs []Prerequisite) bool {
	for _, p := range prereqs {
		if p.Required && p.Status != StatusInstalled {
			return false
		}
	}
	return true
}

// MockPrereqChecker is a configurable PrereqChecker for tests.
type MockPrereqChecker struct {
	// CheckAllFunc is called when CheckAll is invoked. Unset means empty.
	CheckAllFunc func(ctx context.Context) ([]Prerequisite, error)

	// CheckAllCalls counts invocations.
	CheckAllCalls int

	mu sync.Mutex
}

// CheckAll implements PrereqChecker for MockPrereqChecker.
func (m *MockPrereqChecker) CheckAll(ctx context.Context) ([]Prerequisite, error) {
	m.mu.Lock()
	m.CheckAllCalls++
	m.mu.Unlock()

	if m.CheckAllFunc != nil {
		return m.CheckAllFunc(ctx)
	}
	return []Prerequisite{}, nil
}
