// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package setup

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultDegradedAfter is the latency budget separating operational from
// degraded. Tunable via configuration, not a hard invariant.
const DefaultDegradedAfter = 1000 * time.Millisecond

// ServiceChecker aggregates health probes into service statuses.
//
// # Description
//
// CheckAll issues one health probe per configured service concurrently and
// classifies each outcome. One probe's failure never affects a sibling's
// entry: the join settles all probes and folds failures into StateDown.
type ServiceChecker interface {
	// CheckAll probes every configured service once.
	//
	// # Outputs
	//
	//   - []ServiceStatus: One entry per definition, declaration order.
	//   - error: Non-nil only if the aggregation itself failed.
	CheckAll(ctx context.Context) ([]ServiceStatus, error)

	// Get probes a single service by id.
	//
	// # Outputs
	//
	//   - *ServiceStatus: The classified status.
	//   - error: ErrUnknownService when the id is not configured.
	Get(ctx context.Context, id string) (*ServiceStatus, error)

	// Definitions returns the configured service list, declaration order.
	Definitions() []ServiceDefinition
}

// ErrUnknownService is returned by Get for an unconfigured service id.
var ErrUnknownService = fmt.Errorf("unknown service")

// DefaultServiceChecker is the production ServiceChecker.
//
// # Thread Safety
//
// Safe for concurrent use. The uptime tally is the only mutable state and
// is mutex-protected. Statuses themselves are recomputed per call; nothing
// from a previous poll is served back.
type DefaultServiceChecker struct {
	prober        HealthProber
	defs          []ServiceDefinition
	probeTimeout  time.Duration
	degradedAfter time.Duration

	// uptime tallies checks per service id over the checker's lifetime.
	// An aggregate metric, not a status cache.
	uptime map[string]*uptimeTally
	mu     sync.Mutex
}

type uptimeTally struct {
	attempts  int64
	successes int64
}

// ServiceCheckerOptions tunes the DefaultServiceChecker.
type ServiceCheckerOptions struct {
	// ProbeTimeout is the hard per-probe deadline. Zero means
	// DefaultProbeTimeout. Per-service Timeout overrides it.
	ProbeTimeout time.Duration

	// DegradedAfter is the latency budget. Zero means DefaultDegradedAfter.
	DegradedAfter time.Duration
}

// NewServiceChecker creates a checker over the given prober and definitions.
func NewServiceChecker(prober HealthProber, defs []ServiceDefinition, opts ServiceCheckerOptions) *DefaultServiceChecker {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.DegradedAfter <= 0 {
		opts.DegradedAfter = DefaultDegradedAfter
	}
	return &DefaultServiceChecker{
		prober:        prober,
		defs:          defs,
		probeTimeout:  opts.ProbeTimeout,
		degradedAfter: opts.DegradedAfter,
		uptime:        make(map[string]*uptimeTally),
	}
}

// CheckAll probes every configured service once, concurrently.
func (c *DefaultServiceChecker) CheckAll(ctx context.Context) ([]ServiceStatus, error) {
	if len(c.defs) == 0 {
		return []ServiceStatus{}, nil
	}

	// Indexed buffering keeps output order equal to declaration order no
	// matter when each probe settles.
	statuses := make([]ServiceStatus, len(c.defs))
	var wg sync.WaitGroup

	for i, def := range c.defs {
		wg.Add(1)
		go func(idx int, def ServiceDefinition) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					statuses[idx] = c.downStatus(def, fmt.Sprintf("probe panicked: %v", r))
				}
			}()
			statuses[idx] = c.checkOne(ctx, def)
		}(i, def)
	}
	wg.Wait()

	return statuses, nil
}

// Get probes a single service by id.
func (c *DefaultServiceChecker) Get(ctx context.Context, id string) (*ServiceStatus, error) {
	for _, def := range c.defs {
		if def.ID == id {
			status := c.checkOne(ctx, def)
			return &status, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownService, id)
}

// Definitions returns the configured service list.
func (c *DefaultServiceChecker) Definitions() []ServiceDefinition {
	return c.defs
}

// checkOne probes one service and classifies the result.
func (c *DefaultServiceChecker) checkOne(ctx context.Context, def ServiceDefinition) ServiceStatus {
	timeout := c.probeTimeout
	if def.Timeout > 0 {
		timeout = def.Timeout
	}

	result := c.prober.Probe(ctx, def.Endpoint, timeout)

	status := ServiceStatus{
		ID:           def.ID,
		Name:         def.Name,
		Endpoint:     def.Endpoint,
		State:        c.classify(result),
		ResponseTime: result.ResponseTime,
		LastChecked:  time.Now(),
	}
	if result.Error != "" {
		status.Message = result.Error
	} else {
		status.Message = fmt.Sprintf("HTTP %d", result.StatusCode)
	}
	status.Uptime = c.recordUptime(def.ID, status.State != StateDown)
	return status
}

// classify maps a probe outcome to a service state.
//
//   - failure or timeout: down
//   - success with a warning status (4xx) or over the latency budget: degraded
//   - success within budget: operational
func (c *DefaultServiceChecker) classify(result HealthResult) ServiceState {
	if !result.Healthy {
		return StateDown
	}
	if result.StatusCode >= 400 {
		return StateDegraded
	}
	if result.ResponseTime > c.degradedAfter {
		return StateDegraded
	}
	return StateOperational
}

// downStatus builds the entry for a probe that could not report.
func (c *DefaultServiceChecker) downStatus(def ServiceDefinition, message string) ServiceStatus {
	return ServiceStatus{
		ID:          def.ID,
		Name:        def.Name,
		Endpoint:    def.Endpoint,
		State:       StateDown,
		LastChecked: time.Now(),
		Message:     message,
		Uptime:      c.recordUptime(def.ID, false),
	}
}

// recordUptime updates the lifetime tally and returns the current ratio.
func (c *DefaultServiceChecker) recordUptime(id string, up bool) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	tally, ok := c.uptime[id]
	if !ok {
		tally = &uptimeTally{}
		c.uptime[id] = tally
	}
	tally.attempts++
	if up {
		tally.successes++
	}
	return float64(tally.successes) / float64(tally.attempts)
}

// MockServiceChecker is a configurable ServiceChecker for tests.
type MockServiceChecker struct {
	// CheckAllFunc is called when CheckAll is invoked. Unset means empty.
	CheckAllFunc func(ctx context.Context) ([]ServiceStatus, error)

	// GetFunc is called when Get is invoked. Unset means ErrUnknownService.
	GetFunc func(ctx context.Context, id string) (*ServiceStatus, error)

	// Defs is returned by Definitions.
	Defs []ServiceDefinition

	// CheckAllCalls counts CheckAll invocations.
	CheckAllCalls int

	// GetCalls records the ids passed to Get.
	GetCalls []string

	mu sync.Mutex
}

// CheckAll implements ServiceChecker for MockServiceChecker.
func (m *MockServiceChecker) CheckAll(ctx context.Context) ([]ServiceStatus, error) {
	m.mu.Lock()
	m.CheckAllCalls++
	m.mu.Unlock()

	if m.CheckAllFunc != nil {
		return m.CheckAllFunc(ctx)
	}
	return []ServiceStatus{}, nil
}

// Get implements ServiceChecker for MockServiceChecker.
func (m *MockServiceChecker) Get(ctx context.Context, id string) (*ServiceStatus, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, id)
	m.mu.Unlock()

	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownService, id)
}

// Definitions implements ServiceChecker for MockServiceChecker.
func (m *MockServiceChecker) Definitions() []ServiceDefinition {
	return m.Defs
}
