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
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultProbeTimeout is the hard per-probe deadline. A probe that has not
// settled by then is reported as failed and its underlying call abandoned.
const DefaultProbeTimeout = 5 * time.Second

// ErrEndpointBlocked is returned when a health URL targets a blocked IP range.
var ErrEndpointBlocked = fmt.Errorf("URL blocked: potential SSRF attack")

// =============================================================================
// Command probes
// =============================================================================

// ProbeResult is the outcome of one command probe.
//
// Command probes never fail as far as the caller is concerned: every
// failure mode (binary absent, spawn error, timeout) is folded into
// Installed=false with a diagnostic.
type ProbeResult struct {
	// Installed is true when the tool was found or assumed present.
	Installed bool

	// Version is the parsed version string, empty when unknown.
	Version string

	// Diagnostic carries failure or policy context for display.
	Diagnostic string
}

// CommandProber checks whether host tools are installed.
//
// # Thread Safety
//
// Safe for concurrent use; the prober holds no mutable state.
type CommandProber struct {
	runner  CommandRunner
	timeout time.Duration
}

// NewCommandProber creates a prober over the given runner. A zero timeout
// means DefaultProbeTimeout.
func NewCommandProber(runner CommandRunner, timeout time.Duration) *CommandProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &CommandProber{runner: runner, timeout: timeout}
}

// Probe checks one tool under the given policy.
//
// # Description
//
// PolicyAssumeInstalled short-circuits without touching the runner; this is
// how host-only tools are handled inside containers. PolicyExecute resolves
// the command on PATH, then best-effort runs the version invocation. A tool
// that resolves but whose version command fails still counts as installed;
// the version is simply left empty.
//
// # Outputs
//
//   - ProbeResult: Always populated. Probe never returns an error.
func (p *CommandProber) Probe(ctx context.Context, def PrerequisiteDefinition, policy ProbePolicy) ProbeResult {
	if policy == PolicyAssumeInstalled {
		return ProbeResult{
			Installed:  true,
			Diagnostic: "assumed installed: host tool not observable from container",
		}
	}

	if _, err := p.runner.LookPath(def.Command); err != nil {
		return ProbeResult{
			Installed:  false,
			Diagnostic: fmt.Sprintf("%s not found on PATH", def.Command),
		}
	}

	result := ProbeResult{Installed: true}
	if len(def.VersionArgs) == 0 {
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stdout, _, exitCode, err := p.runner.Run(runCtx, def.Command, def.VersionArgs...)
	if err != nil || exitCode != 0 {
		result.Diagnostic = "version unavailable"
		return result
	}
	result.Version = parseVersionLine(stdout)
	return result
}

// parseVersionLine extracts a compact version from command output: the
// first non-empty line, with a trailing comma segment dropped
// ("Docker version 27.3.1, build ce1223035a" -> "Docker version 27.3.1").
func parseVersionLine(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx := strings.IndexByte(line, ','); idx > 0 {
			line = line[:idx]
		}
		return line
	}
	return ""
}

// =============================================================================
// Health probes
// =============================================================================

// HealthResult is the outcome of one endpoint health probe.
//
// Like command probes, health probes never raise errors: network failures
// and timeouts become Healthy=false with Error set.
type HealthResult struct {
	// Healthy is true when the endpoint responded with a success status.
	Healthy bool

	// StatusCode is the HTTP status, 0 when no response arrived.
	StatusCode int

	// ResponseTime is how long the probe took (up to the timeout).
	ResponseTime time.Duration

	// Error is the diagnostic for failed probes ("timeout", dial errors).
	Error string
}

// HealthProber checks one service endpoint.
type HealthProber interface {
	// Probe issues a single health check against the endpoint.
	//
	// # Description
	//
	// Enforces a hard timeout. On timeout the result is Healthy=false,
	// Error="timeout" and the in-flight request is abandoned, not awaited;
	// the probe returns immediately so the batch join is never delayed.
	Probe(ctx context.Context, endpoint string, timeout time.Duration) HealthResult
}

// ProbeHTTPClient abstracts the HTTP client so tests can stub responses.
type ProbeHTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProber is the production HealthProber over net/http.
type HTTPProber struct {
	client ProbeHTTPClient
}

// NewHTTPProber creates a prober with a keep-alive-free HTTP client, so a
// probe's abandoned connection is not reused by a later round.
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{
		client: &http.Client{
			Transport: &http.Transport{DisableKeepAlives: true},
		},
	}
}

// NewHTTPProberWithClient creates a prober with an injected client, for tests.
func NewHTTPProberWithClient(client ProbeHTTPClient) *HTTPProber {
	return &HTTPProber{client: client}
}

// Probe issues a single GET against the endpoint.
func (p *HTTPProber) Probe(ctx context.Context, endpoint string, timeout time.Duration) HealthResult {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	start := time.Now()

	if err := isURLSafe(endpoint); err != nil {
		return HealthResult{Healthy: false, Error: err.Error()}
	}

	// The request deliberately carries the parent context, not the timeout:
	// on timeout the attempt keeps running in the background and is ignored.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return HealthResult{Healthy: false, Error: fmt.Sprintf("invalid endpoint: %v", err)}
	}

	type outcome struct {
		status int
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := p.client.Do(req)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		resp.Body.Close()
		done <- outcome{status: resp.StatusCode}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		elapsed := time.Since(start)
		if out.err != nil {
			return HealthResult{Healthy: false, ResponseTime: elapsed, Error: out.err.Error()}
		}
		return HealthResult{
			Healthy:      out.status >= 200 && out.status < 500,
			StatusCode:   out.status,
			ResponseTime: elapsed,
		}
	case <-timer.C:
		return HealthResult{Healthy: false, ResponseTime: timeout, Error: "timeout"}
	case <-ctx.Done():
		return HealthResult{Healthy: false, ResponseTime: time.Since(start), Error: ctx.Err().Error()}
	}
}

// MockProber is a configurable HealthProber for tests. Calls are recorded.
type MockProber struct {
	// ProbeFunc is called when Probe is invoked. Unset means healthy.
	ProbeFunc func(ctx context.Context, endpoint string, timeout time.Duration) HealthResult

	// ProbeCalls records probed endpoints in call order.
	ProbeCalls []string

	mu sync.Mutex
}

// Probe implements HealthProber for MockProber.
func (m *MockProber) Probe(ctx context.Context, endpoint string, timeout time.Duration) HealthResult {
	m.mu.Lock()
	m.ProbeCalls = append(m.ProbeCalls, endpoint)
	m.mu.Unlock()

	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx, endpoint, timeout)
	}
	return HealthResult{Healthy: true, StatusCode: http.StatusOK, ResponseTime: time.Millisecond}
}

// isURLSafe validates that an endpoint doesn't target dangerous IP ranges.
//
// Blocks cloud metadata endpoints and the link-local range; allows
// localhost, Docker bridge and private networks where the stack's services
// actually live.
func isURLSafe(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URL has no host")
	}

	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return nil
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// Hostname, not an IP; allow DNS resolution.
		return nil
	}

	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("%w: cloud metadata endpoint blocked", ErrEndpointBlocked)
	}

	linkLocal := net.IPNet{IP: net.ParseIP("169.254.0.0"), Mask: net.CIDRMask(16, 32)}
	if linkLocal.Contains(ip) {
		return fmt.Errorf("%w: link-local address blocked", ErrEndpointBlocked)
	}

	return nil
}
