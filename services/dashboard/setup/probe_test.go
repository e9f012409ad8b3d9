// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package setup

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// stubHTTPClient implements ProbeHTTPClient with a fixed behavior.
type stubHTTPClient struct {
	status int
	delay  time.Duration
	err    error
}

func (s *stubHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &http.Response{
		StatusCode: s.status,
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func TestCommandProber_NotFoundIsFolded(t *testing.T) {
	prober := NewCommandProber(&MockRunner{}, 0)
	def := PrerequisiteDefinition{Name: "Docker", Command: "docker", VersionArgs: []string{"--version"}}

	result := prober.Probe(context.Background(), def, PolicyExecute)

	if result.Installed {
		t.Error("expected not installed")
	}
	if result.Diagnostic == "" {
		t.Error("expected diagnostic for missing tool")
	}
}

func TestCommandProber_VersionParsed(t *testing.T) {
	runner := &MockRunner{
		LookPathFunc: func(name string) (string, error) { return "/usr/bin/docker", nil },
		RunFunc: func(ctx context.Context, name string, args ...string) (string, string, int, error) {
			return "Docker version 27.3.1, build ce1223035a\n", "", 0, nil
		},
	}
	prober := NewCommandProber(runner, 0)
	def := PrerequisiteDefinition{Name: "Docker", Command: "docker", VersionArgs: []string{"--version"}}

	result := prober.Probe(context.Background(), def, PolicyExecute)

	if !result.Installed {
		t.Fatal("expected installed")
	}
	if result.Version != "Docker version 27.3.1" {
		t.Errorf("expected trimmed version, got %q", result.Version)
	}
}

func TestCommandProber_VersionFailureStillInstalled(t *testing.T) {
	runner := &MockRunner{
		LookPathFunc: func(name string) (string, error) { return "/usr/bin/node", nil },
		RunFunc: func(ctx context.Context, name string, args ...string) (string, string, int, error) {
			return "", "segfault", -1, errors.New("spawn failed")
		},
	}
	prober := NewCommandProber(runner, 0)
	def := PrerequisiteDefinition{Name: "Node.js", Command: "node", VersionArgs: []string{"--version"}}

	result := prober.Probe(context.Background(), def, PolicyExecute)

	if !result.Installed {
		t.Error("tool on PATH counts as installed even when version probe fails")
	}
	if result.Version != "" {
		t.Errorf("expected empty version, got %q", result.Version)
	}
}

func TestCommandProber_AssumeInstalledSkipsRunner(t *testing.T) {
	runner := &MockRunner{}
	prober := NewCommandProber(runner, 0)
	def := PrerequisiteDefinition{Name: "AWS CLI", Command: "aws", HostOnly: true}

	result := prober.Probe(context.Background(), def, PolicyAssumeInstalled)

	if !result.Installed {
		t.Error("expected assumed installed")
	}
	if len(runner.LookPathCalls) != 0 || len(runner.RunCalls) != 0 {
		t.Error("runner must not be consulted under assume-installed policy")
	}
}

func TestParseVersionLine(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Docker version 27.3.1, build ce1223035a", "Docker version 27.3.1"},
		{"\nv22.11.0\n", "v22.11.0"},
		{"", ""},
		{"   \n  \n", ""},
	}
	for _, tc := range cases {
		if got := parseVersionLine(tc.in); got != tc.want {
			t.Errorf("parseVersionLine(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestHTTPProber_Healthy(t *testing.T) {
	prober := NewHTTPProberWithClient(&stubHTTPClient{status: 200})

	result := prober.Probe(context.Background(), "http://localhost:8081/health", time.Second)

	if !result.Healthy {
		t.Errorf("expected healthy, got %+v", result)
	}
	if result.StatusCode != 200 {
		t.Errorf("expected status 200, got %d", result.StatusCode)
	}
}

func TestHTTPProber_ServerErrorIsUnhealthy(t *testing.T) {
	prober := NewHTTPProberWithClient(&stubHTTPClient{status: 503})

	result := prober.Probe(context.Background(), "http://localhost:8081/health", time.Second)

	if result.Healthy {
		t.Error("expected unhealthy on 503")
	}
	if result.StatusCode != 503 {
		t.Errorf("expected status 503, got %d", result.StatusCode)
	}
}

func TestHTTPProber_ConnectionErrorIsFolded(t *testing.T) {
	prober := NewHTTPProberWithClient(&stubHTTPClient{err: errors.New("connection refused")})

	result := prober.Probe(context.Background(), "http://localhost:9999/health", time.Second)

	if result.Healthy {
		t.Error("expected unhealthy")
	}
	if !strings.Contains(result.Error, "connection refused") {
		t.Errorf("expected diagnostic, got %q", result.Error)
	}
}

// TestHTTPProber_TimeoutAbandonsRequest verifies the probe returns at the
// deadline without waiting for the slow request to finish.
func TestHTTPProber_TimeoutAbandonsRequest(t *testing.T) {
	prober := NewHTTPProberWithClient(&stubHTTPClient{status: 200, delay: 2 * time.Second})

	start := time.Now()
	result := prober.Probe(context.Background(), "http://localhost:8081/health", 50*time.Millisecond)
	elapsed := time.Since(start)

	if result.Healthy {
		t.Error("expected unhealthy on timeout")
	}
	if result.Error != "timeout" {
		t.Errorf("expected timeout diagnostic, got %q", result.Error)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("probe blocked on the slow request: took %v", elapsed)
	}
}

func TestHTTPProber_BlockedEndpoints(t *testing.T) {
	prober := NewHTTPProberWithClient(&stubHTTPClient{status: 200})

	cases := []string{
		"http://169.254.169.254/latest/meta-data/",
		"http://169.254.10.20/health",
	}
	for _, endpoint := range cases {
		result := prober.Probe(context.Background(), endpoint, time.Second)
		if result.Healthy {
			t.Errorf("%s: expected blocked", endpoint)
		}
		if !strings.Contains(result.Error, "blocked") {
			t.Errorf("%s: expected block diagnostic, got %q", endpoint, result.Error)
		}
	}
}

func TestIsURLSafe_AllowsLocalAndPrivate(t *testing.T) {
	cases := []string{
		"http://localhost:8081/health",
		"http://127.0.0.1:3000/api/health",
		"http://10.1.2.3:8080/health",
		"http://192.168.1.10/health",
		"http://api.internal.example.com/health",
	}
	for _, endpoint := range cases {
		if err := isURLSafe(endpoint); err != nil {
			t.Errorf("%s: expected allowed, got: %v", endpoint, err)
		}
	}
}
