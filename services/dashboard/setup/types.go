// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package setup implements the readiness core of the dashboard: probes for
// commands and service endpoints, the aggregators that fan probes out and
// join every outcome, and the pure composer that merges prerequisite and
// service state into one setup-readiness view.
//
// Everything in this package is recomputed per call. No probe result is
// cached across aggregation rounds; staleness of readiness data defeats its
// purpose.
package setup

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ReadinessSchemaVersion is the current version of the readiness data model.
// Increment when status semantics change to enable backwards compatibility.
const ReadinessSchemaVersion = "1.0.0"

// PrerequisiteStatus is the resolved state of a host tool check.
//
// # Description
//
// A prerequisite starts in StatusChecking and is always resolved to
// StatusInstalled or StatusMissing by the time an aggregation round
// returns. StatusChecking only appears on the wire from the dashboard
// client's own "still fetching" placeholder, never from the aggregator.
//
// # Limitations
//
//   - No partial-install notion; a half-configured tool reads as installed
//     when its binary resolves on PATH.
type PrerequisiteStatus string

const (
	// StatusChecking is the initial, unresolved state.
	StatusChecking PrerequisiteStatus = "checking"

	// StatusInstalled means the tool was found (or assumed present by policy).
	StatusInstalled PrerequisiteStatus = "installed"

	// StatusMissing means the tool could not be found.
	StatusMissing PrerequisiteStatus = "missing"
)

// ServiceState classifies a dependent service's health.
//
// # Description
//
// Derived from a single health probe per poll cycle:
//
//   - StateOperational: probe succeeded within the latency budget
//   - StateDegraded: probe succeeded but slowly, or with a warning signal
//   - StateDown: probe failed or timed out
//
// # Assumptions
//
//   - A service is in exactly one state per poll.
type ServiceState string

const (
	StateOperational ServiceState = "operational"
	StateDegraded    ServiceState = "degraded"
	StateDown        ServiceState = "down"
)

// StepStatus is the state of one setup step in the composed view.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in-progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// ServiceTier separates infrastructure services from user-facing frontends.
// The composer emits infrastructure steps in a fixed order before any
// frontend step.
type ServiceTier string

const (
	TierInfrastructure ServiceTier = "infrastructure"
	TierFrontend       ServiceTier = "frontend"
)

// Prerequisite is the resolved result of one host tool check.
//
// # Description
//
// Value object recreated on every aggregation round; identity is Name,
// unique within one response. Required prerequisites gate overall
// readiness, optional ones are informational.
//
// # Examples
//
//	p := Prerequisite{Name: "Docker", Status: StatusInstalled,
//	    Version: "27.3.1", Required: true}
type Prerequisite struct {
	// Name is the unique display name of the tool.
	Name string

	// Status is always StatusInstalled or StatusMissing when returned
	// by the aggregator.
	Status PrerequisiteStatus

	// Version is the parsed tool version, empty when unknown.
	Version string

	// Required marks the prerequisite as gating overall readiness.
	Required bool

	// Description explains what the tool is needed for.
	Description string
}

// ServiceStatus is the classified health of one dependent service.
//
// # Description
//
// Recomputed on every poll. ID is stable across polls and is the join key
// used by the composer to map services onto setup steps.
type ServiceStatus struct {
	// ID is the stable service identifier ("database", "cache", ...).
	ID string

	// Name is the human-readable service name.
	Name string

	// Endpoint is the health check URL that was probed.
	Endpoint string

	// State is the classification of the latest probe.
	State ServiceState

	// ResponseTime is how long the health probe took.
	ResponseTime time.Duration

	// Uptime is the ratio of successful checks over the checker's
	// lifetime, in [0, 1].
	Uptime float64

	// LastChecked is when the probe completed.
	LastChecked time.Time

	// Message carries the probe diagnostic (HTTP status, error text).
	Message string
}

// SetupStep is one entry of the ordered installation sequence.
//
// # Description
//
// Steps are derived, never mutated in place; each composition produces a
// fresh sequence. Order is significant: prerequisites, then infrastructure
// services, then frontends, then the health-check summary.
type SetupStep struct {
	// ID is the stable step identifier ("start-postgresql", ...).
	ID string

	// Name is the display name ("Start PostgreSQL").
	Name string

	// Status is the derived step state.
	Status StepStatus

	// ServiceID references the ServiceStatus the step was derived from.
	// Empty for synthetic steps.
	ServiceID string

	// Duration is the originating probe's response time, zero for
	// synthetic steps.
	Duration time.Duration
}

// SetupReadiness is the composed readiness view served to the dashboard.
//
// # Description
//
// Invariants:
//
//   - IsComplete ⇔ AllPrerequisitesMet ∧ CompletedSteps == TotalSteps
//   - ProgressPercentage == 100 * CompletedSteps / TotalSteps, and 0 when
//     TotalSteps is 0 (never NaN)
type SetupReadiness struct {
	Prerequisites       []Prerequisite
	Steps               []SetupStep
	AllPrerequisitesMet bool
	CompletedSteps      int
	TotalSteps          int
	ProgressPercentage  float64
	IsComplete          bool
}

// ServiceDefinition declares a dependent service to health check.
type ServiceDefinition struct {
	// ID is the stable identifier used as the composer's join key.
	ID string

	// Name is the human-readable service name.
	Name string

	// Endpoint is the health check URL.
	Endpoint string

	// Tier controls step ordering in the composed view.
	Tier ServiceTier

	// Timeout overrides the default per-probe timeout. Zero means default.
	Timeout time.Duration
}

// PrerequisiteDefinition declares a host tool to probe.
type PrerequisiteDefinition struct {
	// Name is the unique display name.
	Name string

	// Command is the executable resolved on PATH.
	Command string

	// VersionArgs invoke the command for a version string, e.g.
	// ["--version"]. Empty means existence-only check.
	VersionArgs []string

	// Required marks the prerequisite as gating readiness.
	Required bool

	// Description explains what the tool is needed for.
	Description string

	// HostOnly marks tools that live on the host and cannot be observed
	// from inside a container (cloud CLIs). See PolicyFor.
	HostOnly bool
}

// DefaultServiceDefinitions returns the standard dependent services of the
// stack: the data store, cache and API layer as infrastructure, and the two
// user-facing frontends.
//
// Endpoints match the compose file defaults; deployments override them via
// configuration.
func DefaultServiceDefinitions() []ServiceDefinition {
	return []ServiceDefinition{
		{
			ID:       "database",
			Name:     "PostgreSQL",
			Endpoint: "http://localhost:8081/health/db",
			Tier:     TierInfrastructure,
		},
		{
			ID:       "cache",
			Name:     "Redis",
			Endpoint: "http://localhost:8081/health/cache",
			Tier:     TierInfrastructure,
		},
		{
			ID:       "api",
			Name:     "API Server",
			Endpoint: "http://localhost:8081/health",
			Tier:     TierInfrastructure,
		},
		{
			ID:       "web",
			Name:     "Web Frontend",
			Endpoint: "http://localhost:3000/api/health",
			Tier:     TierFrontend,
		},
		{
			ID:       "canvas",
			Name:     "Canvas Editor",
			Endpoint: "http://localhost:3001/api/health",
			Tier:     TierFrontend,
		},
	}
}

// BasePrerequisiteDefinitions returns the fixed, ordered prerequisite list.
// Environment detection may append at most one cloud CLI entry; see
// PrerequisitesFor.
func BasePrerequisiteDefinitions() []PrerequisiteDefinition {
	return []PrerequisiteDefinition{
		{
			Name:        "Docker",
			Command:     "docker",
			VersionArgs: []string{"--version"},
			Required:    true,
			Description: "Container runtime for the service stack",
		},
		{
			Name:        "Docker Compose",
			Command:     "docker",
			VersionArgs: []string{"compose", "version"},
			Required:    true,
			Description: "Multi-container orchestration",
		},
		{
			Name:        "Node.js",
			Command:     "node",
			VersionArgs: []string{"--version"},
			Required:    true,
			Description: "Runtime for the frontend build tooling",
		},
		{
			Name:        "Git",
			Command:     "git",
			VersionArgs: []string{"--version"},
			Required:    false,
			Description: "Version control, used by the update workflow",
		},
		{
			Name:        "kubectl",
			Command:     "kubectl",
			VersionArgs: []string{"version", "--client", "--output=yaml"},
			Required:    false,
			Description: "Cluster tooling for Kubernetes deployments",
		},
	}
}

// GenerateID creates a unique identifier for aggregation rounds.
//
// Returns a 16-character hex string from 8 random bytes. Falls back to a
// timestamp-derived ID if crypto/rand fails.
func GenerateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("20060102150405.000")))[:16]
	}
	return hex.EncodeToString(b)
}
