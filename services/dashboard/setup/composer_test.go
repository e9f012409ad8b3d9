// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package setup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installedPrereq(name string, required bool) Prerequisite {
	return Prerequisite{Name: name, Status: StatusInstalled, Required: required}
}

func missingPrereq(name string, required bool) Prerequisite {
	return Prerequisite{Name: name, Status: StatusMissing, Required: required}
}

func operationalService(id, name string) ServiceStatus {
	return ServiceStatus{
		ID:           id,
		Name:         name,
		State:        StateOperational,
		ResponseTime: 12 * time.Millisecond,
	}
}

func downService(id, name string) ServiceStatus {
	return ServiceStatus{ID: id, Name: name, State: StateDown}
}

func TestComposeReadiness_FixedLeadingSteps(t *testing.T) {
	view := ComposeReadiness(nil, nil, true)

	require.GreaterOrEqual(t, len(view.Steps), 2)
	assert.Equal(t, "validate-prerequisites", view.Steps[0].ID)
	assert.Equal(t, StepCompleted, view.Steps[0].Status)
	assert.Equal(t, "load-configuration", view.Steps[1].ID)
	assert.Equal(t, StepCompleted, view.Steps[1].Status)
}

func TestComposeReadiness_ConfigNotLoaded(t *testing.T) {
	view := ComposeReadiness(nil, nil, false)

	assert.Equal(t, StepPending, view.Steps[1].Status)
}

func TestComposeReadiness_EmptyServiceList(t *testing.T) {
	view := ComposeReadiness([]Prerequisite{}, []ServiceStatus{}, false)

	// Infrastructure block all pending, no frontend steps, and the
	// health-check step pending rather than vacuously completed.
	byID := map[string]SetupStep{}
	for _, s := range view.Steps {
		byID[s.ID] = s
	}
	for _, id := range []string{"start-postgresql", "start-redis", "start-api-server"} {
		step, ok := byID[id]
		require.True(t, ok, "missing infrastructure step %s", id)
		assert.Equal(t, StepPending, step.Status, "step %s", id)
	}
	assert.Equal(t, StepPending, byID["health-checks"].Status)
	assert.Len(t, view.Steps, 6)
	assert.False(t, view.IsComplete)
}

func TestComposeReadiness_StatusMapping(t *testing.T) {
	statuses := []ServiceStatus{
		{ID: "database", Name: "PostgreSQL", State: StateOperational, ResponseTime: 5 * time.Millisecond},
		{ID: "cache", Name: "Redis", State: StateDegraded},
		{ID: "api", Name: "API Server", State: StateDown},
	}
	view := ComposeReadiness(nil, statuses, true)

	byID := map[string]SetupStep{}
	for _, s := range view.Steps {
		byID[s.ID] = s
	}
	assert.Equal(t, StepCompleted, byID["start-postgresql"].Status)
	assert.Equal(t, 5*time.Millisecond, byID["start-postgresql"].Duration)
	assert.Equal(t, StepInProgress, byID["start-redis"].Status)
	assert.Equal(t, StepPending, byID["start-api-server"].Status)
}

func TestComposeReadiness_FrontendStepsFollowStatusOrder(t *testing.T) {
	statuses := []ServiceStatus{
		operationalService("database", "PostgreSQL"),
		operationalService("canvas", "Canvas Editor"),
		operationalService("web", "Web Frontend"),
		operationalService("gateway", "Edge Gateway"), // unmapped name
	}
	view := ComposeReadiness(nil, statuses, true)

	var frontends []SetupStep
	for _, s := range view.Steps {
		if s.ID == "launch-canvas" || s.ID == "launch-web" || s.ID == "launch-gateway" {
			frontends = append(frontends, s)
		}
	}
	require.Len(t, frontends, 3)
	assert.Equal(t, "launch-canvas", frontends[0].ID)
	assert.Equal(t, "Launch Canvas Editor", frontends[0].Name)
	assert.Equal(t, "launch-web", frontends[1].ID)
	assert.Equal(t, "Launch Web Frontend", frontends[1].Name)
	// Unmapped service falls back to its own name.
	assert.Equal(t, "Edge Gateway", frontends[2].Name)
}

func TestComposeReadiness_HealthChecksSummary(t *testing.T) {
	cases := []struct {
		name     string
		statuses []ServiceStatus
		want     StepStatus
	}{
		{
			name: "all operational",
			statuses: []ServiceStatus{
				operationalService("database", "PostgreSQL"),
				operationalService("cache", "Redis"),
			},
			want: StepCompleted,
		},
		{
			name: "some operational",
			statuses: []ServiceStatus{
				operationalService("database", "PostgreSQL"),
				downService("cache", "Redis"),
			},
			want: StepInProgress,
		},
		{
			name: "none operational",
			statuses: []ServiceStatus{
				downService("database", "PostgreSQL"),
				downService("cache", "Redis"),
			},
			want: StepPending,
		},
		{
			name:     "no services",
			statuses: nil,
			want:     StepPending,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view := ComposeReadiness(nil, tc.statuses, true)
			last := view.Steps[len(view.Steps)-1]
			require.Equal(t, "health-checks", last.ID)
			assert.Equal(t, tc.want, last.Status)
		})
	}
}

func TestComposeReadiness_PrerequisiteGating(t *testing.T) {
	cases := []struct {
		name    string
		prereqs []Prerequisite
		want    bool
	}{
		{"all required installed", []Prerequisite{installedPrereq("Docker", true), installedPrereq("Node.js", true)}, true},
		{"required missing", []Prerequisite{installedPrereq("Docker", true), missingPrereq("Node.js", true)}, false},
		{"optional missing never gates", []Prerequisite{installedPrereq("Docker", true), missingPrereq("Git", false)}, true},
		{"only optional, all missing", []Prerequisite{missingPrereq("Git", false), missingPrereq("kubectl", false)}, true},
		{"empty list", nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view := ComposeReadiness(tc.prereqs, nil, true)
			assert.Equal(t, tc.want, view.AllPrerequisitesMet)
		})
	}
}

func TestComposeReadiness_ProgressMath(t *testing.T) {
	// 7 steps total: validate + config + 3 infra + 1 frontend + health.
	// Completed: validate, config, database. Exactly 300/7 percent.
	statuses := []ServiceStatus{
		operationalService("database", "PostgreSQL"),
		downService("cache", "Redis"),
		downService("api", "API Server"),
		downService("web", "Web Frontend"),
	}
	view := ComposeReadiness([]Prerequisite{installedPrereq("Docker", true)}, statuses, true)

	require.Equal(t, 7, view.TotalSteps)
	require.Equal(t, 3, view.CompletedSteps)
	assert.Equal(t, 300.0/7.0, view.ProgressPercentage)
	assert.False(t, view.IsComplete)
}

func TestProgressPercentage_ZeroTotal(t *testing.T) {
	assert.Equal(t, 0.0, progressPercentage(0, 0))
	assert.Equal(t, 0.0, progressPercentage(3, 0))
}

func TestComposeReadiness_Idempotent(t *testing.T) {
	prereqs := []Prerequisite{installedPrereq("Docker", true), missingPrereq("kubectl", false)}
	statuses := []ServiceStatus{
		operationalService("database", "PostgreSQL"),
		downService("cache", "Redis"),
	}

	first := ComposeReadiness(prereqs, statuses, true)
	second := ComposeReadiness(prereqs, statuses, true)

	assert.Equal(t, first, second)
}

func TestComposeReadiness_CompleteStack(t *testing.T) {
	prereqs := []Prerequisite{
		installedPrereq("Docker", true),
		installedPrereq("Node.js", true),
	}
	statuses := []ServiceStatus{
		operationalService("database", "PostgreSQL"),
		operationalService("cache", "Redis"),
		operationalService("api", "API Server"),
		operationalService("web", "Web Frontend"),
	}
	view := ComposeReadiness(prereqs, statuses, true)

	assert.Equal(t, view.TotalSteps, view.CompletedSteps)
	assert.Equal(t, 100.0, view.ProgressPercentage)
	assert.True(t, view.IsComplete)
}

// TestComposeReadiness_EndToEndScenario mirrors a realistic partial setup:
// one required tool missing, the cache down.
func TestComposeReadiness_EndToEndScenario(t *testing.T) {
	prereqs := []Prerequisite{
		{Name: "Docker", Status: StatusInstalled, Required: true},
		{Name: "kubectl", Status: StatusMissing, Required: true},
	}
	statuses := []ServiceStatus{
		{ID: "database", Name: "PostgreSQL", State: StateOperational},
		{ID: "cache", Name: "Redis", State: StateDown},
	}

	view := ComposeReadiness(prereqs, statuses, true)

	assert.False(t, view.AllPrerequisitesMet)

	byID := map[string]SetupStep{}
	for _, s := range view.Steps {
		byID[s.ID] = s
	}
	assert.Equal(t, StepCompleted, byID["start-postgresql"].Status)
	assert.Equal(t, StepPending, byID["start-redis"].Status)
	assert.False(t, view.IsComplete)
}
