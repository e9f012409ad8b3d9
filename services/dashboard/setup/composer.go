// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package setup

// infrastructureSteps fixes the identity, display name and order of the
// infrastructure block. Services absent from a poll still produce a pending
// step so the sequence shape is stable across polls.
var infrastructureSteps = []struct {
	ServiceID string
	StepID    string
	Name      string
}{
	{ServiceID: "database", StepID: "start-postgresql", Name: "Start PostgreSQL"},
	{ServiceID: "cache", StepID: "start-redis", Name: "Start Redis"},
	{ServiceID: "api", StepID: "start-api-server", Name: "Start API Server"},
}

// frontendStepNames resolves display names for non-infrastructure services.
// Unmapped services fall back to their own name.
var frontendStepNames = map[string]string{
	"web":    "Launch Web Frontend",
	"canvas": "Launch Canvas Editor",
}

// ComposeReadiness merges prerequisite and service aggregator output into
// the ordered readiness view.
//
// # Description
//
// Pure and deterministic: identical inputs produce identical output. The
// step sequence is, in order:
//
//  1. "Validate Prerequisites" — always completed once composition runs;
//     validation itself cannot fail, only the underlying prerequisites
//     can be unmet.
//  2. "Load Configuration" — completed iff the caller obtained its
//     configuration (passed in, not recomputed here).
//  3. One step per fixed infrastructure dependency, mapped from the
//     matching ServiceStatus: operational → completed, degraded →
//     in-progress, anything else (including absent) → pending.
//  4. One step per remaining service, in the order they appear in
//     statuses, same mapping, display name from the lookup table.
//  5. A synthetic "Health Checks" step: completed if every service is
//     operational, in-progress if at least one but not all are, otherwise
//     pending. An empty service list is explicitly pending — nothing is
//     healthy yet, not vacuously everything.
//
// # Inputs
//
//   - prereqs: Prerequisite aggregator output.
//   - statuses: Service status aggregator output.
//   - configLoaded: Whether the caller successfully obtained configuration.
//
// # Outputs
//
//   - SetupReadiness: Composed view honoring the §3 invariants of the data
//     model: IsComplete ⇔ AllPrerequisitesMet ∧ CompletedSteps == TotalSteps,
//     and ProgressPercentage guarded against a zero TotalSteps.
func ComposeReadiness(prereqs []Prerequisite, statuses []ServiceStatus, configLoaded bool) SetupReadiness {
	byID := make(map[string]ServiceStatus, len(statuses))
	for _, s := range statuses {
		byID[s.ID] = s
	}

	steps := make([]SetupStep, 0, len(infrastructureSteps)+len(statuses)+3)

	steps = append(steps, SetupStep{
		ID:     "validate-prerequisites",
		Name:   "Validate Prerequisites",
		Status: StepCompleted,
	})

	configStatus := StepPending
	if configLoaded {
		configStatus = StepCompleted
	}
	steps = append(steps, SetupStep{
		ID:     "load-configuration",
		Name:   "Load Configuration",
		Status: configStatus,
	})

	infra := make(map[string]bool, len(infrastructureSteps))
	for _, is := range infrastructureSteps {
		infra[is.ServiceID] = true
		step := SetupStep{
			ID:        is.StepID,
			Name:      is.Name,
			Status:    StepPending,
			ServiceID: is.ServiceID,
		}
		if status, ok := byID[is.ServiceID]; ok {
			step.Status = stepStatusFor(status.State)
			step.Duration = status.ResponseTime
		}
		steps = append(steps, step)
	}

	for _, status := range statuses {
		if infra[status.ID] {
			continue
		}
		name := status.Name
		if display, ok := frontendStepNames[status.ID]; ok {
			name = display
		}
		steps = append(steps, SetupStep{
			ID:        "launch-" + status.ID,
			Name:      name,
			Status:    stepStatusFor(status.State),
			ServiceID: status.ID,
			Duration:  status.ResponseTime,
		})
	}

	steps = append(steps, SetupStep{
		ID:     "health-checks",
		Name:   "Health Checks",
		Status: healthChecksStatus(statuses),
	})

	completed := 0
	for _, s := range steps {
		if s.Status == StepCompleted {
			completed++
		}
	}

	allMet := AllRequiredInstalled(prereqs)
	total := len(steps)
	progress := progressPercentage(completed, total)

	return SetupReadiness{
		Prerequisites:       prereqs,
		Steps:               steps,
		AllPrerequisitesMet: allMet,
		CompletedSteps:      completed,
		TotalSteps:          total,
		ProgressPercentage:  progress,
		IsComplete:          allMet && completed == total,
	}
}

// progressPercentage computes 100*completed/total, with zero total guarded
// to 0 rather than NaN.
func progressPercentage(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(completed) / float64(total)
}

// stepStatusFor maps a service state onto a step status.
func stepStatusFor(state ServiceState) StepStatus {
	switch state {
	case StateOperational:
		return StepCompleted
	case StateDegraded:
		return StepInProgress
	default:
		return StepPending
	}
}

// healthChecksStatus derives the synthetic summary step. The empty-set
// guard is deliberate: with no services checked, the summary is pending,
// never vacuously completed.
func healthChecksStatus(statuses []ServiceStatus) StepStatus {
	if len(statuses) == 0 {
		return StepPending
	}
	operational := 0
	for _, s := range statuses {
		if s.State == StateOperational {
			operational++
		}
	}
	switch {
	case operational == len(statuses):
		return StepCompleted
	case operational > 0:
		return StepInProgress
	default:
		return StepPending
	}
}
