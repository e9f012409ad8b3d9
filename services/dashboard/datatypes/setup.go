// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the wire representations served to the
// dashboard frontend. Fields are camelCase and durations are expressed in
// whole milliseconds, matching what the polling client renders.
package datatypes

import (
	"time"

	"github.com/stackdash/stackdash/services/dashboard/setup"
)

// Prerequisite is the wire form of setup.Prerequisite.
type Prerequisite struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Version     string `json:"version,omitempty"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// ServiceStatus is the wire form of setup.ServiceStatus.
type ServiceStatus struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Endpoint     string  `json:"endpoint"`
	Status       string  `json:"status"`
	ResponseTime int64   `json:"responseTime"`
	Uptime       float64 `json:"uptime"`
	LastChecked  string  `json:"lastChecked"`
	Message      string  `json:"message,omitempty"`
}

// SetupStep is the wire form of setup.SetupStep.
type SetupStep struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Service  string `json:"service,omitempty"`
	Duration int64  `json:"duration,omitempty"`
}

// SetupReadiness is the wire form of setup.SetupReadiness.
type SetupReadiness struct {
	Prerequisites       []Prerequisite `json:"prerequisites"`
	Steps               []SetupStep    `json:"steps"`
	AllPrerequisitesMet bool           `json:"allPrerequisitesMet"`
	CompletedSteps      int            `json:"completedSteps"`
	TotalSteps          int            `json:"totalSteps"`
	ProgressPercentage  float64        `json:"progressPercentage"`
	IsComplete          bool           `json:"isComplete"`
}

// FromPrerequisite converts a domain prerequisite to its wire form.
func FromPrerequisite(p setup.Prerequisite) Prerequisite {
	return Prerequisite{
		Name:        p.Name,
		Status:      string(p.Status),
		Version:     p.Version,
		Required:    p.Required,
		Description: p.Description,
	}
}

// FromPrerequisites converts a slice, preserving order. A nil input yields
// an empty (not null) JSON array.
func FromPrerequisites(prereqs []setup.Prerequisite) []Prerequisite {
	out := make([]Prerequisite, len(prereqs))
	for i, p := range prereqs {
		out[i] = FromPrerequisite(p)
	}
	return out
}

// FromServiceStatus converts a domain service status to its wire form.
func FromServiceStatus(s setup.ServiceStatus) ServiceStatus {
	return ServiceStatus{
		ID:           s.ID,
		Name:         s.Name,
		Endpoint:     s.Endpoint,
		Status:       string(s.State),
		ResponseTime: s.ResponseTime.Milliseconds(),
		Uptime:       s.Uptime,
		LastChecked:  s.LastChecked.UTC().Format(time.RFC3339),
		Message:      s.Message,
	}
}

// FromServiceStatuses converts a slice, preserving order.
func FromServiceStatuses(statuses []setup.ServiceStatus) []ServiceStatus {
	out := make([]ServiceStatus, len(statuses))
	for i, s := range statuses {
		out[i] = FromServiceStatus(s)
	}
	return out
}

// FromSetupStep converts a domain step to its wire form.
func FromSetupStep(s setup.SetupStep) SetupStep {
	return SetupStep{
		ID:       s.ID,
		Name:     s.Name,
		Status:   string(s.Status),
		Service:  s.ServiceID,
		Duration: s.Duration.Milliseconds(),
	}
}

// FromSetupSteps converts a slice, preserving order.
func FromSetupSteps(steps []setup.SetupStep) []SetupStep {
	out := make([]SetupStep, len(steps))
	for i, s := range steps {
		out[i] = FromSetupStep(s)
	}
	return out
}

// FromSetupReadiness converts the composed view to its wire form.
func FromSetupReadiness(r setup.SetupReadiness) SetupReadiness {
	return SetupReadiness{
		Prerequisites:       FromPrerequisites(r.Prerequisites),
		Steps:               FromSetupSteps(r.Steps),
		AllPrerequisitesMet: r.AllPrerequisitesMet,
		CompletedSteps:      r.CompletedSteps,
		TotalSteps:          r.TotalSteps,
		ProgressPercentage:  r.ProgressPercentage,
		IsComplete:          r.IsComplete,
	}
}
