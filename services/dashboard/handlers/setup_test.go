// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackdash/stackdash/services/dashboard/datatypes"
	"github.com/stackdash/stackdash/services/dashboard/setup"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// healthyStack returns mocks describing a fully installed, fully
// operational deployment.
func healthyStack() (*setup.MockPrereqChecker, *setup.MockServiceChecker) {
	prereqs := &setup.MockPrereqChecker{
		CheckAllFunc: func(_ context.Context) ([]setup.Prerequisite, error) {
			return []setup.Prerequisite{
				{Name: "Docker", Status: setup.StatusInstalled, Required: true, Version: "Docker version 27.3.1"},
				{Name: "Node.js", Status: setup.StatusInstalled, Required: true, Version: "v22.11.0"},
			}, nil
		},
	}
	services := &setup.MockServiceChecker{
		CheckAllFunc: func(_ context.Context) ([]setup.ServiceStatus, error) {
			return []setup.ServiceStatus{
				{ID: "database", Name: "PostgreSQL", State: setup.StateOperational, ResponseTime: 12 * time.Millisecond, Uptime: 1.0, LastChecked: time.Now()},
				{ID: "cache", Name: "Redis", State: setup.StateOperational, ResponseTime: 3 * time.Millisecond, Uptime: 1.0, LastChecked: time.Now()},
				{ID: "api", Name: "API Server", State: setup.StateOperational, ResponseTime: 20 * time.Millisecond, Uptime: 1.0, LastChecked: time.Now()},
			}, nil
		},
	}
	return prereqs, services
}

func performRequest(handler gin.HandlerFunc, method, path string) *httptest.ResponseRecorder {
	router := gin.New()
	router.Handle(method, path, handler)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

// =============================================================================
// HandleGetPrerequisites
// =============================================================================

func TestHandleGetPrerequisites_Success(t *testing.T) {
	prereqs, services := healthyStack()
	deps := SetupDeps{Prereqs: prereqs, Services: services, ConfigLoaded: true}

	w := performRequest(HandleGetPrerequisites(deps), http.MethodGet, "/route")

	require.Equal(t, http.StatusOK, w.Code)

	var body []datatypes.Prerequisite
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "Docker", body[0].Name)
	assert.Equal(t, "installed", body[0].Status)
	assert.True(t, body[0].Required)
	assert.Equal(t, 1, prereqs.CheckAllCalls)
}

func TestHandleGetPrerequisites_MissingToolIsNotAnError(t *testing.T) {
	prereqs := &setup.MockPrereqChecker{
		CheckAllFunc: func(_ context.Context) ([]setup.Prerequisite, error) {
			return []setup.Prerequisite{
				{Name: "Docker", Status: setup.StatusMissing, Required: true},
			}, nil
		},
	}
	deps := SetupDeps{Prereqs: prereqs, Services: &setup.MockServiceChecker{}}

	w := performRequest(HandleGetPrerequisites(deps), http.MethodGet, "/route")

	require.Equal(t, http.StatusOK, w.Code)

	var body []datatypes.Prerequisite
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "missing", body[0].Status)
}

func TestHandleGetPrerequisites_AggregatorFailure(t *testing.T) {
	prereqs := &setup.MockPrereqChecker{
		CheckAllFunc: func(_ context.Context) ([]setup.Prerequisite, error) {
			return nil, errors.New("aggregator wedged")
		},
	}
	deps := SetupDeps{Prereqs: prereqs, Services: &setup.MockServiceChecker{}}

	w := performRequest(HandleGetPrerequisites(deps), http.MethodGet, "/route")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

// =============================================================================
// HandleGetSetupSteps
// =============================================================================

func TestHandleGetSetupSteps_Success(t *testing.T) {
	prereqs, services := healthyStack()
	deps := SetupDeps{Prereqs: prereqs, Services: services, ConfigLoaded: true}

	w := performRequest(HandleGetSetupSteps(deps), http.MethodGet, "/route")

	require.Equal(t, http.StatusOK, w.Code)

	var steps []datatypes.SetupStep
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &steps))
	require.NotEmpty(t, steps)
	assert.Equal(t, "Validate Prerequisites", steps[0].Name)
	assert.Equal(t, "completed", steps[0].Status)
	assert.Equal(t, "Load Configuration", steps[1].Name)
}

func TestHandleGetSetupSteps_ServiceAggregatorFailure(t *testing.T) {
	prereqs, _ := healthyStack()
	services := &setup.MockServiceChecker{
		CheckAllFunc: func(_ context.Context) ([]setup.ServiceStatus, error) {
			return nil, errors.New("probe pool unavailable")
		},
	}
	deps := SetupDeps{Prereqs: prereqs, Services: services}

	w := performRequest(HandleGetSetupSteps(deps), http.MethodGet, "/route")

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

// =============================================================================
// HandleGetSetupStatus
// =============================================================================

func TestHandleGetSetupStatus_CompleteStack(t *testing.T) {
	prereqs, services := healthyStack()
	deps := SetupDeps{Prereqs: prereqs, Services: services, ConfigLoaded: true}

	w := performRequest(HandleGetSetupStatus(deps), http.MethodGet, "/route")

	require.Equal(t, http.StatusOK, w.Code)

	var body datatypes.SetupReadiness
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.True(t, body.AllPrerequisitesMet)
	assert.True(t, body.IsComplete)
	assert.Equal(t, body.TotalSteps, body.CompletedSteps)
	assert.InDelta(t, 100.0, body.ProgressPercentage, 0.001)
	require.Len(t, body.Prerequisites, 2)
	require.NotEmpty(t, body.Steps)
}

func TestHandleGetSetupStatus_MissingPrerequisiteBlocksCompletion(t *testing.T) {
	prereqs := &setup.MockPrereqChecker{
		CheckAllFunc: func(_ context.Context) ([]setup.Prerequisite, error) {
			return []setup.Prerequisite{
				{Name: "Docker", Status: setup.StatusMissing, Required: true},
			}, nil
		},
	}
	_, services := healthyStack()
	deps := SetupDeps{Prereqs: prereqs, Services: services, ConfigLoaded: true}

	w := performRequest(HandleGetSetupStatus(deps), http.MethodGet, "/route")

	require.Equal(t, http.StatusOK, w.Code)

	var body datatypes.SetupReadiness
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.False(t, body.AllPrerequisitesMet)
	assert.False(t, body.IsComplete)
}

func TestHandleGetSetupStatus_EmptyServiceSet(t *testing.T) {
	prereqs, _ := healthyStack()
	deps := SetupDeps{Prereqs: prereqs, Services: &setup.MockServiceChecker{}, ConfigLoaded: true}

	w := performRequest(HandleGetSetupStatus(deps), http.MethodGet, "/route")

	require.Equal(t, http.StatusOK, w.Code)

	var body datatypes.SetupReadiness
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	// No services yet: infrastructure steps are emitted as pending and
	// the snapshot is not complete.
	assert.False(t, body.IsComplete)
	assert.NotZero(t, body.TotalSteps)
	for _, s := range body.Steps {
		if s.Name == "Health Checks" {
			assert.Equal(t, "pending", s.Status)
		}
	}
}

func TestHandleGetSetupStatus_PrereqFailureFailsClosed(t *testing.T) {
	prereqs := &setup.MockPrereqChecker{
		CheckAllFunc: func(_ context.Context) ([]setup.Prerequisite, error) {
			return nil, errors.New("boom")
		},
	}
	_, services := healthyStack()
	deps := SetupDeps{Prereqs: prereqs, Services: services}

	w := performRequest(HandleGetSetupStatus(deps), http.MethodGet, "/route")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	// Service probes must not run when prerequisite aggregation failed.
	assert.Equal(t, 0, services.CheckAllCalls)
}
