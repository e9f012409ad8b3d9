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
	"fmt"
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

// =============================================================================
// HandleListServices
// =============================================================================

func TestHandleListServices_PreservesOrder(t *testing.T) {
	services := &setup.MockServiceChecker{
		CheckAllFunc: func(_ context.Context) ([]setup.ServiceStatus, error) {
			return []setup.ServiceStatus{
				{ID: "database", Name: "PostgreSQL", State: setup.StateOperational, LastChecked: time.Now()},
				{ID: "cache", Name: "Redis", State: setup.StateDown, Message: "connection refused", LastChecked: time.Now()},
				{ID: "api", Name: "API Server", State: setup.StateDegraded, ResponseTime: 1500 * time.Millisecond, LastChecked: time.Now()},
			}, nil
		},
	}

	w := performRequest(HandleListServices(ServiceDeps{Services: services}), http.MethodGet, "/route")

	require.Equal(t, http.StatusOK, w.Code)

	var body []datatypes.ServiceStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 3)
	assert.Equal(t, []string{"database", "cache", "api"}, []string{body[0].ID, body[1].ID, body[2].ID})
	assert.Equal(t, "down", body[1].Status)
	assert.Equal(t, "connection refused", body[1].Message)
	assert.Equal(t, int64(1500), body[2].ResponseTime)
}

func TestHandleListServices_EmptySetIsEmptyArray(t *testing.T) {
	w := performRequest(HandleListServices(ServiceDeps{Services: &setup.MockServiceChecker{}}), http.MethodGet, "/route")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestHandleListServices_AggregatorFailure(t *testing.T) {
	services := &setup.MockServiceChecker{
		CheckAllFunc: func(_ context.Context) ([]setup.ServiceStatus, error) {
			return nil, errors.New("probe pool unavailable")
		},
	}

	w := performRequest(HandleListServices(ServiceDeps{Services: services}), http.MethodGet, "/route")

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

// =============================================================================
// HandleGetService
// =============================================================================

func performServiceRequest(handler gin.HandlerFunc, id string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/api/services/:id", handler)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/services/"+id, nil))
	return w
}

func TestHandleGetService_Known(t *testing.T) {
	services := &setup.MockServiceChecker{
		GetFunc: func(_ context.Context, id string) (*setup.ServiceStatus, error) {
			return &setup.ServiceStatus{
				ID: id, Name: "PostgreSQL", State: setup.StateOperational,
				ResponseTime: 8 * time.Millisecond, Uptime: 0.95, LastChecked: time.Now(),
			}, nil
		},
	}

	w := performServiceRequest(HandleGetService(ServiceDeps{Services: services}), "database")

	require.Equal(t, http.StatusOK, w.Code)

	var body datatypes.ServiceStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "database", body.ID)
	assert.Equal(t, "operational", body.Status)
	assert.InDelta(t, 0.95, body.Uptime, 0.001)
	assert.Equal(t, []string{"database"}, services.GetCalls)
}

func TestHandleGetService_Unknown(t *testing.T) {
	services := &setup.MockServiceChecker{
		GetFunc: func(_ context.Context, id string) (*setup.ServiceStatus, error) {
			return nil, fmt.Errorf("%w: %s", setup.ErrUnknownService, id)
		},
	}

	w := performServiceRequest(HandleGetService(ServiceDeps{Services: services}), "blockchain")

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "blockchain")
}

func TestHandleGetService_ProbeInfrastructureFailure(t *testing.T) {
	services := &setup.MockServiceChecker{
		GetFunc: func(_ context.Context, _ string) (*setup.ServiceStatus, error) {
			return nil, errors.New("transport torn down")
		},
	}

	w := performServiceRequest(HandleGetService(ServiceDeps{Services: services}), "database")

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

// =============================================================================
// HandleHealthCheck
// =============================================================================

func TestHandleHealthCheck(t *testing.T) {
	w := performRequest(HandleHealthCheck(), http.MethodGet, "/route")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
