// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stackdash/stackdash/services/dashboard/datatypes"
)

// =============================================================================
// API CLIENT
// =============================================================================

// APIClient talks to the dashboard service's REST surface.
//
// # Description
//
// A thin typed wrapper over net/http. All methods take a context and
// return decoded wire types from the datatypes package. Non-2xx
// responses are returned as errors carrying the status code and, when
// the body is a JSON error object, the server's message.
//
// # Assumptions
//
//   - BaseURL has no trailing slash (NewAPIClient normalizes it)
//   - The dashboard serves the /api routes registered by the service
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient creates a client for the dashboard at baseURL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetSetupStatus fetches the full readiness snapshot.
func (c *APIClient) GetSetupStatus(ctx context.Context) (*datatypes.SetupReadiness, error) {
	var out datatypes.SetupReadiness
	if err := c.getJSON(ctx, "/api/setup/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPrerequisites fetches the resolved prerequisite list.
func (c *APIClient) GetPrerequisites(ctx context.Context) ([]datatypes.Prerequisite, error) {
	var out []datatypes.Prerequisite
	if err := c.getJSON(ctx, "/api/setup/prerequisites", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSetupSteps fetches the composed setup step sequence.
func (c *APIClient) GetSetupSteps(ctx context.Context) ([]datatypes.SetupStep, error) {
	var out []datatypes.SetupStep
	if err := c.getJSON(ctx, "/api/setup/steps", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetServices fetches the status of every monitored service.
func (c *APIClient) GetServices(ctx context.Context) ([]datatypes.ServiceStatus, error) {
	var out []datatypes.ServiceStatus
	if err := c.getJSON(ctx, "/api/services", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetService fetches the status of a single monitored service.
func (c *APIClient) GetService(ctx context.Context, id string) (*datatypes.ServiceStatus, error) {
	var out datatypes.ServiceStatus
	if err := c.getJSON(ctx, "/api/services/"+id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON performs a GET and decodes the JSON body into out.
func (c *APIClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response from %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, serverError(resp.StatusCode, body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// serverError extracts the server's error message when the body is a
// JSON error object, falling back to the HTTP status text.
func serverError(statusCode int, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Sprintf("%s (%d)", payload.Error, statusCode)
	}
	return fmt.Sprintf("%s (%d)", http.StatusText(statusCode), statusCode)
}
