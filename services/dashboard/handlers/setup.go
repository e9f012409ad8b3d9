// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP handlers for the dashboard service.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/stackdash/stackdash/services/dashboard/datatypes"
	"github.com/stackdash/stackdash/services/dashboard/observability"
	"github.com/stackdash/stackdash/services/dashboard/setup"
)

var setupTracer = otel.Tracer("stackdash.dashboard.handlers")

// SetupDeps bundles the collaborators the readiness handlers need.
//
// ConfigLoaded reports whether the service configuration file parsed
// successfully at startup. It feeds the "Load Configuration" step.
type SetupDeps struct {
	Prereqs      setup.PrereqChecker
	Services     setup.ServiceChecker
	Metrics      *observability.SetupMetrics
	ConfigLoaded bool
}

// HandleGetPrerequisites returns the resolved prerequisite list.
//
// GET /api/setup/prerequisites
//
// Every entry is installed or missing by the time the response is
// written. A probe that failed internally reports the tool as missing
// rather than surfacing the failure as an HTTP error; only a failure of
// the aggregation round itself produces a 500.
func HandleGetPrerequisites(deps SetupDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := setupTracer.Start(c.Request.Context(), "HandleGetPrerequisites")
		defer span.End()

		start := time.Now()
		prereqs, err := deps.Prereqs.CheckAll(ctx)
		deps.Metrics.ObserveAggregation("prerequisites", time.Since(start))
		deps.Metrics.ObserveRequest("prerequisites", err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Prerequisite aggregation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check prerequisites"})
			return
		}

		deps.Metrics.RecordPrerequisites(prereqs)
		c.JSON(http.StatusOK, datatypes.FromPrerequisites(prereqs))
	}
}

// HandleGetSetupSteps returns the composed setup step sequence.
//
// GET /api/setup/steps
//
// Runs both aggregators, composes the readiness snapshot, and returns
// only its steps.
func HandleGetSetupSteps(deps SetupDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := setupTracer.Start(c.Request.Context(), "HandleGetSetupSteps")
		defer span.End()

		readiness, err := aggregateReadiness(ctx, deps)
		deps.Metrics.ObserveRequest("steps", err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Setup step aggregation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to determine setup steps"})
			return
		}

		c.JSON(http.StatusOK, datatypes.FromSetupSteps(readiness.Steps))
	}
}

// HandleGetSetupStatus returns the full readiness snapshot.
//
// GET /api/setup/status
//
// The snapshot is recomputed on every call from live probe results;
// nothing is cached server-side.
func HandleGetSetupStatus(deps SetupDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := setupTracer.Start(c.Request.Context(), "HandleGetSetupStatus")
		defer span.End()

		readiness, err := aggregateReadiness(ctx, deps)
		deps.Metrics.ObserveRequest("status", err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Readiness aggregation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to determine setup status"})
			return
		}

		c.JSON(http.StatusOK, datatypes.FromSetupReadiness(readiness))
	}
}

// aggregateReadiness runs both aggregators and composes the snapshot.
func aggregateReadiness(ctx context.Context, deps SetupDeps) (setup.SetupReadiness, error) {
	start := time.Now()
	prereqs, err := deps.Prereqs.CheckAll(ctx)
	deps.Metrics.ObserveAggregation("prerequisites", time.Since(start))
	if err != nil {
		return setup.SetupReadiness{}, err
	}
	deps.Metrics.RecordPrerequisites(prereqs)

	start = time.Now()
	statuses, err := deps.Services.CheckAll(ctx)
	deps.Metrics.ObserveAggregation("services", time.Since(start))
	if err != nil {
		return setup.SetupReadiness{}, err
	}
	deps.Metrics.RecordServiceStatuses(statuses)

	return setup.ComposeReadiness(prereqs, statuses, deps.ConfigLoaded), nil
}
