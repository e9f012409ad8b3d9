// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/stackdash/stackdash/services/dashboard/datatypes"
	"github.com/stackdash/stackdash/services/dashboard/observability"
	"github.com/stackdash/stackdash/services/dashboard/setup"
)

// ServiceDeps bundles the collaborators the service-status handlers need.
type ServiceDeps struct {
	Services setup.ServiceChecker
	Metrics  *observability.SetupMetrics
}

// HandleListServices probes every monitored service and returns the
// results in declaration order.
//
// GET /api/services
//
// Individual probe failures appear as entries in the "down" state; the
// endpoint itself only fails when the aggregation round does.
func HandleListServices(deps ServiceDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := setupTracer.Start(c.Request.Context(), "HandleListServices")
		defer span.End()

		start := time.Now()
		statuses, err := deps.Services.CheckAll(ctx)
		deps.Metrics.ObserveAggregation("services", time.Since(start))
		deps.Metrics.ObserveRequest("services", err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Service aggregation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check services"})
			return
		}

		deps.Metrics.RecordServiceStatuses(statuses)
		c.JSON(http.StatusOK, datatypes.FromServiceStatuses(statuses))
	}
}

// HandleGetService probes a single monitored service by ID.
//
// GET /api/services/:id
//
// Returns 404 for IDs that are not part of the monitored set.
func HandleGetService(deps ServiceDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := setupTracer.Start(c.Request.Context(), "HandleGetService")
		defer span.End()

		id := c.Param("id")
		span.SetAttributes(attribute.String("service_id", id))

		status, err := deps.Services.Get(ctx, id)
		deps.Metrics.ObserveRequest("service", err)
		if err != nil {
			if errors.Is(err, setup.ErrUnknownService) {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown service: " + id})
				return
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Service probe failed", "service_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check service"})
			return
		}

		c.JSON(http.StatusOK, datatypes.FromServiceStatus(*status))
	}
}

// HandleHealthCheck reports liveness of the dashboard service itself.
//
// GET /health
func HandleHealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
