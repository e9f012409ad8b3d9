// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stackdash/stackdash/services/dashboard/handlers"
	"github.com/stackdash/stackdash/services/dashboard/middleware"
	"github.com/stackdash/stackdash/services/dashboard/observability"
	"github.com/stackdash/stackdash/services/dashboard/setup"
)

// Deps carries everything the route table needs.
type Deps struct {
	Prereqs      setup.PrereqChecker
	Services     setup.ServiceChecker
	Metrics      *observability.SetupMetrics
	ConfigLoaded bool
}

// SetupRoutes registers the dashboard API surface on the router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.Use(middleware.RequestID())

	router.GET("/health", handlers.HandleHealthCheck())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupDeps := handlers.SetupDeps{
		Prereqs:      deps.Prereqs,
		Services:     deps.Services,
		Metrics:      deps.Metrics,
		ConfigLoaded: deps.ConfigLoaded,
	}
	serviceDeps := handlers.ServiceDeps{
		Services: deps.Services,
		Metrics:  deps.Metrics,
	}

	api := router.Group("/api")
	{
		setupGroup := api.Group("/setup")
		{
			setupGroup.GET("/prerequisites", handlers.HandleGetPrerequisites(setupDeps))
			setupGroup.GET("/steps", handlers.HandleGetSetupSteps(setupDeps))
			setupGroup.GET("/status", handlers.HandleGetSetupStatus(setupDeps))
		}

		services := api.Group("/services")
		{
			services.GET("", handlers.HandleListServices(serviceDeps))
			services.GET("/:id", handlers.HandleGetService(serviceDeps))
		}
	}
}
