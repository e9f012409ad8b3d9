// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/stackdash/stackdash/services/dashboard/config"
	"github.com/stackdash/stackdash/services/dashboard/observability"
	"github.com/stackdash/stackdash/services/dashboard/routes"
	"github.com/stackdash/stackdash/services/dashboard/setup"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localhost:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("dashboard-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// fileExists adapts os.Stat for environment detection.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	// Configuration failures are not fatal: the dashboard still serves
	// probes against the built-in service set, and the readiness composer
	// reports the "Load Configuration" step as pending.
	configLoaded := true
	cfg := config.Default()
	cfgPath, err := config.DefaultPath()
	if err != nil {
		slog.Warn("Could not resolve config path, using defaults", "error", err)
		configLoaded = false
	} else {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			slog.Warn("Could not load config, using defaults", "path", cfgPath, "error", err)
			cfg = config.Default()
			configLoaded = false
		}
	}

	env := setup.DetectEnvironment(os.LookupEnv, fileExists)
	slog.Info("Detected runtime environment",
		"in_container", env.InContainer, "cloud_provider", string(env.Provider))

	prereqs := setup.NewPrereqChecker(setup.NewExecRunner(), env)
	services := setup.NewServiceChecker(setup.NewHTTPProber(), cfg.ServiceDefinitions(), setup.ServiceCheckerOptions{
		ProbeTimeout:  cfg.ProbeTimeout(),
		DegradedAfter: cfg.DegradedAfter(),
	})
	metrics := observability.NewSetupMetrics()

	router := gin.Default()
	router.Use(otelgin.Middleware("dashboard-service"))

	routes.SetupRoutes(router, routes.Deps{
		Prereqs:      prereqs,
		Services:     services,
		Metrics:      metrics,
		ConfigLoaded: configLoaded,
	})

	port := os.Getenv("STACKDASH_PORT")
	if port == "" {
		port = "4000"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		slog.Info("Starting the dashboard server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down the dashboard server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
}
