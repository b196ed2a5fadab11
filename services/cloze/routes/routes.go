// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/clozecode/services/cloze/handlers"
	"github.com/AleutianAI/clozecode/services/cloze/observability"
)

// Deps are the collaborators the routes need.
type Deps struct {
	// Generator runs submissions. Required.
	Generator handlers.CardGenerator

	// Languages is reported by /health.
	Languages []string

	// Metrics records request metrics. Optional.
	Metrics *observability.HTTPMetrics

	// MetricsHandler serves /metrics. Optional; the route is absent when nil.
	MetricsHandler http.Handler

	// AllowOrigins are the origins answered with CORS headers. "*" allows
	// any origin. Empty disables the CORS middleware.
	AllowOrigins []string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewRouter builds the service's gin engine with recovery, CORS, tracing
// and request metrics installed.
func NewRouter(serviceName string, deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if len(deps.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig(deps.AllowOrigins)))
	}
	router.Use(otelgin.Middleware(serviceName))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}
	SetupRoutes(router, deps)
	return router
}

// SetupRoutes registers the endpoints on router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router.GET("/health", handlers.HandleHealth(deps.Languages))
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	router.POST("/generate", handlers.HandleGenerate(deps.Generator, deps.Metrics, logger))
	router.POST("/preview", handlers.HandlePreview(deps.Generator, deps.Metrics, logger))
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
