// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the HTTP service.
//
// # Description
//
// Engine-level metrics (run duration, notes added) are emitted through
// OpenTelemetry by the synth package. This package covers the request
// side:
//   - Request counters (by route and status)
//   - Request latency histograms
//   - Cards returned per generate request
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "clozecode"

const httpSubsystem = "http"

// HTTPMetrics holds the service's request metrics.
type HTTPMetrics struct {
	// RequestsTotal counts requests. Labels: route, method, status.
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures handler latency. Labels: route.
	RequestDurationSeconds *prometheus.HistogramVec

	// CardsPerRequest observes TotalCards of each generate response.
	CardsPerRequest prometheus.Histogram

	// GenerateFailuresTotal counts unsuccessful generate runs. Labels: reason.
	GenerateFailuresTotal *prometheus.CounterVec
}

// Failure reasons for GenerateFailuresTotal.
const (
	ReasonValidation  = "validation"
	ReasonUnreachable = "unreachable"
	ReasonBusy        = "busy"
	ReasonEngine      = "engine"
)

// NewHTTPMetrics creates and registers the metrics with reg. A nil reg
// uses the default registerer.
//
// # Limitations
//
//   - Panics if the same registerer is used twice (duplicate registration).
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &HTTPMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "requests_total",
				Help:      "Total HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),

		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route"},
		),

		CardsPerRequest: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "cards_per_request",
				Help:      "Cards produced per generate request",
				Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
			},
		),

		GenerateFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "generate_failures_total",
				Help:      "Unsuccessful generate requests by reason",
			},
			[]string{"reason"},
		),
	}
}

// Middleware records RequestsTotal and RequestDurationSeconds. Unmatched
// routes are labelled "unmatched" to bound cardinality.
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// RecordGenerate records the outcome of one generate request.
func (m *HTTPMetrics) RecordGenerate(totalCards int, failureReason string) {
	if failureReason != "" {
		m.GenerateFailuresTotal.WithLabelValues(failureReason).Inc()
		return
	}
	m.CardsPerRequest.Observe(float64(totalCards))
}
