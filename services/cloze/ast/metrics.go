// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for parsing.
var (
	tracer = otel.Tracer("clozecode.ast")
	meter  = otel.Meter("clozecode.ast")
)

var (
	parseLatency metric.Float64Histogram
	parseTotal   metric.Int64Counter
	nodesBuilt   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		parseLatency, err = meter.Float64Histogram(
			"clozecode_parse_duration_seconds",
			metric.WithDescription("Duration of tree-sitter parsing including tree conversion"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseTotal, err = meter.Int64Counter(
			"clozecode_parse_total",
			metric.WithDescription("Total number of parse operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesBuilt, err = meter.Int64Histogram(
			"clozecode_parse_nodes",
			metric.WithDescription("Number of syntax nodes per parsed source"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordParseMetrics records one parse operation.
//
// Parameters:
//   - ctx: Context for metric recording
//   - language: Grammar used
//   - duration: Wall time of the parse
//   - nodeCount: Nodes in the converted tree (ignored when success is false)
//   - success: Whether a tree was produced
func recordParseMetrics(ctx context.Context, language string, duration time.Duration, nodeCount int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("language", language),
		attribute.Bool("success", success),
	)
	parseLatency.Record(ctx, duration.Seconds(), attrs)
	parseTotal.Add(ctx, 1, attrs)

	if success {
		nodesBuilt.Record(ctx, int64(nodeCount),
			metric.WithAttributes(attribute.String("language", language)),
		)
	}
}

// startParseSpan creates a span for a parse. Caller must End it.
func startParseSpan(ctx context.Context, language string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Parser.Parse",
		trace.WithAttributes(
			attribute.String("ast.language", language),
			attribute.Int("ast.content_size", contentSize),
		),
	)
}
