// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package synth

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("clozecode.synth")
	meter  = otel.Meter("clozecode.synth")
)

var (
	runDuration  metric.Float64Histogram
	runTotal     metric.Int64Counter
	notesAdded   metric.Int64Counter
	notesFailed  metric.Int64Counter
	blanksPerRun metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runDuration, err = meter.Float64Histogram(
			"clozecode_run_duration_seconds",
			metric.WithDescription("Duration of a card generation run"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"clozecode_runs_total",
			metric.WithDescription("Card generation runs by final state"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		notesAdded, err = meter.Int64Counter(
			"clozecode_notes_added_total",
			metric.WithDescription("Notes accepted by the backend"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		notesFailed, err = meter.Int64Counter(
			"clozecode_notes_failed_total",
			metric.WithDescription("Notes the backend rejected or never received"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		blanksPerRun, err = meter.Int64Histogram(
			"clozecode_blanks_per_run",
			metric.WithDescription("Blank candidates extracted per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordRunMetrics records one finished run.
func recordRunMetrics(ctx context.Context, state runState, duration time.Duration, added, failed, blanks int) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("state", state.String()))
	runDuration.Record(ctx, duration.Seconds(), attrs)
	runTotal.Add(ctx, 1, attrs)
	if added > 0 {
		notesAdded.Add(ctx, int64(added))
	}
	if failed > 0 {
		notesFailed.Add(ctx, int64(failed))
	}
	if state == stateDone {
		blanksPerRun.Record(ctx, int64(blanks))
	}
}

func startRunSpan(ctx context.Context, runID, deck string, sourceSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.GenerateCards",
		trace.WithAttributes(
			attribute.String("synth.run_id", runID),
			attribute.String("synth.deck", deck),
			attribute.Int("synth.source_size", sourceSize),
		),
	)
}
