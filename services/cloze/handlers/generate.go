// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/clozecode/services/cloze/datatypes"
	"github.com/AleutianAI/clozecode/services/cloze/observability"
	"github.com/AleutianAI/clozecode/services/cloze/synth"
)

var generateTracer = otel.Tracer("clozecode.handlers")

// maxBodyBytes leaves room for the JSON envelope around the code field.
const maxBodyBytes = datatypes.MaxCodeBytes + 64*1024

// CardGenerator is the engine surface the handlers need.
// *synth.Engine satisfies it.
type CardGenerator interface {
	GenerateCards(ctx context.Context, sub synth.Submission) synth.Result
	Synthesize(ctx context.Context, sub synth.Submission) ([]synth.Card, error)
}

// HandleGenerate serves POST /generate.
//
// The engine's Result is returned as-is with 200, including unsuccessful
// runs; clients read "success". Only a malformed or invalid body is a 400.
func HandleGenerate(gen CardGenerator, metrics *observability.HTTPMetrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := generateTracer.Start(c.Request.Context(), "HandleGenerate")
		defer span.End()

		req, ok := bindGenerateRequest(c, metrics, logger)
		if !ok {
			span.SetStatus(codes.Error, "invalid request")
			return
		}
		sub := req.ToSubmission()
		span.SetAttributes(
			attribute.String("deck", sub.Deck),
			attribute.Int("code_bytes", len(sub.Source)),
		)

		result := gen.GenerateCards(ctx, sub)
		if !result.Success {
			span.SetStatus(codes.Error, result.Message)
			logger.Warn("generate failed", "run_id", result.RunID, "message", result.Message)
		}
		if metrics != nil {
			metrics.RecordGenerate(result.TotalCards, failureReason(result))
		}
		c.JSON(http.StatusOK, result)
	}
}

// HandlePreview serves POST /preview: the cards a generate request would
// add, rendered without contacting the backend.
func HandlePreview(gen CardGenerator, metrics *observability.HTTPMetrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := generateTracer.Start(c.Request.Context(), "HandlePreview")
		defer span.End()

		req, ok := bindGenerateRequest(c, metrics, logger)
		if !ok {
			span.SetStatus(codes.Error, "invalid request")
			return
		}

		cards, err := gen.Synthesize(ctx, req.ToSubmission())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			status := http.StatusInternalServerError
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		resp := datatypes.PreviewResponse{Cards: make([]datatypes.CardView, len(cards))}
		for i, card := range cards {
			resp.Cards[i] = datatypes.CardView{
				Index:  card.Index,
				Total:  card.Total,
				Blanks: card.Blanks,
				Text:   card.Text,
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

func bindGenerateRequest(c *gin.Context, metrics *observability.HTTPMetrics, logger *slog.Logger) (*datatypes.GenerateRequest, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req datatypes.GenerateRequest
	// An empty body is treated as {} so it reports the missing code.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("bad generate body", "error", err)
		rejectRequest(c, metrics, "invalid request body")
		return nil, false
	}
	if err := req.Validate(); err != nil {
		msg := err.Error()
		if !errors.Is(err, datatypes.ErrCodeRequired) {
			logger.Warn("generate request rejected", "error", err)
			msg = "invalid request: " + msg
		}
		rejectRequest(c, metrics, msg)
		return nil, false
	}
	return &req, true
}

func rejectRequest(c *gin.Context, metrics *observability.HTTPMetrics, msg string) {
	if metrics != nil {
		metrics.RecordGenerate(0, observability.ReasonValidation)
	}
	c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: msg})
}

func failureReason(result synth.Result) string {
	switch {
	case result.Success:
		return ""
	case result.Message == synth.ConnectivityMessage:
		return observability.ReasonUnreachable
	case strings.HasPrefix(result.Message, synth.ErrBusy.Error()):
		return observability.ReasonBusy
	default:
		return observability.ReasonEngine
	}
}
