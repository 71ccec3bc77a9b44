/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"chainguard.dev/codeloom/protocol"
	"chainguard.dev/codeloom/provider"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Completion records OpenTelemetry counters for completion traffic:
// token usage per provider/model, stage executions, and variant
// generations. Counter creation degrades to noop instruments rather than
// failing construction, so callers can always record unconditionally.
type Completion struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	stages       metric.Int64Counter
	variants     metric.Int64Counter
}

// NewCompletion returns a Completion metrics instance on the named meter.
// The provider and model are recorded as dimensions, so one meter name
// serves every adapter.
func NewCompletion(ctx context.Context, meterName string) *Completion {
	log := clog.FromContext(ctx)
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	counter := func(name, description, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name,
			metric.WithDescription(description),
			metric.WithUnit(unit))
		if err != nil {
			log.With("meter", meterName, "counter", name).
				Warn("failed to create counter, recording disabled for it", "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Completion{
		inputTokens:  counter("genai.token.input", "The number of input tokens used", "{tokens}"),
		outputTokens: counter("genai.token.output", "The number of output tokens used", "{tokens}"),
		stages:       counter("pipeline.stage.executions", "The number of pipeline stage executions", "{stages}"),
		variants:     counter("pipeline.variant.generations", "The number of variant generations", "{variants}"),
	}
}

// RecordUsage records the token usage of one completion.
func (c *Completion) RecordUsage(ctx context.Context, id provider.ID, model string, usage protocol.Usage) {
	attrs := metric.WithAttributes(
		attribute.String("provider", string(id)),
		attribute.String("model", model),
	)
	c.inputTokens.Add(ctx, usage.InputTokens, attrs)
	c.outputTokens.Add(ctx, usage.OutputTokens, attrs)
}

// RecordStage records one stage execution and its outcome.
func (c *Completion) RecordStage(ctx context.Context, role, outcome string) {
	c.stages.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
		attribute.String("outcome", outcome),
	))
}

// RecordVariant records one variant generation attempt against a provider.
func (c *Completion) RecordVariant(ctx context.Context, id provider.ID, succeeded bool) {
	c.variants.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", string(id)),
		attribute.Bool("succeeded", succeeded),
	))
}
