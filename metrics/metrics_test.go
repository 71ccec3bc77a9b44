/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"testing"

	"chainguard.dev/codeloom/protocol"
	"chainguard.dev/codeloom/provider"
)

func TestRecordAgainstDefaultMeterProvider(t *testing.T) {
	ctx := context.Background()
	m := NewCompletion(ctx, "chainguard.codeloom")
	if m == nil {
		t.Fatal("NewCompletion returned nil")
	}

	// The global provider defaults to noop; recording must still be safe.
	m.RecordUsage(ctx, provider.Anthropic, "claude-sonnet-4-5", protocol.Usage{InputTokens: 10, OutputTokens: 20})
	m.RecordStage(ctx, "architect", "completed")
	m.RecordVariant(ctx, provider.OpenAI, true)
	m.RecordVariant(ctx, provider.Google, false)
}
