/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"context"

	"chainguard.dev/codeloom/protocol"
)

// ID identifies an upstream completion vendor.
type ID string

const (
	Anthropic ID = "anthropic"
	OpenAI    ID = "openai"
	Google    ID = "google"
)

// Known reports whether the id names a vendor this module can adapt.
func (id ID) Known() bool {
	switch id {
	case Anthropic, OpenAI, Google:
		return true
	}
	return false
}

// All returns the vendors this module can adapt, in default priority order.
func All() []ID {
	return []ID{Anthropic, OpenAI, Google}
}

// EventFunc receives canonical stream events in production order. It fires
// zero or more times before CompleteStream returns.
type EventFunc func(protocol.StreamEvent)

// Client is the canonical completion interface one vendor is adapted
// behind. Construction is cheap and side-effect free; network work happens
// only inside the two calls, and both honor context cancellation by
// aborting the in-flight request and returning a *CancelledError.
type Client interface {
	// Provider reports which vendor this client speaks to.
	Provider() ID

	// Complete performs one non-streaming completion.
	Complete(ctx context.Context, messages []protocol.Message, opts protocol.CompletionOptions) (*protocol.CompletionResponse, error)

	// CompleteStream performs one streaming completion, delivering
	// canonical events through onEvent before resolving with the same
	// final response shape as Complete.
	CompleteStream(ctx context.Context, messages []protocol.Message, opts protocol.CompletionOptions, onEvent EventFunc) (*protocol.CompletionResponse, error)
}
