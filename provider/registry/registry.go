/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"chainguard.dev/codeloom/provider"
	"chainguard.dev/codeloom/provider/anthropicprovider"
	"chainguard.dev/codeloom/provider/googleprovider"
	"chainguard.dev/codeloom/provider/openaiprovider"
)

// models lists the chat-capable models per provider, default first.
var models = map[provider.ID][]string{
	provider.Anthropic: {
		"claude-sonnet-4-5",
		"claude-opus-4-1",
		"claude-haiku-4-5",
	},
	provider.OpenAI: {
		"gpt-4o",
		"gpt-4o-mini",
		"o3-mini",
	},
	provider.Google: {
		"gemini-2.5-flash",
		"gemini-2.5-pro",
	},
}

// New returns a client for the given provider. Construction never fails
// and performs no I/O; an unrecognized provider yields a stub client whose
// calls return ErrUnsupportedProvider.
func New(id provider.ID, apiKey string) provider.Client {
	switch id {
	case provider.Anthropic:
		return anthropicprovider.New(apiKey)
	case provider.OpenAI:
		return openaiprovider.New(apiKey)
	case provider.Google:
		return googleprovider.New(apiKey)
	default:
		return provider.Unsupported(id)
	}
}

// DefaultModel returns the provider's default chat model, or "" for an
// unrecognized provider.
func DefaultModel(id provider.ID) string {
	if m := models[id]; len(m) > 0 {
		return m[0]
	}
	return ""
}

// AvailableModels returns the provider's known chat models, default first.
// The returned slice is a copy.
func AvailableModels(id provider.ID) []string {
	m := models[id]
	if m == nil {
		return nil
	}
	out := make([]string, len(m))
	copy(out, m)
	return out
}
