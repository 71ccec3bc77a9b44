/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import "chainguard.dev/codeloom/provider"

// FallbackEntry is one ranked candidate for serving a completion.
// Confidence is an extension point for quality-based ranking; nothing
// populates it today and ties break on list position.
type FallbackEntry struct {
	Provider   provider.ID
	Model      string
	Confidence float64
}

// RoutingDecision is the ordered candidate list produced when resolving
// which back end serves a role or task. The first entry with a usable
// credential wins.
type RoutingDecision struct {
	Entries []FallbackEntry
}

// Providers returns the decision's providers in rank order.
func (d RoutingDecision) Providers() []provider.ID {
	out := make([]provider.ID, 0, len(d.Entries))
	for _, e := range d.Entries {
		out = append(out, e.Provider)
	}
	return out
}

// decide builds the routing decision for a priority list, pairing each
// provider with its default model.
func decide(priority []provider.ID, defaultModel func(provider.ID) string) RoutingDecision {
	entries := make([]FallbackEntry, 0, len(priority))
	for _, id := range priority {
		entries = append(entries, FallbackEntry{Provider: id, Model: defaultModel(id)})
	}
	return RoutingDecision{Entries: entries}
}
