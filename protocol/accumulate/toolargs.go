/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package accumulate

import (
	"encoding/json"

	"chainguard.dev/codeloom/protocol"
)

// PartialCall is a tool call under assembly. Arguments is the raw
// concatenation of every JSON fragment seen so far for this call.
type PartialCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolArgs assembles tool-call arguments from streamed JSON fragments,
// keyed by the vendor's call index. Calls are remembered in the order they
// were first seen.
type ToolArgs struct {
	order []int
	calls map[int]*PartialCall
}

// NewToolArgs returns an empty tool-call argument accumulator.
func NewToolArgs() *ToolArgs {
	return &ToolArgs{calls: make(map[int]*PartialCall)}
}

// Observe records a fragment for the call at the given vendor index. The
// first sighting of an index creates the call; id and name are captured
// whenever the vendor supplies them, including late (some vendors only
// name a call on its first delta, others repeat it on every chunk).
func (t *ToolArgs) Observe(index int, id, name, fragment string) {
	call, ok := t.calls[index]
	if !ok {
		call = &PartialCall{}
		t.calls[index] = call
		t.order = append(t.order, index)
	}
	if id != "" {
		call.ID = id
	}
	if name != "" {
		call.Name = name
	}
	call.Arguments += fragment
}

// Len reports how many distinct calls have been observed.
func (t *ToolArgs) Len() int {
	return len(t.order)
}

// Indices returns the vendor call indices in first-seen order.
func (t *ToolArgs) Indices() []int {
	out := make([]int, len(t.order))
	copy(out, t.order)
	return out
}

// Calls finalizes every observed call in first-seen order. Each call's
// accumulated argument string is parsed as JSON; an empty or malformed
// string yields an empty input object so a truncated stream can never fail
// here.
func (t *ToolArgs) Calls() []protocol.ContentBlock {
	blocks := make([]protocol.ContentBlock, 0, len(t.order))
	for _, index := range t.order {
		call := t.calls[index]
		blocks = append(blocks, protocol.ToolUseBlock(call.ID, call.Name, parseArguments(call.Arguments)))
	}
	return blocks
}

// parseArguments parses an accumulated argument string, defaulting to an
// empty object on empty or malformed input.
func parseArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil || input == nil {
		return map[string]any{}
	}
	return input
}
