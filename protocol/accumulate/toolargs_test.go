/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package accumulate

import (
	"testing"

	"chainguard.dev/codeloom/protocol"
	"github.com/google/go-cmp/cmp"
)

func TestFragmentConcatenationIsAssociative(t *testing.T) {
	// Splitting a JSON document into any ordered partition of non-empty
	// fragments must yield the same parsed object as feeding it whole.
	const whole = `{"q":"ai"}`
	partitions := [][]string{
		{whole},
		{`{"q"`, `:"ai"}`},
		{`{`, `"q":`, `"ai"`, `}`},
		{`{"q":"a`, `i"}`},
		{`{`, `"`, `q`, `"`, `:`, `"`, `a`, `i`, `"`, `}`},
	}

	want := map[string]any{"q": "ai"}
	for _, fragments := range partitions {
		args := NewToolArgs()
		for _, fragment := range fragments {
			args.Observe(0, "call_1", "search", fragment)
		}
		calls := args.Calls()
		if len(calls) != 1 {
			t.Fatalf("partition %v: expected 1 call, got %d", fragments, len(calls))
		}
		if diff := cmp.Diff(want, calls[0].Input); diff != "" {
			t.Errorf("partition %v: input mismatch (-want +got):\n%s", fragments, diff)
		}
	}
}

func TestMalformedArgumentsNeverRaise(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{{
		name: "empty string",
		raw:  "",
	}, {
		name: "truncated object",
		raw:  `{"path": "a.g`,
	}, {
		name: "not json at all",
		raw:  `definitely not json`,
	}, {
		name: "json null",
		raw:  `null`,
	}, {
		name: "json array instead of object",
		raw:  `[1, 2, 3]`,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := NewToolArgs()
			args.Observe(0, "call_1", "broken", tt.raw)
			calls := args.Calls()
			if len(calls) != 1 {
				t.Fatalf("expected 1 call, got %d", len(calls))
			}
			if calls[0].Input == nil || len(calls[0].Input) != 0 {
				t.Errorf("malformed arguments must default to {}, got %v", calls[0].Input)
			}
		})
	}
}

func TestLateIDAndName(t *testing.T) {
	args := NewToolArgs()
	// First sighting carries nothing but a fragment; the vendor names the
	// call on a later delta.
	args.Observe(0, "", "", `{"pa`)
	args.Observe(0, "call_9", "read_file", `th":"x"}`)

	calls := args.Calls()
	want := []protocol.ContentBlock{
		protocol.ToolUseBlock("call_9", "read_file", map[string]any{"path": "x"}),
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("Calls() mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstSeenOrder(t *testing.T) {
	args := NewToolArgs()
	args.Observe(5, "call_c", "third", `{}`)
	args.Observe(1, "call_a", "first", `{}`)
	args.Observe(5, "", "", ``)
	args.Observe(2, "call_b", "second", `{}`)

	if diff := cmp.Diff([]int{5, 1, 2}, args.Indices()); diff != "" {
		t.Errorf("Indices() mismatch (-want +got):\n%s", diff)
	}

	calls := args.Calls()
	if calls[0].Name != "third" || calls[1].Name != "first" || calls[2].Name != "second" {
		t.Errorf("Calls() not in first-seen order: %v", calls)
	}
}
