/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToolUseBlockNormalizesNilInput(t *testing.T) {
	block := ToolUseBlock("call_1", "search", nil)
	if block.Input == nil {
		t.Fatal("ToolUseBlock(nil input) must normalize to an empty object")
	}
	if len(block.Input) != 0 {
		t.Errorf("expected empty input, got %v", block.Input)
	}
}

func TestMessageText(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{{
		name: "single text block",
		msg:  UserMessage("hello"),
		want: "hello",
	}, {
		name: "text around a tool call concatenates in order",
		msg: AssistantMessage(
			TextBlock("Let me check. "),
			ToolUseBlock("call_1", "search", map[string]any{"q": "ai"}),
			TextBlock("Done."),
		),
		want: "Let me check. Done.",
	}, {
		name: "non-text blocks only",
		msg:  AssistantMessage(ToolUseBlock("call_1", "search", nil)),
		want: "",
	}, {
		name: "empty content",
		msg:  Message{Role: RoleAssistant},
		want: "",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessageToolUses(t *testing.T) {
	msg := AssistantMessage(
		TextBlock("calling"),
		ToolUseBlock("call_1", "read_file", map[string]any{"path": "a.go"}),
		ToolUseBlock("call_2", "list_dir", map[string]any{"path": "."}),
	)

	calls := msg.ToolUses()
	if len(calls) != 2 {
		t.Fatalf("expected 2 tool uses, got %d", len(calls))
	}
	if calls[0].ID != "call_1" || calls[1].ID != "call_2" {
		t.Errorf("tool uses out of order: %v", calls)
	}
}

func TestUsageNormalize(t *testing.T) {
	got := Usage{InputTokens: 10, OutputTokens: 5}.Normalize()
	want := Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}

	// A vendor-supplied total is preserved even when it disagrees.
	kept := Usage{InputTokens: 1, OutputTokens: 1, TotalTokens: 5}.Normalize()
	if kept.TotalTokens != 5 {
		t.Errorf("Normalize() overwrote vendor total: %v", kept)
	}
}

func TestSchemaObjectDefaults(t *testing.T) {
	def := ToolDefinition{Name: "search"}
	obj := def.SchemaObject()
	if obj["type"] != "object" {
		t.Errorf("nil schema must render as an object schema, got %v", obj)
	}
}

func TestReflectInput(t *testing.T) {
	type searchInput struct {
		Query string `json:"query" jsonschema:"required,description=Search query"`
		Limit int    `json:"limit,omitempty"`
	}

	schema := ReflectInput[searchInput]()
	if schema == nil {
		t.Fatal("ReflectInput returned nil")
	}

	obj := ToolDefinition{Name: "search", InputSchema: schema}.SchemaObject()
	props, ok := obj["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema object missing properties: %v", obj)
	}
	if _, ok := props["query"]; !ok {
		t.Errorf("expected query property, got %v", props)
	}
}
