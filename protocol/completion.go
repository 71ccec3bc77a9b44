/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolDefinition describes a tool an assistant may call during a completion.
// InputSchema is a JSON schema for the tool's arguments object.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"input_schema,omitempty"`
}

// ReflectInput derives the input schema for a tool from its Go argument
// struct, using jsonschema struct tags for required fields.
func ReflectInput[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
	}
	var zero T
	return reflector.Reflect(&zero)
}

// SchemaObject renders the tool's input schema as a generic JSON object so
// that vendor adapters can re-encode it into their own schema types. A nil
// or unmarshalable schema yields a minimal empty object schema.
func (d ToolDefinition) SchemaObject() map[string]any {
	empty := map[string]any{"type": "object", "properties": map[string]any{}}
	if d.InputSchema == nil {
		return empty
	}
	raw, err := json.Marshal(d.InputSchema)
	if err != nil {
		return empty
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return empty
	}
	if _, ok := obj["type"]; !ok {
		obj["type"] = "object"
	}
	return obj
}

// CompletionOptions carries the per-request knobs every adapter understands.
// Nil pointer fields mean "use the vendor default".
type CompletionOptions struct {
	Model         string           `json:"model"`
	MaxTokens     int64            `json:"max_tokens"`
	Temperature   *float64         `json:"temperature,omitempty"`
	TopP          *float64         `json:"top_p,omitempty"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
	SystemPrompt  string           `json:"system_prompt,omitempty"`
}

// Usage reports token consumption for one completion. Missing vendor fields
// default to zero; TotalTokens is derived when the vendor omits it.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Normalize fills TotalTokens from the parts when the vendor omitted it.
func (u Usage) Normalize() Usage {
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u
}

// CompletionResponse is the canonical result of one completion call,
// streaming or not.
type CompletionResponse struct {
	ID         string         `json:"id"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason StopReason     `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// Text concatenates the response's text blocks in order.
func (r *CompletionResponse) Text() string {
	return Message{Role: RoleAssistant, Content: r.Content}.Text()
}
