/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleprovider

import (
	"chainguard.dev/codeloom/protocol"
	"google.golang.org/genai"
)

func ptr[T any](v T) *T {
	return &v
}

// buildContents maps canonical turns onto GenAI contents. System messages
// are folded into the system instruction alongside the SystemPrompt
// option; the merged instruction is returned separately.
func buildContents(messages []protocol.Message, systemPrompt string) ([]*genai.Content, *genai.Content) {
	system := systemPrompt
	var contents []*genai.Content

	for _, msg := range messages {
		if msg.Role == protocol.RoleSystem {
			if text := msg.Text(); text != "" {
				if system != "" {
					system += "\n\n"
				}
				system += text
			}
			continue
		}

		role := "user"
		if msg.Role == protocol.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: mapParts(msg.Content),
		})
	}

	var instruction *genai.Content
	if system != "" {
		instruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	return contents, instruction
}

// mapParts maps canonical blocks onto GenAI parts. Unsupported media
// degrades to an empty text part rather than failing the request.
func mapParts(blocks []protocol.ContentBlock) []*genai.Part {
	parts := make([]*genai.Part, 0, len(blocks))
	for _, block := range blocks {
		switch block.Type {
		case protocol.BlockTypeText:
			parts = append(parts, &genai.Part{Text: block.Text})

		case protocol.BlockTypeToolUse:
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   block.ID,
				Name: block.Name,
				Args: block.Input,
			}})

		case protocol.BlockTypeToolResult:
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       block.ToolUseID,
				Response: map[string]any{"content": block.Content},
			}})

		default:
			parts = append(parts, &genai.Part{Text: ""})
		}
	}
	return parts
}

// buildConfig maps completion options onto a generation config.
func buildConfig(opts protocol.CompletionOptions, instruction *genai.Content) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: instruction,
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature != nil {
		config.Temperature = ptr(float32(*opts.Temperature))
	}
	if opts.TopP != nil {
		config.TopP = ptr(float32(*opts.TopP))
	}
	if len(opts.StopSequences) > 0 {
		config.StopSequences = opts.StopSequences
	}

	if len(opts.Tools) > 0 {
		declarations := make([]*genai.FunctionDeclaration, 0, len(opts.Tools))
		for _, tool := range opts.Tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  convertSchema(tool.SchemaObject()),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}
	return config
}

// convertSchema converts a generic JSON schema object into the GenAI
// schema type. Unknown constructs are dropped; the result is always a
// usable schema.
func convertSchema(obj map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: mapSchemaType(obj["type"])}

	if desc, ok := obj["description"].(string); ok {
		schema.Description = desc
	}
	if props, ok := obj["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propObj, ok := prop.(map[string]any); ok {
				schema.Properties[name] = convertSchema(propObj)
			}
		}
	}
	if required, ok := obj["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if items, ok := obj["items"].(map[string]any); ok {
		schema.Items = convertSchema(items)
	}
	if enum, ok := obj["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	return schema
}

func mapSchemaType(v any) genai.Type {
	t, _ := v.(string)
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}

// mapCandidate maps a response candidate's parts onto canonical blocks.
func mapCandidate(candidate *genai.Candidate) []protocol.ContentBlock {
	if candidate == nil || candidate.Content == nil {
		return nil
	}
	var blocks []protocol.ContentBlock
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			blocks = append(blocks, protocol.TextBlock(part.Text))
		}
		if part.FunctionCall != nil {
			blocks = append(blocks, protocol.ToolUseBlock(part.FunctionCall.ID, part.FunctionCall.Name, part.FunctionCall.Args))
		}
	}
	return blocks
}
