/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package anthropicprovider

import (
	"encoding/json"
	"strings"

	"chainguard.dev/codeloom/protocol"
	"github.com/anthropics/anthropic-sdk-go"
)

// buildParams maps canonical messages and options onto an Anthropic
// message request. System-role messages and the SystemPrompt option are
// folded into the request's system blocks.
func buildParams(messages []protocol.Message, opts protocol.CompletionOptions) anthropic.MessageNewParams {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		MaxTokens: maxTokens,
	}

	var system []string
	if opts.SystemPrompt != "" {
		system = append(system, opts.SystemPrompt)
	}

	for _, msg := range messages {
		if msg.Role == protocol.RoleSystem {
			if text := msg.Text(); text != "" {
				system = append(system, text)
			}
			continue
		}
		params.Messages = append(params.Messages, anthropic.MessageParam{
			Role:    mapRole(msg.Role),
			Content: mapBlocks(msg.Content),
		})
	}

	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}

	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}
	if opts.TopP != nil {
		params.TopP = anthropic.Float(*opts.TopP)
	}
	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}

	for _, tool := range opts.Tools {
		schema := tool.SchemaObject()
		toolParam := anthropic.ToolParam{
			Name:        tool.Name,
			InputSchema: anthropic.ToolInputSchemaParam{Properties: schema["properties"]},
		}
		if required, ok := schema["required"].([]any); ok {
			for _, r := range required {
				if s, ok := r.(string); ok {
					toolParam.InputSchema.Required = append(toolParam.InputSchema.Required, s)
				}
			}
		}
		if tool.Description != "" {
			toolParam.Description = anthropic.String(tool.Description)
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}

	return params
}

func mapRole(role protocol.Role) anthropic.MessageParamRole {
	if role == protocol.RoleAssistant {
		return anthropic.MessageParamRoleAssistant
	}
	return anthropic.MessageParamRoleUser
}

// mapBlocks maps canonical content blocks onto Anthropic content params.
// Unsupported media kinds degrade to an empty text block rather than
// failing the request.
func mapBlocks(blocks []protocol.ContentBlock) []anthropic.ContentBlockParamUnion {
	out := make([]anthropic.ContentBlockParamUnion, 0, len(blocks))
	for _, block := range blocks {
		switch block.Type {
		case protocol.BlockTypeText:
			out = append(out, anthropic.NewTextBlock(block.Text))

		case protocol.BlockTypeToolUse:
			out = append(out, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    block.ID,
					Name:  block.Name,
					Input: block.Input,
				},
			})

		case protocol.BlockTypeToolResult:
			out = append(out, anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: block.ToolUseID,
					Content: []anthropic.ToolResultBlockParamContentUnion{{
						OfText: &anthropic.TextBlockParam{Text: block.Content},
					}},
				},
			})

		case protocol.BlockTypeImage:
			if block.Source != nil && block.Source.Data != "" {
				out = append(out, anthropic.NewImageBlockBase64(block.Source.MediaType, block.Source.Data))
				continue
			}
			out = append(out, anthropic.NewTextBlock(""))

		default:
			// document, audio: not supported here.
			out = append(out, anthropic.NewTextBlock(""))
		}
	}
	return out
}

// mapContent maps an Anthropic response's content onto canonical blocks.
// Thinking blocks carry no conversational content and are dropped.
func mapContent(content []anthropic.ContentBlockUnion) []protocol.ContentBlock {
	var blocks []protocol.ContentBlock
	for _, cb := range content {
		switch cb.Type {
		case "text":
			blocks = append(blocks, protocol.TextBlock(cb.Text))
		case "tool_use":
			blocks = append(blocks, protocol.ToolUseBlock(cb.ID, cb.Name, decodeInput(cb.Input)))
		}
	}
	return blocks
}

// decodeInput parses a tool input payload, defaulting to an empty object
// on malformed or absent input.
func decodeInput(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil || input == nil {
		return map[string]any{}
	}
	return input
}
