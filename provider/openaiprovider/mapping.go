/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiprovider

import (
	"encoding/json"

	"chainguard.dev/codeloom/protocol"
	"github.com/openai/openai-go"
)

// buildParams maps canonical messages and options onto a chat completion
// request.
func buildParams(messages []protocol.Message, opts protocol.CompletionOptions) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(opts.Model),
		Messages: buildMessages(messages, opts.SystemPrompt),
	}

	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(opts.MaxTokens)
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if opts.TopP != nil {
		params.TopP = openai.Float(*opts.TopP)
	}
	if len(opts.StopSequences) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopSequences}
	}

	for _, tool := range opts.Tools {
		fn := openai.FunctionDefinitionParam{Name: tool.Name}
		if tool.Description != "" {
			fn.Description = openai.String(tool.Description)
		}
		fn.Parameters = openai.FunctionParameters(tool.SchemaObject())
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{Function: fn})
	}

	return params
}

// buildMessages maps canonical turns onto chat messages. Tool results
// become distinct tool-role turns; tool calls on an assistant turn become
// the structured tool-call list; unsupported media degrades to empty text.
func buildMessages(messages []protocol.Message, systemPrompt string) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.SystemMessage(systemPrompt))
	}

	for _, msg := range messages {
		switch msg.Role {
		case protocol.RoleSystem:
			if text := msg.Text(); text != "" {
				out = append(out, openai.SystemMessage(text))
			}

		case protocol.RoleAssistant:
			out = append(out, buildAssistant(msg)...)

		default:
			// Tool results must precede the user text as their own turns.
			var text string
			for _, block := range msg.Content {
				switch block.Type {
				case protocol.BlockTypeText:
					text += block.Text
				case protocol.BlockTypeToolResult:
					out = append(out, openai.ToolMessage(block.Content, block.ToolUseID))
				}
			}
			if text != "" || len(msg.Content) == 0 {
				out = append(out, openai.UserMessage(text))
			}
		}
	}
	return out
}

// buildAssistant maps one assistant turn, splitting tool_use blocks into
// the structured call list.
func buildAssistant(msg protocol.Message) []openai.ChatCompletionMessageParamUnion {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, block := range msg.ToolUses() {
		arguments := "{}"
		if raw, err := json.Marshal(block.Input); err == nil {
			arguments = string(raw)
		}
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: block.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      block.Name,
				Arguments: arguments,
			},
		})
	}

	text := msg.Text()
	if len(toolCalls) == 0 {
		return []openai.ChatCompletionMessageParamUnion{openai.AssistantMessage(text)}
	}

	assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
	if text != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(text)}
	}
	return []openai.ChatCompletionMessageParamUnion{{OfAssistant: &assistant}}
}

// mapChoice maps a non-streaming choice onto canonical content blocks.
func mapChoice(message openai.ChatCompletionMessage) []protocol.ContentBlock {
	var blocks []protocol.ContentBlock
	if message.Content != "" {
		blocks = append(blocks, protocol.TextBlock(message.Content))
	}
	for _, call := range message.ToolCalls {
		blocks = append(blocks, protocol.ToolUseBlock(call.ID, call.Function.Name, parseArguments(call.Function.Arguments)))
	}
	return blocks
}

// parseArguments parses a tool-call argument string, defaulting to an
// empty object on malformed or empty input.
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
