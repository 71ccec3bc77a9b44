/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiprovider

import (
	"context"
	"fmt"

	"chainguard.dev/codeloom/protocol"
	"chainguard.dev/codeloom/protocol/accumulate"
	"chainguard.dev/codeloom/provider"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client adapts the OpenAI Chat Completions API to provider.Client.
type Client struct {
	api openai.Client
}

var _ provider.Client = (*Client)(nil)

// New returns an OpenAI adapter for the given API key. Construction
// performs no I/O.
func New(apiKey string) *Client {
	return &Client{
		api: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Provider implements provider.Client.
func (c *Client) Provider() provider.ID {
	return provider.OpenAI
}

// Complete implements provider.Client.
func (c *Client) Complete(ctx context.Context, messages []protocol.Message, opts protocol.CompletionOptions) (*protocol.CompletionResponse, error) {
	params := buildParams(messages, opts)

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, provider.Cancelled(provider.OpenAI, ctx, fmt.Errorf("openai completion: %w", err))
	}

	var (
		blocks       []protocol.ContentBlock
		finishReason string
	)
	if len(resp.Choices) > 0 {
		blocks = mapChoice(resp.Choices[0].Message)
		finishReason = resp.Choices[0].FinishReason
	}

	return &protocol.CompletionResponse{
		ID:         responseID(resp.ID),
		Content:    blocks,
		Model:      resp.Model,
		StopReason: protocol.MapStopReason(finishReason),
		Usage: protocol.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}.Normalize(),
	}, nil
}

// CompleteStream implements provider.Client. Chunks carry no block
// framing, so blocks open lazily in the accumulator and Finish closes the
// stream in canonical order.
func (c *Client) CompleteStream(ctx context.Context, messages []protocol.Message, opts protocol.CompletionOptions, onEvent provider.EventFunc) (*protocol.CompletionResponse, error) {
	params := buildParams(messages, opts)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	acc := accumulate.New()
	emit := func(events []protocol.StreamEvent) {
		if onEvent == nil {
			return
		}
		for _, ev := range events {
			onEvent(ev)
		}
	}

	var (
		id           string
		model        = opts.Model
		finishReason string
		usage        protocol.Usage
		sawChunk     bool
	)

	stream := c.api.Chat.Completions.NewStreaming(ctx, params)
	for stream.Next() {
		chunk := stream.Current()
		if !sawChunk {
			sawChunk = true
			emit(acc.Next(accumulate.MessageStart()))
		}
		if chunk.ID != "" {
			id = chunk.ID
		}
		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.Usage.TotalTokens > 0 || chunk.Usage.CompletionTokens > 0 {
			usage = protocol.Usage{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
				TotalTokens:  chunk.Usage.TotalTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			finishReason = choice.FinishReason
		}
		if choice.Delta.Content != "" {
			emit(acc.Next(accumulate.TextDelta(choice.Delta.Content)))
		}
		for _, call := range choice.Delta.ToolCalls {
			emit(acc.Next(accumulate.JSONDelta(int(call.Index), call.ID, call.Function.Name, call.Function.Arguments)))
		}
	}
	if err := stream.Err(); err != nil {
		return nil, provider.Cancelled(provider.OpenAI, ctx, fmt.Errorf("openai stream: %w", err))
	}

	outputTokens := usage.OutputTokens
	emit(acc.Finish(&outputTokens))

	return &protocol.CompletionResponse{
		ID:         responseID(id),
		Content:    acc.Blocks(),
		Model:      model,
		StopReason: protocol.MapStopReason(finishReason),
		Usage:      usage.Normalize(),
	}, nil
}

// responseID synthesizes an id when the vendor omits one.
func responseID(id string) string {
	if id != "" {
		return id
	}
	return "chatcmpl_" + uuid.NewString()
}
