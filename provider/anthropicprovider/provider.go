/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package anthropicprovider

import (
	"context"
	"fmt"

	"chainguard.dev/codeloom/protocol"
	"chainguard.dev/codeloom/protocol/accumulate"
	"chainguard.dev/codeloom/provider"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
)

const defaultMaxTokens = 4096

// Client adapts the Anthropic Messages API to provider.Client.
type Client struct {
	api anthropic.Client
}

var _ provider.Client = (*Client)(nil)

// New returns an Anthropic adapter for the given API key. Construction
// performs no I/O.
func New(apiKey string) *Client {
	return &Client{
		api: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Provider implements provider.Client.
func (c *Client) Provider() provider.ID {
	return provider.Anthropic
}

// Complete implements provider.Client.
func (c *Client) Complete(ctx context.Context, messages []protocol.Message, opts protocol.CompletionOptions) (*protocol.CompletionResponse, error) {
	params := buildParams(messages, opts)

	message, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return nil, provider.Cancelled(provider.Anthropic, ctx, fmt.Errorf("anthropic completion: %w", err))
	}

	return &protocol.CompletionResponse{
		ID:         responseID(message.ID),
		Content:    mapContent(message.Content),
		Model:      string(message.Model),
		StopReason: protocol.MapStopReason(string(message.StopReason)),
		Usage: protocol.Usage{
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		}.Normalize(),
	}, nil
}

// CompleteStream implements provider.Client. Anthropic frames blocks
// explicitly, so each SSE event maps directly onto the accumulator's raw
// vocabulary; the final response is assembled from the accumulated blocks.
func (c *Client) CompleteStream(ctx context.Context, messages []protocol.Message, opts protocol.CompletionOptions, onEvent provider.EventFunc) (*protocol.CompletionResponse, error) {
	log := clog.FromContext(ctx)
	params := buildParams(messages, opts)

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
		id          string
		model       = opts.Model
		stopReason  string
		inputTokens int64
	)

	stream := c.api.Messages.NewStreaming(ctx, params)
	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "message_start":
			id = event.Message.ID
			if event.Message.Model != "" {
				model = string(event.Message.Model)
			}
			inputTokens = event.Message.Usage.InputTokens
			emit(acc.Next(accumulate.MessageStart()))

		case "content_block_start":
			switch event.ContentBlock.Type {
			case "tool_use":
				emit(acc.Next(accumulate.ToolUseBlockStart(int(event.Index), event.ContentBlock.ID, event.ContentBlock.Name)))
			case "text":
				emit(acc.Next(accumulate.TextBlockStart()))
			default:
				log.With("block_type", event.ContentBlock.Type).Debug("Ignoring unrecognized content block")
			}

		case "content_block_delta":
			switch event.Delta.Type {
			case "text_delta":
				emit(acc.Next(accumulate.TextDelta(event.Delta.Text)))
			case "input_json_delta":
				emit(acc.Next(accumulate.JSONDelta(int(event.Index), "", "", event.Delta.PartialJSON)))
			}

		case "content_block_stop":
			emit(acc.Next(accumulate.BlockStop()))

		case "message_delta":
			if event.Delta.StopReason != "" {
				stopReason = string(event.Delta.StopReason)
			}
			tokens := event.Usage.OutputTokens
			emit(acc.Next(accumulate.MessageDelta(&tokens)))

		case "message_stop":
			emit(acc.Next(accumulate.MessageStop()))
		}
	}
	if err := stream.Err(); err != nil {
		return nil, provider.Cancelled(provider.Anthropic, ctx, fmt.Errorf("anthropic stream: %w", err))
	}

	// Anthropic delivers message_stop itself; Finish is a no-op then, but
	// closes out a stream that ended without terminal framing.
	emit(acc.Finish(nil))

	var outputTokens int64
	if tokens := acc.OutputTokens(); tokens != nil {
		outputTokens = *tokens
	}

	return &protocol.CompletionResponse{
		ID:         responseID(id),
		Content:    acc.Blocks(),
		Model:      model,
		StopReason: protocol.MapStopReason(stopReason),
		Usage: protocol.Usage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}.Normalize(),
	}, nil
}

// responseID synthesizes an id when the vendor omits one.
func responseID(id string) string {
	if id != "" {
		return id
	}
	return "msg_" + uuid.NewString()
}
