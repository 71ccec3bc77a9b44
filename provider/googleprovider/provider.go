/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"chainguard.dev/codeloom/protocol"
	"chainguard.dev/codeloom/protocol/accumulate"
	"chainguard.dev/codeloom/provider"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Client adapts the Google GenAI API to provider.Client. The underlying
// SDK client is created lazily on first use so that construction stays
// cheap and error-free for factory enumeration.
type Client struct {
	apiKey string

	once    sync.Once
	api     *genai.Client
	initErr error
}

var _ provider.Client = (*Client)(nil)

// New returns a Google adapter for the given API key. Construction
// performs no I/O.
func New(apiKey string) *Client {
	return &Client{apiKey: apiKey}
}

// Provider implements provider.Client.
func (c *Client) Provider() provider.ID {
	return provider.Google
}

func (c *Client) client(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		c.api, c.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if c.initErr != nil {
		return nil, fmt.Errorf("creating genai client: %w", c.initErr)
	}
	return c.api, nil
}

// Complete implements provider.Client.
func (c *Client) Complete(ctx context.Context, messages []protocol.Message, opts protocol.CompletionOptions) (*protocol.CompletionResponse, error) {
	api, err := c.client(ctx)
	if err != nil {
		return nil, err
	}

	contents, instruction := buildContents(messages, opts.SystemPrompt)
	config := buildConfig(opts, instruction)

	resp, err := api.Models.GenerateContent(ctx, opts.Model, contents, config)
	if err != nil {
		return nil, provider.Cancelled(provider.Google, ctx, fmt.Errorf("google completion: %w", err))
	}

	var (
		blocks       []protocol.ContentBlock
		finishReason string
	)
	if len(resp.Candidates) > 0 {
		blocks = mapCandidate(resp.Candidates[0])
		finishReason = string(resp.Candidates[0].FinishReason)
	}

	return &protocol.CompletionResponse{
		ID:         responseID(resp.ResponseID),
		Content:    blocks,
		Model:      opts.Model,
		StopReason: mapFinish(finishReason, blocks),
		Usage:      mapUsage(resp.UsageMetadata),
	}, nil
}

// CompleteStream implements provider.Client. Text streams as bare part
// deltas; each function call arrives complete and is injected as a single
// argument fragment under a synthetic call index.
func (c *Client) CompleteStream(ctx context.Context, messages []protocol.Message, opts protocol.CompletionOptions, onEvent provider.EventFunc) (*protocol.CompletionResponse, error) {
	api, err := c.client(ctx)
	if err != nil {
		return nil, err
	}

	contents, instruction := buildContents(messages, opts.SystemPrompt)
	config := buildConfig(opts, instruction)

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
		finishReason string
		usage        protocol.Usage
		sawChunk     bool
		nextCall     int
	)

	for resp, streamErr := range api.Models.GenerateContentStream(ctx, opts.Model, contents, config) {
		if streamErr != nil {
			return nil, provider.Cancelled(provider.Google, ctx, fmt.Errorf("google stream: %w", streamErr))
		}
		if !sawChunk {
			sawChunk = true
			emit(acc.Next(accumulate.MessageStart()))
		}
		if resp.ResponseID != "" {
			id = resp.ResponseID
		}
		if resp.UsageMetadata != nil {
			usage = mapUsage(resp.UsageMetadata)
		}
		if len(resp.Candidates) == 0 {
			continue
		}
		candidate := resp.Candidates[0]
		if candidate.FinishReason != "" {
			finishReason = string(candidate.FinishReason)
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				emit(acc.Next(accumulate.TextDelta(part.Text)))
			}
			if part.FunctionCall != nil {
				fragment := "{}"
				if raw, err := json.Marshal(part.FunctionCall.Args); err == nil {
					fragment = string(raw)
				}
				callID := part.FunctionCall.ID
				if callID == "" {
					callID = "call_" + uuid.NewString()
				}
				emit(acc.Next(accumulate.JSONDelta(nextCall, callID, part.FunctionCall.Name, fragment)))
				nextCall++
			}
		}
	}

	outputTokens := usage.OutputTokens
	emit(acc.Finish(&outputTokens))

	blocks := acc.Blocks()
	return &protocol.CompletionResponse{
		ID:         responseID(id),
		Content:    blocks,
		Model:      opts.Model,
		StopReason: mapFinish(finishReason, blocks),
		Usage:      usage,
	}, nil
}

// mapFinish maps a Gemini finish reason, upgrading to tool_use when the
// response carried function calls: Gemini reports STOP for tool turns.
func mapFinish(finishReason string, blocks []protocol.ContentBlock) protocol.StopReason {
	for _, block := range blocks {
		if block.Type == protocol.BlockTypeToolUse {
			return protocol.StopReasonToolUse
		}
	}
	return protocol.MapStopReason(finishReason)
}

func mapUsage(metadata *genai.GenerateContentResponseUsageMetadata) protocol.Usage {
	if metadata == nil {
		return protocol.Usage{}
	}
	return protocol.Usage{
		InputTokens:  int64(metadata.PromptTokenCount),
		OutputTokens: int64(metadata.CandidatesTokenCount),
		TotalTokens:  int64(metadata.TotalTokenCount),
	}.Normalize()
}

// responseID synthesizes an id when the vendor omits one.
func responseID(id string) string {
	if id != "" {
		return id
	}
	return "gen_" + uuid.NewString()
}
