/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package protocol

// StreamEventType discriminates the StreamEvent union.
type StreamEventType string

const (
	EventMessageStart      StreamEventType = "message_start"
	EventContentBlockStart StreamEventType = "content_block_start"
	EventContentBlockDelta StreamEventType = "content_block_delta"
	EventContentBlockStop  StreamEventType = "content_block_stop"
	EventMessageDelta      StreamEventType = "message_delta"
	EventMessageStop       StreamEventType = "message_stop"
)

// Delta is the incremental payload of a content_block_delta event. Exactly
// one of Text or PartialJSON is populated: Text grows a text block, while
// PartialJSON is a fragment of a tool call's argument object, accumulated
// by the consumer keyed on the block index.
type Delta struct {
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

// UsageDelta is the payload of a message_delta event. OutputTokens is nil
// when the vendor did not report usage; the event is still passed through.
type UsageDelta struct {
	OutputTokens *int64 `json:"output_tokens,omitempty"`
}

// StreamEvent is one canonical event of a streaming completion.
//
// Invariants maintained by the accumulator: Index is assigned
// monotonically per new block within one response and never reused, every
// content_block_start has exactly one matching content_block_stop with the
// same index, and events are delivered to listeners in production order.
type StreamEvent struct {
	Type StreamEventType `json:"type"`

	// Index identifies the content block for block-scoped events.
	Index int `json:"index,omitempty"`

	// Block carries the initial block shape for content_block_start.
	Block *ContentBlock `json:"block,omitempty"`

	// Delta carries the increment for content_block_delta.
	Delta *Delta `json:"delta,omitempty"`

	// Usage carries token accounting for message_delta.
	Usage *UsageDelta `json:"usage,omitempty"`
}
