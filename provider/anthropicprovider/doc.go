/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package anthropicprovider adapts the Anthropic Messages API to the
// canonical completion contract.
//
// Anthropic's wire protocol already frames content blocks explicitly
// (content_block_start/stop per block), so the streaming path feeds each
// SSE event through the accumulate state machine almost one-to-one. Tool
// arguments arrive as input_json_delta fragments keyed by block index.
package anthropicprovider
