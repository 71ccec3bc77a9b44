/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaiprovider adapts the OpenAI Chat Completions API to the
// canonical completion contract.
//
// Chat completion chunks carry no block framing: text arrives as bare
// content deltas and tool calls as argument fragments keyed by a tool-call
// index within the choice. The streaming path therefore leans on the
// accumulator's implicit framing: blocks open lazily on the first delta
// and are closed by Finish in the canonical order once the stream ends.
package openaiprovider
