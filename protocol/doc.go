/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package protocol defines the canonical completion model shared by every
// provider adapter and the pipeline orchestrator.
//
// Upstream vendors disagree on chunk shapes, tool-call encodings, and stop
// reason vocabularies. Everything above the adapter layer speaks only the
// types in this package: ordered Messages of ContentBlocks, a four-value
// StopReason, and a StreamEvent union with exact start/stop pairing
// semantics per content block.
//
// The mapping helpers here are total. MapStopReason never fails,
// Usage fields default to zero, and tool inputs default to an empty object:
// a malformed or truncated vendor response must degrade, never propagate.
package protocol
