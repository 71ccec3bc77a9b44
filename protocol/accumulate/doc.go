/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package accumulate turns raw vendor stream events into canonical
// protocol.StreamEvents and a final ordered []protocol.ContentBlock.
//
// Adapters translate each vendor chunk into one or more RawEvents and feed
// them to an Accumulator, which folds state forward one event at a time.
// Vendors with explicit block framing (start/stop per block) drive the
// machine directly; vendors that only send deltas rely on the accumulator
// opening blocks lazily and on Finish closing them in the canonical order.
//
// Tool-call argument assembly is a second, independent accumulator
// (ToolArgs) keyed by the vendor's call index. Argument fragments are
// concatenated as opaque strings and parsed only once at the end; malformed
// or empty argument JSON degrades to an empty object, never an error.
package accumulate
