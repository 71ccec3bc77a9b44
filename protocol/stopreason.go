/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package protocol

import "strings"

// StopReason is the canonical four-value vocabulary for why a completion
// stopped. Every vendor finish reason maps onto one of these.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonToolUse      StopReason = "tool_use"
	StopReasonStopSequence StopReason = "stop_sequence"
)

// stopReasons maps known vendor finish/stop reason spellings onto the
// canonical enum. Keys are lowercase.
var stopReasons = map[string]StopReason{
	// Canonical spellings round-trip.
	"end_turn":      StopReasonEndTurn,
	"max_tokens":    StopReasonMaxTokens,
	"tool_use":      StopReasonToolUse,
	"stop_sequence": StopReasonStopSequence,

	// OpenAI chat completion finish reasons.
	"stop":          StopReasonEndTurn,
	"length":        StopReasonMaxTokens,
	"tool_calls":    StopReasonToolUse,
	"function_call": StopReasonToolUse,

	// Google finish reasons (reported uppercase, lowered before lookup).
	"finish_reason_stop": StopReasonEndTurn,
	"max_output_tokens":  StopReasonMaxTokens,
}

// MapStopReason maps any vendor finish reason onto the canonical enum. The
// mapping is total: unknown, empty, or garbage input yields end_turn rather
// than an error, so a vendor adding a new reason can never break a stream.
func MapStopReason(vendor string) StopReason {
	if mapped, ok := stopReasons[strings.ToLower(strings.TrimSpace(vendor))]; ok {
		return mapped
	}
	return StopReasonEndTurn
}
