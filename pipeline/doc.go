/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pipeline orchestrates multi-stage agent runs over the canonical
// completion contract.
//
// A pipeline is a fixed, ordered plan of role stages (architect, engineer,
// reviewer) executed strictly sequentially. Stages stream their output into
// the conversation, pause at approval gates, and stop on failure without
// attempting later stages. Cancellation is a distinguished outcome: a
// cancelled pipeline is never reported as failed.
//
// Variant fan-out is the one place generations run concurrently: a prompt
// is completed N times across one or many providers and the results are
// offered for a one-time selection.
package pipeline
