/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package streamhub is the publish/subscribe seam between completion
// producers and their consumers, plus the per-thread cancellation registry.
// Each thread holds at most one live cancellation token; registering a new
// one cancels and replaces the old.
package streamhub
