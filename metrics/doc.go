/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics exposes OpenTelemetry counters for completion traffic
// and pipeline activity. Instrument creation never fails the caller; a
// counter that cannot be created is replaced with a noop.
package metrics
