/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package provider defines the adapter contract every upstream completion
// vendor is normalized behind, plus the error vocabulary shared by callers.
//
// A Client exposes exactly two operations, Complete and CompleteStream,
// speaking only the canonical protocol types. Vendor-specific adapters
// live in the subpackages (anthropicprovider, openaiprovider,
// googleprovider) and are constructed through the registry subpackage,
// which also serves the model catalog.
//
// Cancellation is a distinguished outcome, not a failure: adapters wrap a
// context-cancelled call in *CancelledError so callers can filter it out
// of error reporting with IsCancellation.
package provider
