/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package registry constructs vendor clients and answers model lookups.
// It lives apart from package provider so the adapter packages can depend
// on the shared contract without a cycle.
package registry
