/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package promptbuilder renders system-prompt templates with {{name}}
// placeholders. Bindings are immutable and checked: binding an unknown or
// already-bound placeholder errors, and rendering with anything unbound
// errors, so a malformed stage prompt fails before it reaches a provider.
package promptbuilder
