/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package credentials resolves which provider serves a request.
//
// Secret storage is an external capability; this package only walks an
// ordered priority list against it and reports the first usable match.
// Having no credentials at all is an expected state, reported through the
// ErrNoCredentials sentinel rather than treated as a fault.
package credentials
