/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is returned at the first call site of a client
// constructed for an unknown provider id. Construction itself never fails,
// so factories can enumerate providers without tripping on unknown ids.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// CancelledError marks a completion aborted by its context. It is a
// distinguished outcome that callers filter out of failure reporting: a
// cancelled stage is cancelled, never failed.
type CancelledError struct {
	Provider ID
	Err      error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s completion cancelled: %v", e.Provider, e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// Cancelled wraps err as a cancellation for the given provider when the
// context is responsible for the failure, and returns err unchanged
// otherwise. Adapters call this on every error path out of a vendor SDK.
func Cancelled(id ID, ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &CancelledError{Provider: id, Err: err}
	}
	return err
}

// IsCancellation reports whether err represents a cancelled completion
// rather than a genuine failure.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	var cancelled *CancelledError
	if errors.As(err, &cancelled) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
