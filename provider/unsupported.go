/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"context"
	"fmt"

	"chainguard.dev/codeloom/protocol"
)

// Unsupported returns a client whose calls all fail with
// ErrUnsupportedProvider. The registry hands these out for unknown ids so
// the error surfaces at the first call site rather than at construction.
func Unsupported(id ID) Client {
	return unsupported{id: id}
}

type unsupported struct {
	id ID
}

func (u unsupported) Provider() ID {
	return u.id
}

func (u unsupported) Complete(context.Context, []protocol.Message, protocol.CompletionOptions) (*protocol.CompletionResponse, error) {
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, u.id)
}

func (u unsupported) CompleteStream(context.Context, []protocol.Message, protocol.CompletionOptions, EventFunc) (*protocol.CompletionResponse, error) {
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, u.id)
}
