/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/codeloom/protocol"
	"chainguard.dev/codeloom/streamhub"
	"github.com/chainguard-dev/clog"
)

// ErrApprovalResolved reports a response to an approval gate that does not
// exist or was already resolved. Gates resolve exactly once.
var ErrApprovalResolved = errors.New("approval already resolved or unknown")

type gate struct {
	ch chan bool
}

// RequestApproval posts an approval request to the thread and registers a
// one-shot gate keyed by the posted message id. The returned id is what
// RespondToApproval later names.
func (o *Orchestrator) RequestApproval(ctx context.Context, threadID, prompt string) (string, error) {
	messageID, _, err := o.requestApproval(ctx, threadID, prompt)
	return messageID, err
}

// requestApproval registers the gate and returns its channel alongside the
// message id. The waiter holds the channel directly: a listener may respond
// synchronously from the publish below, consuming the map entry before the
// waiter runs, and the buffered send keeps that response from being lost.
func (o *Orchestrator) requestApproval(ctx context.Context, threadID, prompt string) (string, chan bool, error) {
	messageID, err := o.store.AppendMessage(ctx, threadID, protocol.RoleAssistant, prompt, "approval_request", nil)
	if err != nil {
		return "", nil, fmt.Errorf("posting approval request: %w", err)
	}

	ch := make(chan bool, 1)
	o.mu.Lock()
	o.gates[messageID] = &gate{ch: ch}
	o.mu.Unlock()

	o.hub.Publish(ctx, streamhub.Event{
		Kind:      streamhub.KindApprovalRequest,
		ThreadID:  threadID,
		MessageID: messageID,
		Text:      prompt,
	})
	return messageID, ch, nil
}

// RespondToApproval resolves the gate for the given approval message.
// The first response wins; any later response errors with
// ErrApprovalResolved.
func (o *Orchestrator) RespondToApproval(ctx context.Context, threadID, messageID string, approved bool) error {
	o.mu.Lock()
	g, ok := o.gates[messageID]
	if ok {
		delete(o.gates, messageID)
	}
	o.mu.Unlock()

	if !ok {
		return ErrApprovalResolved
	}

	status := "approved"
	if !approved {
		status = "rejected"
	}
	if err := o.store.UpdateMessageStatus(ctx, messageID, threadID, status); err != nil {
		// The gate still resolves; the status update is cosmetic.
		clog.FromContext(ctx).With("message", messageID).Warn("updating approval message status", "error", err)
	}

	g.ch <- approved
	return nil
}

// awaitApproval suspends until the gate's channel resolves or the
// pipeline's context is cancelled. The gate has no timeout; only an
// explicit response or cancellation resumes it.
func (o *Orchestrator) awaitApproval(ctx context.Context, messageID string, ch chan bool) (bool, error) {
	select {
	case approved := <-ch:
		return approved, nil
	case <-ctx.Done():
		// Drop the gate so a late response errors instead of leaking.
		o.mu.Lock()
		delete(o.gates, messageID)
		o.mu.Unlock()
		return false, ctx.Err()
	}
}
