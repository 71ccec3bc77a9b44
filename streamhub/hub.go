/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package streamhub

import (
	"context"
	"sync"

	"chainguard.dev/codeloom/protocol"
	"github.com/chainguard-dev/clog"
)

// Kind discriminates the Event union.
type Kind string

const (
	// KindStreamDelta carries one canonical stream event for an in-flight
	// completion.
	KindStreamDelta Kind = "stream_delta"
	// KindMessage announces a new or updated conversation message.
	KindMessage Kind = "message"
	// KindApprovalRequest asks the user to approve or reject a stage.
	KindApprovalRequest Kind = "approval_request"
	// KindPipelineStatus announces a pipeline status transition.
	KindPipelineStatus Kind = "pipeline_status"
	// KindTyping toggles the thread's loading indicator.
	KindTyping Kind = "typing"
	// KindError carries a user-facing error description.
	KindError Kind = "error"
)

// Event is one unit of delivery from producers to subscribed consumers.
// Which fields are meaningful depends on Kind.
type Event struct {
	Kind     Kind
	ThreadID string

	// MessageID names the conversation message the event concerns, when any.
	MessageID string

	// Stream is set for stream_delta events.
	Stream *protocol.StreamEvent

	// Text is set for message, approval_request, and error events.
	Text string

	// Active is set for typing events.
	Active bool

	// Status is set for pipeline_status events.
	Status string
}

type listener struct {
	id int
	fn func(Event)
}

// Hub decouples event producers from consumers and tracks one live
// cancellation token per thread id.
type Hub struct {
	mu        sync.Mutex
	nextID    int
	listeners []listener
	cancels   map[string]context.CancelFunc
}

// New returns an empty hub.
func New() *Hub {
	return &Hub{cancels: map[string]context.CancelFunc{}}
}

// Subscribe registers a listener for every published event and returns its
// unsubscribe function. Unsubscribing more than once is harmless.
func (h *Hub) Subscribe(fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners = append(h.listeners, listener{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, l := range h.listeners {
			if l.id == id {
				h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to every subscribed listener. A panicking
// listener does not stop delivery to the rest.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	h.mu.Lock()
	listeners := make([]listener, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, l := range listeners {
		deliver(ctx, l, ev)
	}
}

func deliver(ctx context.Context, l listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			clog.FromContext(ctx).With("kind", ev.Kind, "thread", ev.ThreadID).
				Warn("stream listener panicked", "panic", r)
		}
	}()
	l.fn(ev)
}

// RegisterCancellation derives a cancellable context for the thread and
// records its token as the thread's one live token. A token already
// registered for the same id is cancelled before being replaced.
func (h *Hub) RegisterCancellation(ctx context.Context, threadID string) (context.Context, context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.cancels[threadID]; ok {
		prev()
	}
	cctx, cancel := context.WithCancel(ctx)
	h.cancels[threadID] = cancel
	return cctx, cancel
}

// Cancel aborts the thread's live token. It is a no-op when none is
// registered, and stays idempotent afterwards.
func (h *Hub) Cancel(threadID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cancel, ok := h.cancels[threadID]; ok {
		cancel()
	}
}

// Cleanup drops the thread's token after the operation finishes, whatever
// the outcome. The context is cancelled so nothing leaks.
func (h *Hub) Cleanup(threadID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cancel, ok := h.cancels[threadID]; ok {
		cancel()
		delete(h.cancels, threadID)
	}
}
