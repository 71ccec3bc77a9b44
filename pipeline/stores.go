/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"

	"chainguard.dev/codeloom/protocol"
)

// ConversationStore is the external capability holding chat history. The
// orchestrator appends and updates messages through it; persistence and
// rendering live elsewhere.
type ConversationStore interface {
	// AppendMessage adds a message to the thread and returns its id.
	AppendMessage(ctx context.Context, threadID string, sender protocol.Role, content, contentType string, metadata map[string]any) (string, error)

	// UpdateMessageContent replaces a message's content. Used to grow the
	// stage-owning message as stream deltas arrive.
	UpdateMessageContent(ctx context.Context, messageID, threadID, content string) error

	// UpdateMessageStatus updates a message's display status.
	UpdateMessageStatus(ctx context.Context, messageID, threadID, status string) error

	// Messages returns the thread's messages in order.
	Messages(ctx context.Context, threadID string) ([]protocol.Message, error)
}

// TaskStore mirrors stage progress for observability. It is optional and
// never affects correctness; recording errors are ignored.
type TaskStore interface {
	RecordStageProgress(ctx context.Context, pipelineID string, stage string, status string) error
}

// ToolBridge executes agent-requested tools outside the core.
type ToolBridge interface {
	Execute(ctx context.Context, toolName string, input map[string]any) (string, error)
}
