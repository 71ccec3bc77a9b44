/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package protocol

import "strings"

// Role identifies the author of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType discriminates the ContentBlock union.
type BlockType string

const (
	BlockTypeText       BlockType = "text"
	BlockTypeToolUse    BlockType = "tool_use"
	BlockTypeToolResult BlockType = "tool_result"
	BlockTypeImage      BlockType = "image"
	BlockTypeDocument   BlockType = "document"
	BlockTypeAudio      BlockType = "audio"
)

// MediaSource references the payload of an image, document, or audio block.
type MediaSource struct {
	// MediaType is the MIME type of the payload (e.g. "image/png").
	MediaType string `json:"media_type,omitempty"`
	// Data is the base64-encoded payload when inlined.
	Data string `json:"data,omitempty"`
	// URL references the payload when it is not inlined.
	URL string `json:"url,omitempty"`
}

// ContentBlock is one semantic unit of a message: text, a tool call, a tool
// result, or media. Which fields are meaningful depends on Type; the order
// of blocks within a message is significant (text commentary may precede or
// follow tool calls).
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Text is set for text blocks.
	Text string `json:"text,omitempty"`

	// ID, Name, and Input are set for tool_use blocks.
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// ToolUseID and Content are set for tool_result blocks.
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`

	// Source is set for image, document, and audio blocks.
	Source *MediaSource `json:"source,omitempty"`
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// ToolUseBlock returns a tool_use content block. A nil input is normalized
// to an empty object so downstream marshaling never sees null arguments.
func ToolUseBlock(id, name string, input map[string]any) ContentBlock {
	if input == nil {
		input = map[string]any{}
	}
	return ContentBlock{Type: BlockTypeToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock returns a tool_result content block referencing the tool
// call it answers.
func ToolResultBlock(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: BlockTypeToolResult, ToolUseID: toolUseID, Content: content}
}

// ImageBlock returns an image content block.
func ImageBlock(source MediaSource) ContentBlock {
	return ContentBlock{Type: BlockTypeImage, Source: &source}
}

// DocumentBlock returns a document content block.
func DocumentBlock(source MediaSource) ContentBlock {
	return ContentBlock{Type: BlockTypeDocument, Source: &source}
}

// AudioBlock returns an audio content block.
func AudioBlock(source MediaSource) ContentBlock {
	return ContentBlock{Type: BlockTypeAudio, Source: &source}
}

// Message is one turn of a conversation. Messages are immutable once sent;
// the only sanctioned mutation is the in-place content update performed by
// whichever component owns the in-flight streaming response.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UserMessage returns a user message with a single text block.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// AssistantMessage returns an assistant message with the given blocks.
func AssistantMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}

// SystemMessage returns a system message with a single text block.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentBlock{TextBlock(text)}}
}

// Text concatenates the message's text blocks in order, ignoring all other
// block kinds.
func (m Message) Text() string {
	var sb strings.Builder
	for _, block := range m.Content {
		if block.Type == BlockTypeText {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// ToolUses returns the message's tool_use blocks in order.
func (m Message) ToolUses() []ContentBlock {
	var calls []ContentBlock
	for _, block := range m.Content {
		if block.Type == BlockTypeToolUse {
			calls = append(calls, block)
		}
	}
	return calls
}
