/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package accumulate

import (
	"sort"
	"strings"

	"chainguard.dev/codeloom/protocol"
)

// RawEventType names the vendor-neutral raw event vocabulary adapters
// translate their chunks into.
type RawEventType string

const (
	RawMessageStart RawEventType = "message_start"
	RawBlockStart   RawEventType = "block_start"
	RawTextDelta    RawEventType = "text_delta"
	RawJSONDelta    RawEventType = "json_delta"
	RawBlockStop    RawEventType = "block_stop"
	RawMessageDelta RawEventType = "message_delta"
	RawMessageStop  RawEventType = "message_stop"
)

// RawEvent is one provider event, reduced to the fields the accumulator
// cares about. Which fields are meaningful depends on Type.
type RawEvent struct {
	Type RawEventType

	// BlockType is text or tool_use for block_start events.
	BlockType protocol.BlockType

	// CallIndex is the vendor's tool-call index for tool block starts and
	// JSON deltas. It keys the ToolArgs accumulator.
	CallIndex int

	// ToolID and ToolName identify a tool call; vendors may supply them on
	// the block start, on the first delta, or on every delta.
	ToolID   string
	ToolName string

	// Text is the increment for text deltas.
	Text string

	// PartialJSON is the argument fragment for JSON deltas.
	PartialJSON string

	// OutputTokens is the usage report for message_delta events; nil when
	// the vendor omitted usage.
	OutputTokens *int64
}

// MessageStart returns a raw message_start event.
func MessageStart() RawEvent {
	return RawEvent{Type: RawMessageStart}
}

// TextBlockStart returns a raw block_start event for a text block.
func TextBlockStart() RawEvent {
	return RawEvent{Type: RawBlockStart, BlockType: protocol.BlockTypeText}
}

// ToolUseBlockStart returns a raw block_start event for a tool_use block.
func ToolUseBlockStart(callIndex int, id, name string) RawEvent {
	return RawEvent{Type: RawBlockStart, BlockType: protocol.BlockTypeToolUse, CallIndex: callIndex, ToolID: id, ToolName: name}
}

// TextDelta returns a raw text delta event.
func TextDelta(text string) RawEvent {
	return RawEvent{Type: RawTextDelta, Text: text}
}

// JSONDelta returns a raw tool-argument fragment event for the call at the
// given vendor index. id and name may be empty; they are applied when the
// vendor supplies them.
func JSONDelta(callIndex int, id, name, fragment string) RawEvent {
	return RawEvent{Type: RawJSONDelta, CallIndex: callIndex, ToolID: id, ToolName: name, PartialJSON: fragment}
}

// BlockStop returns a raw block_stop event for the currently open block.
func BlockStop() RawEvent {
	return RawEvent{Type: RawBlockStop}
}

// MessageDelta returns a raw message_delta event. outputTokens may be nil
// when the vendor reported no usage.
func MessageDelta(outputTokens *int64) RawEvent {
	return RawEvent{Type: RawMessageDelta, OutputTokens: outputTokens}
}

// MessageStop returns a raw message_stop event.
func MessageStop() RawEvent {
	return RawEvent{Type: RawMessageStop}
}

// finalText is a text block finalized at its canonical index.
type finalText struct {
	index int
	text  string
}

// openBlock is the block awaiting an explicit block_stop.
type openBlock struct {
	index     int
	blockType protocol.BlockType
	callIndex int
}

// Accumulator folds raw vendor events into canonical stream events and a
// final ordered block list. Canonical block indices are assigned
// monotonically in order of first appearance and never reused; every
// emitted content_block_start is matched by exactly one content_block_stop
// with the same index, emitted either on an explicit raw block_stop or by
// Finish.
//
// The zero value is not usable; call New.
type Accumulator struct {
	next     int
	open     *openBlock
	textIdx  int
	text     strings.Builder
	texts    []finalText
	toolIdx  map[int]int
	toolDone map[int]bool
	args     *ToolArgs
	tokens   *int64
	finished bool
}

// New returns an accumulator ready for the first raw event of a response.
func New() *Accumulator {
	return &Accumulator{
		textIdx:  -1,
		toolIdx:  make(map[int]int),
		toolDone: make(map[int]bool),
		args:     NewToolArgs(),
	}
}

// Next consumes one raw event and returns zero or more canonical events.
// Unrecognized event types produce no events and leave state untouched, so
// a vendor adding new chunk kinds cannot break the stream.
func (a *Accumulator) Next(ev RawEvent) []protocol.StreamEvent {
	switch ev.Type {
	case RawMessageStart:
		return []protocol.StreamEvent{{Type: protocol.EventMessageStart}}

	case RawBlockStart:
		switch ev.BlockType {
		case protocol.BlockTypeText:
			return []protocol.StreamEvent{a.openText()}
		case protocol.BlockTypeToolUse:
			return []protocol.StreamEvent{a.openTool(ev.CallIndex, ev.ToolID, ev.ToolName)}
		}
		return nil

	case RawTextDelta:
		var events []protocol.StreamEvent
		if a.textIdx < 0 {
			// Implicit framing: the vendor never announced the block.
			events = append(events, a.openText())
		}
		a.text.WriteString(ev.Text)
		events = append(events, protocol.StreamEvent{
			Type:  protocol.EventContentBlockDelta,
			Index: a.textIdx,
			Delta: &protocol.Delta{Text: ev.Text},
		})
		return events

	case RawJSONDelta:
		var events []protocol.StreamEvent
		index, ok := a.toolIdx[ev.CallIndex]
		if !ok {
			events = append(events, a.openTool(ev.CallIndex, ev.ToolID, ev.ToolName))
			index = a.toolIdx[ev.CallIndex]
		}
		a.args.Observe(ev.CallIndex, ev.ToolID, ev.ToolName, ev.PartialJSON)
		events = append(events, protocol.StreamEvent{
			Type:  protocol.EventContentBlockDelta,
			Index: index,
			Delta: &protocol.Delta{PartialJSON: ev.PartialJSON},
		})
		return events

	case RawBlockStop:
		if a.open == nil {
			return nil
		}
		stop := protocol.StreamEvent{Type: protocol.EventContentBlockStop, Index: a.open.index}
		a.closeOpen()
		return []protocol.StreamEvent{stop}

	case RawMessageDelta:
		if ev.OutputTokens != nil {
			a.tokens = ev.OutputTokens
		}
		// Passed through even when the vendor omitted usage.
		return []protocol.StreamEvent{{
			Type:  protocol.EventMessageDelta,
			Usage: &protocol.UsageDelta{OutputTokens: ev.OutputTokens},
		}}

	case RawMessageStop:
		a.finished = true
		return []protocol.StreamEvent{{Type: protocol.EventMessageStop}}
	}

	return nil
}

// Finish closes the stream for vendors without explicit terminal framing.
// It emits, in strict order: one content_block_stop for the open text block
// if text exists, one content_block_stop per unclosed tool call in the
// order calls were first seen, one message_delta carrying the final output
// token count, and exactly one message_stop. outputTokens may be nil; the
// last usage seen mid-stream is used instead, which may itself be nil.
//
// Finish is a no-op when the vendor already delivered message_stop.
func (a *Accumulator) Finish(outputTokens *int64) []protocol.StreamEvent {
	if a.finished {
		return nil
	}

	var events []protocol.StreamEvent
	if a.textIdx >= 0 {
		events = append(events, protocol.StreamEvent{Type: protocol.EventContentBlockStop, Index: a.textIdx})
		a.finalizeText()
	}
	for _, callIndex := range a.args.Indices() {
		if a.toolDone[callIndex] {
			continue
		}
		a.toolDone[callIndex] = true
		events = append(events, protocol.StreamEvent{Type: protocol.EventContentBlockStop, Index: a.toolIdx[callIndex]})
	}

	if outputTokens == nil {
		outputTokens = a.tokens
	}
	events = append(events,
		protocol.StreamEvent{Type: protocol.EventMessageDelta, Usage: &protocol.UsageDelta{OutputTokens: outputTokens}},
		protocol.StreamEvent{Type: protocol.EventMessageStop},
	)
	a.open = nil
	a.finished = true
	return events
}

// Blocks returns the finalized content blocks in canonical index order:
// text blocks that accumulated content, and every observed tool call with
// its parsed input.
func (a *Accumulator) Blocks() []protocol.ContentBlock {
	type indexed struct {
		index int
		block protocol.ContentBlock
	}

	entries := make([]indexed, 0, len(a.texts)+a.args.Len())
	for _, ft := range a.texts {
		entries = append(entries, indexed{ft.index, protocol.TextBlock(ft.text)})
	}
	calls := a.args.Calls()
	for i, callIndex := range a.args.Indices() {
		entries = append(entries, indexed{a.toolIdx[callIndex], calls[i]})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	blocks := make([]protocol.ContentBlock, 0, len(entries))
	for _, e := range entries {
		blocks = append(blocks, e.block)
	}
	return blocks
}

// OutputTokens reports the last usage seen on the stream, or nil.
func (a *Accumulator) OutputTokens() *int64 {
	return a.tokens
}

// openText assigns the next canonical index to a new text block.
func (a *Accumulator) openText() protocol.StreamEvent {
	index := a.next
	a.next++
	a.textIdx = index
	a.text.Reset()
	a.open = &openBlock{index: index, blockType: protocol.BlockTypeText}
	block := protocol.TextBlock("")
	return protocol.StreamEvent{Type: protocol.EventContentBlockStart, Index: index, Block: &block}
}

// openTool assigns the next canonical index to a new tool_use block and
// registers the call with the argument accumulator.
func (a *Accumulator) openTool(callIndex int, id, name string) protocol.StreamEvent {
	index := a.next
	a.next++
	a.toolIdx[callIndex] = index
	a.args.Observe(callIndex, id, name, "")
	a.open = &openBlock{index: index, blockType: protocol.BlockTypeToolUse, callIndex: callIndex}
	block := protocol.ToolUseBlock(id, name, nil)
	return protocol.StreamEvent{Type: protocol.EventContentBlockStart, Index: index, Block: &block}
}

// closeOpen records the explicit close of the currently open block.
func (a *Accumulator) closeOpen() {
	switch a.open.blockType {
	case protocol.BlockTypeText:
		a.finalizeText()
	case protocol.BlockTypeToolUse:
		a.toolDone[a.open.callIndex] = true
	}
	a.open = nil
}

// finalizeText collects the accumulated text as a finished block. An empty
// accumulation produces no block.
func (a *Accumulator) finalizeText() {
	if a.text.Len() > 0 {
		a.texts = append(a.texts, finalText{index: a.textIdx, text: a.text.String()})
	}
	a.textIdx = -1
	a.text.Reset()
}
