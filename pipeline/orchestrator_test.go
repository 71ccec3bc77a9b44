/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"chainguard.dev/codeloom/config"
	"chainguard.dev/codeloom/credentials"
	"chainguard.dev/codeloom/protocol"
	"chainguard.dev/codeloom/provider"
	"chainguard.dev/codeloom/streamhub"
)

type secretsFunc func(ctx context.Context, id provider.ID) (string, error)

func (f secretsFunc) Retrieve(ctx context.Context, id provider.ID) (string, error) {
	return f(ctx, id)
}

func staticSecrets(m map[provider.ID]string) credentials.SecretStore {
	return secretsFunc(func(_ context.Context, id provider.ID) (string, error) {
		return m[id], nil
	})
}

type storedMessage struct {
	id          string
	threadID    string
	sender      protocol.Role
	content     string
	contentType string
	status      string
}

type fakeStore struct {
	mu       sync.Mutex
	nextID   int
	messages []storedMessage
}

func (s *fakeStore) AppendMessage(_ context.Context, threadID string, sender protocol.Role, content, contentType string, _ map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("msg_%d", s.nextID)
	s.messages = append(s.messages, storedMessage{
		id: id, threadID: threadID, sender: sender,
		content: content, contentType: contentType,
	})
	return id, nil
}

func (s *fakeStore) UpdateMessageContent(_ context.Context, messageID, _, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].id == messageID {
			s.messages[i].content = content
			return nil
		}
	}
	return fmt.Errorf("unknown message %q", messageID)
}

func (s *fakeStore) UpdateMessageStatus(_ context.Context, messageID, _, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].id == messageID {
			s.messages[i].status = status
			return nil
		}
	}
	return fmt.Errorf("unknown message %q", messageID)
}

func (s *fakeStore) Messages(_ context.Context, threadID string) ([]protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []protocol.Message
	for _, m := range s.messages {
		if m.threadID == threadID {
			out = append(out, protocol.Message{Role: m.sender, Content: []protocol.ContentBlock{protocol.TextBlock(m.content)}})
		}
	}
	return out, nil
}

func (s *fakeStore) byType(contentType string) []storedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storedMessage
	for _, m := range s.messages {
		if m.contentType == contentType {
			out = append(out, m)
		}
	}
	return out
}

// fakeClient answers every completion with canned text, optionally failing
// or blocking until cancelled.
type fakeClient struct {
	id        provider.ID
	err       error
	failAfter int           // with err set, calls beyond this many fail; 0 fails all
	blockCh   chan struct{} // closed when a blocking call has started

	mu       sync.Mutex
	calls    int
	lastOpts protocol.CompletionOptions
}

func (f *fakeClient) Provider() provider.ID { return f.id }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeClient) lastOptions() protocol.CompletionOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOpts
}

func (f *fakeClient) respond(ctx context.Context, call int) (*protocol.CompletionResponse, error) {
	if f.blockCh != nil {
		close(f.blockCh)
		f.blockCh = nil
		<-ctx.Done()
		return nil, provider.Cancelled(f.id, ctx, ctx.Err())
	}
	if f.err != nil && call > f.failAfter {
		return nil, f.err
	}
	text := fmt.Sprintf("%s output %d", f.id, call)
	return &protocol.CompletionResponse{
		ID:         fmt.Sprintf("resp_%d", call),
		Content:    []protocol.ContentBlock{protocol.TextBlock(text)},
		Model:      "fake-model",
		StopReason: protocol.StopReasonEndTurn,
		Usage:      protocol.Usage{InputTokens: 5, OutputTokens: 7, TotalTokens: 12},
	}, nil
}

func (f *fakeClient) Complete(ctx context.Context, _ []protocol.Message, opts protocol.CompletionOptions) (*protocol.CompletionResponse, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.lastOpts = opts
	f.mu.Unlock()
	return f.respond(ctx, call)
}

func (f *fakeClient) CompleteStream(ctx context.Context, _ []protocol.Message, opts protocol.CompletionOptions, onEvent provider.EventFunc) (*protocol.CompletionResponse, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.lastOpts = opts
	f.mu.Unlock()

	resp, err := f.respond(ctx, call)
	if err != nil {
		return nil, err
	}
	if onEvent != nil {
		onEvent(protocol.StreamEvent{Type: protocol.EventMessageStart})
		onEvent(protocol.StreamEvent{Type: protocol.EventContentBlockStart, Block: &protocol.ContentBlock{Type: protocol.BlockTypeText}})
		onEvent(protocol.StreamEvent{Type: protocol.EventContentBlockDelta, Delta: &protocol.Delta{Text: resp.Text()}})
		onEvent(protocol.StreamEvent{Type: protocol.EventContentBlockStop})
		onEvent(protocol.StreamEvent{Type: protocol.EventMessageStop})
	}
	return resp, nil
}

func testOrchestrator(t *testing.T, secrets credentials.SecretStore, factory ClientFactory) (*Orchestrator, *fakeStore, *streamhub.Hub) {
	t.Helper()
	resolver, err := credentials.NewResolver(secrets)
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{}
	hub := streamhub.New()
	orch, err := New(resolver, hub, store, WithClientFactory(factory))
	if err != nil {
		t.Fatal(err)
	}
	return orch, store, hub
}

func autoApprove(t *testing.T, orch *Orchestrator, hub *streamhub.Hub, approved bool) {
	t.Helper()
	hub.Subscribe(func(ev streamhub.Event) {
		if ev.Kind == streamhub.KindApprovalRequest {
			go func() {
				if err := orch.RespondToApproval(context.Background(), ev.ThreadID, ev.MessageID, approved); err != nil {
					t.Errorf("responding to approval: %v", err)
				}
			}()
		}
	})
}

func TestPipelineRunsAllStagesWithApprovals(t *testing.T) {
	client := &fakeClient{id: provider.Anthropic}
	orch, store, hub := testOrchestrator(t,
		staticSecrets(map[provider.ID]string{provider.Anthropic: "sk-ant"}),
		func(provider.ID, string) provider.Client { return client })
	autoApprove(t, orch, hub, true)

	ctx := context.Background()
	snap, err := orch.RequestPipelineResponse(ctx, "t1", "build an app that tracks tasks")
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil {
		t.Fatal("expected a pipeline snapshot")
	}

	final, err := orch.Await(ctx, snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed (err=%q)", final.Status, final.Err)
	}
	if client.callCount() != 3 {
		t.Errorf("completion calls = %d, want 3", client.callCount())
	}
	for i, stage := range final.Stages {
		if stage.Output == "" {
			t.Errorf("stage %d (%s) has no output", i, stage.Role)
		}
	}
	if handoffs := store.byType("handoff"); len(handoffs) != 2 {
		t.Errorf("handoff messages = %d, want 2", len(handoffs))
	}
	if approvals := store.byType("approval_request"); len(approvals) != 2 {
		t.Errorf("approval requests = %d, want 2", len(approvals))
	}
}

func TestPipelineApprovalFromSynchronousListener(t *testing.T) {
	// A listener may resolve the gate from inside the approval-request
	// publish, before the pipeline goroutine starts waiting. The approval
	// must still advance the pipeline rather than read as a cancellation.
	client := &fakeClient{id: provider.Anthropic}
	orch, _, hub := testOrchestrator(t,
		staticSecrets(map[provider.ID]string{provider.Anthropic: "sk-ant"}),
		func(provider.ID, string) provider.Client { return client })
	hub.Subscribe(func(ev streamhub.Event) {
		if ev.Kind == streamhub.KindApprovalRequest {
			if err := orch.RespondToApproval(context.Background(), ev.ThreadID, ev.MessageID, true); err != nil {
				t.Errorf("responding to approval: %v", err)
			}
		}
	})

	ctx := context.Background()
	snap, err := orch.RequestPipelineResponse(ctx, "t1", "build an app that tracks tasks")
	if err != nil {
		t.Fatal(err)
	}

	final, err := orch.Await(ctx, snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != StatusCompleted {
		t.Fatalf("status = %q (calls=%d), want completed", final.Status, client.callCount())
	}
	if client.callCount() != 3 {
		t.Errorf("completion calls = %d, want 3", client.callCount())
	}
}

func TestPipelineRejectionCancels(t *testing.T) {
	client := &fakeClient{id: provider.Anthropic}
	orch, _, hub := testOrchestrator(t,
		staticSecrets(map[provider.ID]string{provider.Anthropic: "sk-ant"}),
		func(provider.ID, string) provider.Client { return client })
	autoApprove(t, orch, hub, false)

	ctx := context.Background()
	snap, err := orch.RequestPipelineResponse(ctx, "t1", "implement a feature")
	if err != nil {
		t.Fatal(err)
	}

	final, err := orch.Await(ctx, snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", final.Status)
	}
	// Only the architect ran; rejection stopped the pipeline.
	if client.callCount() != 1 {
		t.Errorf("completion calls = %d, want 1", client.callCount())
	}
}

func TestPipelineStageFailure(t *testing.T) {
	// The architect succeeds; the engineer's completion fails.
	client := &fakeClient{id: provider.Anthropic, err: errors.New("upstream 500"), failAfter: 1}
	orch, store, hub := testOrchestrator(t,
		staticSecrets(map[provider.ID]string{provider.Anthropic: "sk-ant"}),
		func(provider.ID, string) provider.Client { return client })
	autoApprove(t, orch, hub, true)

	ctx := context.Background()
	snap, err := orch.RequestPipelineResponse(ctx, "t1", "create a service")
	if err != nil {
		t.Fatal(err)
	}

	final, err := orch.Await(ctx, snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", final.Status)
	}
	if final.FailedStage != 1 {
		t.Errorf("failed stage = %d, want 1", final.FailedStage)
	}
	if !strings.Contains(final.Err, "upstream 500") {
		t.Errorf("recorded error = %q", final.Err)
	}
	// The reviewer never ran: architect + failing engineer only.
	if client.callCount() != 2 {
		t.Errorf("completion calls = %d, want 2", client.callCount())
	}
	if errs := store.byType("error"); len(errs) != 1 {
		t.Errorf("error messages = %d, want 1", len(errs))
	}
}

func TestPipelineCancellationIsNotFailure(t *testing.T) {
	started := make(chan struct{})
	client := &fakeClient{id: provider.Anthropic, blockCh: started}
	orch, store, hub := testOrchestrator(t,
		staticSecrets(map[provider.ID]string{provider.Anthropic: "sk-ant"}),
		func(provider.ID, string) provider.Client { return client })

	var errorEvents int
	var mu sync.Mutex
	hub.Subscribe(func(ev streamhub.Event) {
		if ev.Kind == streamhub.KindError {
			mu.Lock()
			errorEvents++
			mu.Unlock()
		}
	})

	ctx := context.Background()
	snap, err := orch.RequestPipelineResponse(ctx, "t1", "build a website")
	if err != nil {
		t.Fatal(err)
	}

	<-started
	orch.Cancel("t1")

	final, err := orch.Await(ctx, snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", final.Status)
	}
	if final.Err != "" {
		t.Errorf("cancelled pipeline recorded error %q", final.Err)
	}
	mu.Lock()
	defer mu.Unlock()
	if errorEvents != 0 {
		t.Errorf("cancellation published %d error events, want 0", errorEvents)
	}
	if errs := store.byType("error"); len(errs) != 0 {
		t.Errorf("cancellation posted %d error messages, want 0", len(errs))
	}
}

func TestPipelineNoCredentials(t *testing.T) {
	orch, store, _ := testOrchestrator(t,
		staticSecrets(nil),
		func(provider.ID, string) provider.Client { return &fakeClient{id: provider.Anthropic} })

	snap, err := orch.RequestPipelineResponse(context.Background(), "t1", "build an app")
	if err != nil {
		t.Fatalf("credential absence must not be an error, got %v", err)
	}
	if snap != nil {
		t.Error("expected no pipeline without credentials")
	}

	msgs := store.byType("text")
	if len(msgs) != 1 || !strings.Contains(msgs[0].content, "API key") {
		t.Errorf("expected a configuration message, got %+v", msgs)
	}
}

func TestRespondToApprovalDoubleResolution(t *testing.T) {
	orch, _, _ := testOrchestrator(t,
		staticSecrets(map[provider.ID]string{provider.Anthropic: "sk-ant"}),
		func(provider.ID, string) provider.Client { return &fakeClient{id: provider.Anthropic} })

	ctx := context.Background()
	messageID, err := orch.RequestApproval(ctx, "t1", "Approve the plan?")
	if err != nil {
		t.Fatal(err)
	}

	if err := orch.RespondToApproval(ctx, "t1", messageID, true); err != nil {
		t.Fatalf("first response failed: %v", err)
	}
	if err := orch.RespondToApproval(ctx, "t1", messageID, false); !errors.Is(err, ErrApprovalResolved) {
		t.Errorf("second response error = %v, want ErrApprovalResolved", err)
	}
	if err := orch.RespondToApproval(ctx, "t1", "msg_unknown", true); !errors.Is(err, ErrApprovalResolved) {
		t.Errorf("unknown gate error = %v, want ErrApprovalResolved", err)
	}
}

func TestAwaitUnknownPipeline(t *testing.T) {
	orch, _, _ := testOrchestrator(t,
		staticSecrets(nil),
		func(provider.ID, string) provider.Client { return &fakeClient{id: provider.Anthropic} })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := orch.Await(ctx, "nope"); err == nil {
		t.Error("awaiting an unknown pipeline must error")
	}
}

func TestTemperatureAppliedToCompletions(t *testing.T) {
	client := &fakeClient{id: provider.Anthropic}
	resolver, err := credentials.NewResolver(staticSecrets(map[provider.ID]string{provider.Anthropic: "sk-ant"}))
	if err != nil {
		t.Fatal(err)
	}
	hub := streamhub.New()
	orch, err := New(resolver, hub, &fakeStore{},
		WithClientFactory(func(provider.ID, string) provider.Client { return client }),
		WithTemperature(0.2))
	if err != nil {
		t.Fatal(err)
	}
	autoApprove(t, orch, hub, true)

	ctx := context.Background()
	snap, err := orch.RequestPipelineResponse(ctx, "t1", "build an app")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := orch.Await(ctx, snap.ID); err != nil {
		t.Fatal(err)
	}
	opts := client.lastOptions()
	if opts.Temperature == nil || *opts.Temperature != 0.2 {
		t.Errorf("stage completion temperature = %v, want 0.2", opts.Temperature)
	}

	if _, err := orch.RequestVariantResponse(ctx, "t1", "write a haiku", VariantOptions{Count: 1}); err != nil {
		t.Fatal(err)
	}
	opts = client.lastOptions()
	if opts.Temperature == nil || *opts.Temperature != 0.2 {
		t.Errorf("variant completion temperature = %v, want 0.2", opts.Temperature)
	}
}

func TestWithSettings(t *testing.T) {
	resolver, err := credentials.NewResolver(staticSecrets(nil))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		settings config.Settings
		wantTemp *float64
	}{
		{
			name:     "temperature set",
			settings: config.Settings{ProviderPriority: "openai", VariantCount: 2, MaxTokens: 512, Temperature: 0.7},
			wantTemp: ptrFloat(0.7),
		},
		{
			name:     "temperature left to providers",
			settings: config.Settings{ProviderPriority: "openai", VariantCount: 2, MaxTokens: 512, Temperature: -1},
			wantTemp: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch, err := New(resolver, streamhub.New(), &fakeStore{}, WithSettings(&tt.settings))
			if err != nil {
				t.Fatal(err)
			}
			if orch.maxTokens != 512 || orch.variantCount != 2 {
				t.Errorf("maxTokens = %d, variantCount = %d", orch.maxTokens, orch.variantCount)
			}
			if len(orch.priority) != 1 || orch.priority[0] != provider.OpenAI {
				t.Errorf("priority = %v, want [openai]", orch.priority)
			}
			switch {
			case tt.wantTemp == nil && orch.temperature != nil:
				t.Errorf("temperature = %v, want unset", *orch.temperature)
			case tt.wantTemp != nil && (orch.temperature == nil || *orch.temperature != *tt.wantTemp):
				t.Errorf("temperature = %v, want %v", orch.temperature, *tt.wantTemp)
			}
		})
	}
}

func ptrFloat(f float64) *float64 { return &f }
