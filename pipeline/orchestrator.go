/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chainguard.dev/codeloom/config"
	"chainguard.dev/codeloom/credentials"
	"chainguard.dev/codeloom/metrics"
	"chainguard.dev/codeloom/protocol"
	"chainguard.dev/codeloom/provider"
	"chainguard.dev/codeloom/provider/registry"
	"chainguard.dev/codeloom/provider/retry"
	"chainguard.dev/codeloom/streamhub"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
)

// ClientFactory constructs a provider client from a resolved credential.
type ClientFactory func(id provider.ID, apiKey string) provider.Client

// Orchestrator runs multi-stage pipelines and variant fan-outs over the
// canonical completion contract. All collaborators are injected; there are
// no package-level singletons.
type Orchestrator struct {
	resolver *credentials.Resolver
	hub      *streamhub.Hub
	store    ConversationStore

	tasks     TaskStore
	tools     ToolBridge
	toolDefs  []protocol.ToolDefinition
	meter     *metrics.Completion
	newClient ClientFactory

	priority     []provider.ID
	defaultModel func(provider.ID) string
	maxTokens    int64
	temperature  *float64
	variantCount int
	retryCfg     retry.Config

	mu        sync.Mutex
	pipelines map[string]*Pipeline
	done      map[string]chan struct{}
	gates     map[string]*gate
	variants  map[string]*variantSet
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTaskStore mirrors stage progress to the given store.
func WithTaskStore(tasks TaskStore) Option {
	return func(o *Orchestrator) { o.tasks = tasks }
}

// WithToolBridge makes the given tools callable during stages: their
// definitions are offered on every stage completion and calls are executed
// through the bridge.
func WithToolBridge(tools ToolBridge, defs ...protocol.ToolDefinition) Option {
	return func(o *Orchestrator) {
		o.tools = tools
		o.toolDefs = defs
	}
}

// WithMetrics records token usage and stage activity.
func WithMetrics(meter *metrics.Completion) Option {
	return func(o *Orchestrator) { o.meter = meter }
}

// WithClientFactory overrides how provider clients are constructed.
func WithClientFactory(factory ClientFactory) Option {
	return func(o *Orchestrator) { o.newClient = factory }
}

// WithPriority overrides the provider fallback order.
func WithPriority(priority []provider.ID) Option {
	return func(o *Orchestrator) { o.priority = priority }
}

// WithMaxTokens caps stage and variant completions.
func WithMaxTokens(max int64) Option {
	return func(o *Orchestrator) { o.maxTokens = max }
}

// WithVariantCount sets the default variant fan-out width.
func WithVariantCount(count int) Option {
	return func(o *Orchestrator) { o.variantCount = count }
}

// WithTemperature sets the sampling temperature on every stage and variant
// completion. Unset, each provider uses its own default.
func WithTemperature(t float64) Option {
	return func(o *Orchestrator) { o.temperature = &t }
}

// WithSettings applies environment-derived settings: provider priority,
// token cap, variant count, and temperature when one is set.
func WithSettings(s *config.Settings) Option {
	return func(o *Orchestrator) {
		if p := s.Priority(); len(p) > 0 {
			o.priority = p
		}
		o.maxTokens = s.MaxTokens
		o.variantCount = s.VariantCount
		if s.Temperature >= 0 {
			t := s.Temperature
			o.temperature = &t
		}
	}
}

// WithRetry retries failed completion calls with the given backoff. The
// default performs a single attempt; cancellations are never retried.
// A retried stage streams from the top: its message content is rebuilt
// and listeners see the new attempt's events.
func WithRetry(cfg retry.Config) Option {
	return func(o *Orchestrator) { o.retryCfg = cfg }
}

// New returns an orchestrator wired to the given collaborators.
func New(resolver *credentials.Resolver, hub *streamhub.Hub, store ConversationStore, opts ...Option) (*Orchestrator, error) {
	if resolver == nil || hub == nil || store == nil {
		return nil, fmt.Errorf("resolver, hub, and conversation store are required")
	}
	o := &Orchestrator{
		resolver:     resolver,
		hub:          hub,
		store:        store,
		newClient:    registry.New,
		priority:     provider.All(),
		defaultModel: registry.DefaultModel,
		maxTokens:    4096,
		variantCount: 3,
		retryCfg:     retry.NoRetry(),
		pipelines:    map[string]*Pipeline{},
		done:         map[string]chan struct{}{},
		gates:        map[string]*gate{},
		variants:     map[string]*variantSet{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RequestPipelineResponse starts a multi-stage pipeline for the request
// and returns its initial snapshot. With no usable credentials, a
// configuration message is posted to the thread and (nil, nil) is
// returned; absence of credentials is a normal outcome, not an error.
func (o *Orchestrator) RequestPipelineResponse(ctx context.Context, threadID, text string) (*Snapshot, error) {
	decision := decide(o.priority, o.defaultModel)
	cred, err := o.resolver.Resolve(ctx, decision.Providers())
	if errors.Is(err, credentials.ErrNoCredentials) {
		o.postConfigMessage(ctx, threadID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p := newPipeline(uuid.NewString(), threadID, text, defaultPlan())
	if err := p.transition(StatusRunning); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	o.mu.Lock()
	o.pipelines[p.id] = p
	o.done[p.id] = done
	o.mu.Unlock()

	runCtx, _ := o.hub.RegisterCancellation(context.WithoutCancel(ctx), threadID)
	go func() {
		defer close(done)
		o.run(runCtx, p, cred)
	}()

	snapshot := p.Snapshot()
	return &snapshot, nil
}

// PipelineSnapshot returns the current state of a pipeline.
func (o *Orchestrator) PipelineSnapshot(pipelineID string) (Snapshot, bool) {
	o.mu.Lock()
	p, ok := o.pipelines[pipelineID]
	o.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return p.Snapshot(), true
}

// Await blocks until the pipeline reaches a terminal status or ctx ends.
func (o *Orchestrator) Await(ctx context.Context, pipelineID string) (Snapshot, error) {
	o.mu.Lock()
	p, ok := o.pipelines[pipelineID]
	done := o.done[pipelineID]
	o.mu.Unlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("unknown pipeline %q", pipelineID)
	}
	select {
	case <-done:
		return p.Snapshot(), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Cancel aborts the thread's in-flight work.
func (o *Orchestrator) Cancel(threadID string) {
	o.hub.Cancel(threadID)
}

// run drives the stage loop. It owns the pipeline for its duration; every
// exit path clears the typing indicator and drops the cancellation token.
func (o *Orchestrator) run(ctx context.Context, p *Pipeline, cred credentials.Credential) {
	log := clog.FromContext(ctx).With("pipeline", p.id, "thread", p.threadID)

	o.setTyping(ctx, p.threadID, true)
	defer func() {
		o.setTyping(ctx, p.threadID, false)
		o.hub.Cleanup(p.threadID)
	}()

	client := o.newClient(cred.Provider, cred.Secret)
	model := o.defaultModel(cred.Provider)

	for i := range p.stages {
		stage := &p.stages[i]

		if i > 0 {
			o.postHandoff(ctx, p, p.stages[i-1].Role, stage.Role)
		}

		output, err := o.runStage(ctx, p, i, client, model)
		o.recordStage(ctx, stage.Role, err)
		o.mirrorProgress(ctx, p.id, stage.Role, err)
		if err != nil {
			if provider.IsCancellation(err) {
				log.With("stage", stage.Role).Info("stage cancelled")
				o.conclude(ctx, p, StatusCancelled)
				return
			}
			log.With("stage", stage.Role).Error("stage failed", "error", err)
			p.fail(i, err)
			o.publishStatus(ctx, p)
			o.postFailure(ctx, p, stage.Role, err)
			return
		}
		p.setOutput(i, output)

		last := i == len(p.stages)-1
		if stage.RequiresApproval && !last {
			if ok := o.gateStage(ctx, p, stage.Role); !ok {
				return
			}
		}
	}

	o.conclude(ctx, p, StatusCompleted)
	log.Info("pipeline completed")
}

// gateStage pauses the pipeline at an approval gate. It returns true when
// approved; on rejection or cancellation the pipeline is concluded as
// cancelled and false is returned.
func (o *Orchestrator) gateStage(ctx context.Context, p *Pipeline, role Role) bool {
	if err := p.transition(StatusAwaitingApproval); err != nil {
		p.fail(p.current, err)
		o.publishStatus(ctx, p)
		return false
	}
	o.publishStatus(ctx, p)

	prompt := fmt.Sprintf("The %s stage finished. Approve to continue?", role)
	messageID, ch, err := o.requestApproval(ctx, p.threadID, prompt)
	if err != nil {
		p.fail(p.current, err)
		o.publishStatus(ctx, p)
		return false
	}

	approved, err := o.awaitApproval(ctx, messageID, ch)
	if err != nil || !approved {
		o.conclude(ctx, p, StatusCancelled)
		return false
	}
	if err := p.transition(StatusRunning); err != nil {
		p.fail(p.current, err)
		o.publishStatus(ctx, p)
		return false
	}
	o.publishStatus(ctx, p)
	return true
}

// runStage executes one completion for the stage, streaming output into a
// progressively updated conversation message.
func (o *Orchestrator) runStage(ctx context.Context, p *Pipeline, i int, client provider.Client, model string) (string, error) {
	stage := p.stages[i]

	sc := stageContext{Request: p.request}
	if i > 0 {
		sc.PreviousStage = string(p.stages[i-1].Role)
		sc.PreviousWork = p.stages[i-1].Output
	}
	system, err := systemPrompt(stage.Role, sc)
	if err != nil {
		return "", err
	}

	messageID, err := o.store.AppendMessage(ctx, p.threadID, protocol.RoleAssistant, "", "stage_output", map[string]any{
		"pipeline": p.id,
		"stage":    string(stage.Role),
	})
	if err != nil {
		return "", fmt.Errorf("creating stage message: %w", err)
	}
	p.setStage(i, messageID)

	var text string
	onEvent := func(ev protocol.StreamEvent) {
		if ev.Type == protocol.EventContentBlockDelta && ev.Delta != nil && ev.Delta.Text != "" {
			text += ev.Delta.Text
			if err := o.store.UpdateMessageContent(ctx, messageID, p.threadID, text); err != nil {
				clog.FromContext(ctx).With("message", messageID).Warn("updating stage message", "error", err)
			}
		}
		o.hub.Publish(ctx, streamhub.Event{
			Kind:      streamhub.KindStreamDelta,
			ThreadID:  p.threadID,
			MessageID: messageID,
			Stream:    &ev,
		})
	}

	msgs := []protocol.Message{protocol.UserMessage(p.request)}
	opts := protocol.CompletionOptions{
		Model:        model,
		MaxTokens:    o.maxTokens,
		Temperature:  o.temperature,
		SystemPrompt: system,
	}
	if o.tools != nil {
		opts.Tools = o.toolDefs
	}

	for turn := 0; ; turn++ {
		turnStart := text
		resp, err := retry.Do(ctx, o.retryCfg, "stage completion", retryable, func() (*protocol.CompletionResponse, error) {
			text = turnStart
			return client.CompleteStream(ctx, msgs, opts, onEvent)
		})
		if err != nil {
			status := "failed"
			if provider.IsCancellation(err) {
				status = "cancelled"
			}
			if serr := o.store.UpdateMessageStatus(ctx, messageID, p.threadID, status); serr != nil {
				clog.FromContext(ctx).With("message", messageID).Warn("updating stage message status", "error", serr)
			}
			return "", err
		}
		if o.meter != nil {
			o.meter.RecordUsage(ctx, client.Provider(), model, resp.Usage)
		}

		if resp.StopReason != protocol.StopReasonToolUse || o.tools == nil || turn >= maxToolTurns {
			break
		}
		msgs = append(msgs, protocol.AssistantMessage(resp.Content...))
		msgs = append(msgs, protocol.Message{
			Role:    protocol.RoleUser,
			Content: o.executeTools(ctx, resp.Content),
		})
	}

	final := text
	if err := o.store.UpdateMessageContent(ctx, messageID, p.threadID, final); err != nil {
		clog.FromContext(ctx).With("message", messageID).Warn("finalizing stage message", "error", err)
	}
	if err := o.store.UpdateMessageStatus(ctx, messageID, p.threadID, "completed"); err != nil {
		clog.FromContext(ctx).With("message", messageID).Warn("updating stage message status", "error", err)
	}
	return final, nil
}

// maxToolTurns bounds tool-call round trips within one stage so a model
// that keeps requesting tools cannot loop forever.
const maxToolTurns = 8

// retryable classifies completion errors for the retry wrapper. A
// cancellation is a deliberate outcome, never retried.
func retryable(err error) bool {
	return !provider.IsCancellation(err)
}

// executeTools runs every tool call in the response content through the
// bridge and returns the matching tool results. A failed execution becomes
// an error-text result rather than aborting the stage.
func (o *Orchestrator) executeTools(ctx context.Context, content []protocol.ContentBlock) []protocol.ContentBlock {
	var results []protocol.ContentBlock
	for _, call := range (protocol.Message{Content: content}).ToolUses() {
		out, err := o.tools.Execute(ctx, call.Name, call.Input)
		if err != nil {
			clog.FromContext(ctx).With("tool", call.Name).Warn("tool execution failed", "error", err)
			out = fmt.Sprintf("tool %s failed: %v", call.Name, err)
		}
		results = append(results, protocol.ToolResultBlock(call.ID, out))
	}
	return results
}

// conclude moves the pipeline to a terminal status and publishes it.
func (o *Orchestrator) conclude(ctx context.Context, p *Pipeline, status Status) {
	if err := p.transition(status); err != nil {
		clog.FromContext(ctx).With("pipeline", p.id).Warn("concluding pipeline", "error", err)
		return
	}
	o.publishStatus(ctx, p)
}

func (o *Orchestrator) publishStatus(ctx context.Context, p *Pipeline) {
	o.hub.Publish(ctx, streamhub.Event{
		Kind:     streamhub.KindPipelineStatus,
		ThreadID: p.threadID,
		Status:   string(p.Status()),
	})
}

func (o *Orchestrator) setTyping(ctx context.Context, threadID string, active bool) {
	o.hub.Publish(ctx, streamhub.Event{
		Kind:     streamhub.KindTyping,
		ThreadID: threadID,
		Active:   active,
	})
}

// postConfigMessage reports credential absence as an ordinary chat message
// with setup instructions.
func (o *Orchestrator) postConfigMessage(ctx context.Context, threadID string) {
	const text = "No AI provider is configured. Add an API key for Anthropic, OpenAI, or Google to get started."
	if _, err := o.store.AppendMessage(ctx, threadID, protocol.RoleSystem, text, "text", nil); err != nil {
		clog.FromContext(ctx).With("thread", threadID).Warn("posting configuration message", "error", err)
	}
	o.hub.Publish(ctx, streamhub.Event{Kind: streamhub.KindMessage, ThreadID: threadID, Text: text})
}

func (o *Orchestrator) postHandoff(ctx context.Context, p *Pipeline, from, to Role) {
	text := fmt.Sprintf("%s finished; handing off to %s.", from, to)
	if _, err := o.store.AppendMessage(ctx, p.threadID, protocol.RoleSystem, text, "handoff", nil); err != nil {
		clog.FromContext(ctx).With("pipeline", p.id).Warn("posting handoff", "error", err)
	}
	o.hub.Publish(ctx, streamhub.Event{Kind: streamhub.KindMessage, ThreadID: p.threadID, Text: text})
}

func (o *Orchestrator) postFailure(ctx context.Context, p *Pipeline, role Role, err error) {
	text := fmt.Sprintf("The %s stage failed: %v", role, err)
	if _, serr := o.store.AppendMessage(ctx, p.threadID, protocol.RoleSystem, text, "error", nil); serr != nil {
		clog.FromContext(ctx).With("pipeline", p.id).Warn("posting failure message", "error", serr)
	}
	o.hub.Publish(ctx, streamhub.Event{Kind: streamhub.KindError, ThreadID: p.threadID, Text: text})
}

func (o *Orchestrator) recordStage(ctx context.Context, role Role, err error) {
	if o.meter == nil {
		return
	}
	outcome := "completed"
	switch {
	case provider.IsCancellation(err):
		outcome = "cancelled"
	case err != nil:
		outcome = "failed"
	}
	o.meter.RecordStage(ctx, string(role), outcome)
}

// mirrorProgress reflects stage outcomes into the task store when one is
// configured. Errors are ignored; the mirror is observability only.
func (o *Orchestrator) mirrorProgress(ctx context.Context, pipelineID string, role Role, err error) {
	if o.tasks == nil {
		return
	}
	status := "completed"
	switch {
	case provider.IsCancellation(err):
		status = "cancelled"
	case err != nil:
		status = "failed"
	}
	_ = o.tasks.RecordStageProgress(ctx, pipelineID, string(role), status)
}
