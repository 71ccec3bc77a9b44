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

	"chainguard.dev/codeloom/credentials"
	"chainguard.dev/codeloom/protocol"
	"chainguard.dev/codeloom/provider"
	"chainguard.dev/codeloom/provider/retry"
	"chainguard.dev/codeloom/streamhub"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrVariantResolved reports a selection against a variant set that does
// not exist or was already consumed. Selection is a one-time action.
var ErrVariantResolved = errors.New("variant selection already resolved or unknown")

// DiversityMode controls how variant generations spread across providers.
type DiversityMode string

const (
	// DiversitySingle issues every generation against the highest-priority
	// provider with a usable credential.
	DiversitySingle DiversityMode = "single"
	// DiversityMulti round-robins generations across every provider with a
	// usable credential.
	DiversityMulti DiversityMode = "multi"
)

// VariantOptions tunes a variant fan-out.
type VariantOptions struct {
	// Count is the number of generations to attempt. Zero means the
	// orchestrator default.
	Count int
	// DiversityMode defaults to single-provider.
	DiversityMode DiversityMode
}

// Variant is one successful generation offered for selection.
type Variant struct {
	ID          string
	Name        string
	Description string
	Provider    provider.ID
	Model       string
	Content     string
	TokensUsed  int64
}

// VariantResult is the outcome of a fan-out. Variants may be empty when
// every generation failed; that is distinct from the nil result returned
// when no credentials exist at all.
type VariantResult struct {
	MessageID string
	Variants  []Variant
}

type variantSet struct {
	threadID string
	variants []Variant
}

// RequestVariantResponse fans out up to Count generations for the prompt
// and posts a selection message holding the collected variants. One
// generation failing never aborts the others. With no usable credentials,
// a configuration message is posted and (nil, nil) returned.
func (o *Orchestrator) RequestVariantResponse(ctx context.Context, threadID, prompt string, opts VariantOptions) (*VariantResult, error) {
	count := opts.Count
	if count <= 0 {
		count = o.variantCount
	}

	creds, err := o.resolveForDiversity(ctx, opts.DiversityMode)
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		o.postConfigMessage(ctx, threadID)
		return nil, nil
	}

	runCtx, _ := o.hub.RegisterCancellation(context.WithoutCancel(ctx), threadID)
	defer o.hub.Cleanup(threadID)
	o.setTyping(runCtx, threadID, true)
	defer o.setTyping(runCtx, threadID, false)

	clients := make(map[provider.ID]provider.Client, len(creds))
	for _, cred := range creds {
		clients[cred.Provider] = o.newClient(cred.Provider, cred.Secret)
	}

	var (
		mu       sync.Mutex
		variants []Variant
	)
	group, gctx := errgroup.WithContext(runCtx)
	for v := 0; v < count; v++ {
		cred := creds[v%len(creds)]
		client := clients[cred.Provider]
		model := o.defaultModel(cred.Provider)

		group.Go(func() error {
			resp, err := retry.Do(gctx, o.retryCfg, "variant completion", retryable, func() (*protocol.CompletionResponse, error) {
				return client.Complete(gctx, []protocol.Message{protocol.UserMessage(prompt)}, protocol.CompletionOptions{
					Model:       model,
					MaxTokens:   o.maxTokens,
					Temperature: o.temperature,
				})
			})
			if o.meter != nil {
				o.meter.RecordVariant(gctx, cred.Provider, err == nil)
			}
			if err != nil {
				// One failed generation does not abort the rest.
				clog.FromContext(gctx).With("provider", cred.Provider).Warn("variant generation failed", "error", err)
				return nil
			}
			if o.meter != nil {
				o.meter.RecordUsage(gctx, cred.Provider, model, resp.Usage)
			}
			mu.Lock()
			variants = append(variants, Variant{
				ID:          uuid.NewString(),
				Description: fmt.Sprintf("%s (%s)", cred.Provider, model),
				Provider:    cred.Provider,
				Model:       model,
				Content:     resp.Text(),
				TokensUsed:  resp.Usage.TotalTokens,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	// Generations land in completion order; names follow that order.
	for i := range variants {
		variants[i].Name = fmt.Sprintf("Variant %d", i+1)
	}

	messageID, err := o.store.AppendMessage(ctx, threadID, protocol.RoleAssistant, prompt, "variant_selection", map[string]any{
		"variant_count": len(variants),
	})
	if err != nil {
		return nil, fmt.Errorf("posting variant selection: %w", err)
	}

	o.mu.Lock()
	o.variants[messageID] = &variantSet{threadID: threadID, variants: variants}
	o.mu.Unlock()

	o.hub.Publish(ctx, streamhub.Event{
		Kind:      streamhub.KindMessage,
		ThreadID:  threadID,
		MessageID: messageID,
		Text:      fmt.Sprintf("%d variants ready for selection", len(variants)),
	})

	return &VariantResult{MessageID: messageID, Variants: variants}, nil
}

// SelectVariant posts the chosen variant's content as the canonical
// conversation turn and discards the selection opportunity. The first
// selection wins; later selections error with ErrVariantResolved.
func (o *Orchestrator) SelectVariant(ctx context.Context, threadID, messageID, variantID string) error {
	o.mu.Lock()
	set, ok := o.variants[messageID]
	if !ok || set.threadID != threadID {
		o.mu.Unlock()
		return ErrVariantResolved
	}
	var chosen *Variant
	for i := range set.variants {
		if set.variants[i].ID == variantID {
			chosen = &set.variants[i]
			break
		}
	}
	if chosen == nil {
		// The set stays live so a valid id can still be chosen.
		o.mu.Unlock()
		return fmt.Errorf("unknown variant %q", variantID)
	}
	delete(o.variants, messageID)
	o.mu.Unlock()

	if _, err := o.store.AppendMessage(ctx, threadID, protocol.RoleAssistant, chosen.Content, "text", map[string]any{
		"selected_variant": chosen.ID,
		"provider":         string(chosen.Provider),
	}); err != nil {
		return fmt.Errorf("posting selected variant: %w", err)
	}
	if err := o.store.UpdateMessageStatus(ctx, messageID, threadID, "resolved"); err != nil {
		clog.FromContext(ctx).With("message", messageID).Warn("updating selection message status", "error", err)
	}
	return nil
}

// resolveForDiversity returns the credentials to fan out over. Credential
// absence is reported as an empty slice, never an error.
func (o *Orchestrator) resolveForDiversity(ctx context.Context, mode DiversityMode) ([]credentials.Credential, error) {
	if mode == DiversityMulti {
		return o.resolver.ResolveAll(ctx, o.priority), nil
	}
	cred, err := o.resolver.Resolve(ctx, o.priority)
	if errors.Is(err, credentials.ErrNoCredentials) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []credentials.Credential{cred}, nil
}
