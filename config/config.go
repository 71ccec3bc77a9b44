/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/codeloom/provider"
	"github.com/sethvargo/go-envconfig"
)

// Settings are the environment-derived knobs of the completion core.
type Settings struct {
	// ProviderPriority is the comma-separated fallback order used when
	// resolving credentials. Defaults to anthropic,openai,google.
	ProviderPriority string `env:"CODELOOM_PROVIDER_PRIORITY"`

	// VariantCount is the default number of variant generations.
	VariantCount int `env:"CODELOOM_VARIANT_COUNT,default=3"`

	// MaxTokens caps completion output when the caller does not set one.
	MaxTokens int64 `env:"CODELOOM_MAX_TOKENS,default=4096"`

	// Temperature, when non-negative, is passed to every completion.
	// The default of -1 leaves sampling to each provider.
	Temperature float64 `env:"CODELOOM_TEMPERATURE,default=-1"`
}

// Load processes settings from the environment and validates them.
func Load(ctx context.Context) (*Settings, error) {
	var s Settings
	if err := envconfig.Process(ctx, &s); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	if s.ProviderPriority == "" {
		s.ProviderPriority = "anthropic,openai,google"
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks internal consistency.
func (s *Settings) Validate() error {
	if s.VariantCount < 1 {
		return fmt.Errorf("variant count must be at least 1, got %d", s.VariantCount)
	}
	if s.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be at least 1, got %d", s.MaxTokens)
	}
	for _, id := range s.Priority() {
		if !id.Known() {
			return fmt.Errorf("unknown provider %q in priority list", id)
		}
	}
	return nil
}

// Priority parses the provider priority list, preserving order and
// skipping empty entries.
func (s *Settings) Priority() []provider.ID {
	var out []provider.ID
	for _, part := range strings.Split(s.ProviderPriority, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, provider.ID(part))
		}
	}
	return out
}
