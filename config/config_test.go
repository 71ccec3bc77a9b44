/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"context"
	"testing"

	"chainguard.dev/codeloom/provider"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.VariantCount != 3 {
		t.Errorf("VariantCount = %d, want 3", s.VariantCount)
	}
	if s.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096", s.MaxTokens)
	}

	priority := s.Priority()
	want := []provider.ID{provider.Anthropic, provider.OpenAI, provider.Google}
	if len(priority) != len(want) {
		t.Fatalf("Priority() = %v, want %v", priority, want)
	}
	for i := range want {
		if priority[i] != want[i] {
			t.Errorf("Priority()[%d] = %q, want %q", i, priority[i], want[i])
		}
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CODELOOM_PROVIDER_PRIORITY", "google, anthropic")
	t.Setenv("CODELOOM_VARIANT_COUNT", "5")

	s, err := Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.VariantCount != 5 {
		t.Errorf("VariantCount = %d, want 5", s.VariantCount)
	}
	priority := s.Priority()
	if len(priority) != 2 || priority[0] != provider.Google || priority[1] != provider.Anthropic {
		t.Errorf("Priority() = %v, want [google anthropic]", priority)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{{
		name: "valid",
		s:    Settings{ProviderPriority: "anthropic", VariantCount: 1, MaxTokens: 100},
	}, {
		name:    "zero variants",
		s:       Settings{ProviderPriority: "anthropic", VariantCount: 0, MaxTokens: 100},
		wantErr: true,
	}, {
		name:    "zero max tokens",
		s:       Settings{ProviderPriority: "anthropic", VariantCount: 1, MaxTokens: 0},
		wantErr: true,
	}, {
		name:    "unknown provider",
		s:       Settings{ProviderPriority: "anthropic,mistral", VariantCount: 1, MaxTokens: 100},
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
