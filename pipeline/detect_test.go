/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import "testing"

func TestIsMultiStepRequest(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{{
		text: "build an app that tracks my reading list",
		want: true,
	}, {
		text: "Implement the feature we discussed",
		want: true,
	}, {
		text: "CREATE A WEBSITE FOR MY BAND",
		want: true,
	}, {
		text: "please develop a small CLI for this",
		want: true,
	}, {
		text: "make me a tool to rename files",
		want: true,
	}, {
		text: "what does this error mean?",
		want: false,
	}, {
		text: "fix the typo in the readme",
		want: false,
	}, {
		// Noun before the verb does not trigger.
		text: "the app needs you to create",
		want: false,
	}, {
		// Substrings inside words do not trigger.
		text: "rebuild the snapplication",
		want: false,
	}, {
		text: "",
		want: false,
	}}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := IsMultiStepRequest(tt.text); got != tt.want {
				t.Errorf("IsMultiStepRequest(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
