/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"fmt"

	"chainguard.dev/codeloom/promptbuilder"
)

// Role identifies the specialty a stage runs as.
type Role string

const (
	RoleArchitect Role = "architect"
	RoleEngineer  Role = "engineer"
	RoleReviewer  Role = "reviewer"
)

var rolePrompts = map[Role]*promptbuilder.Template{
	RoleArchitect: promptbuilder.Must(promptbuilder.New(
		`You are a software architect. Break the user's request into a concrete
technical plan: the components to build, their responsibilities, and the
order to build them in. Be specific and brief; the plan is handed to an
engineer who implements it verbatim.

Context:
{{context}}`)),

	RoleEngineer: promptbuilder.Must(promptbuilder.New(
		`You are a software engineer. Implement the plan you are given exactly,
producing complete, working code. Note any deviation from the plan and why.

Context:
{{context}}`)),

	RoleReviewer: promptbuilder.Must(promptbuilder.New(
		`You are a code reviewer. Review the implementation against the original
request and the plan. Report defects, risks, and a final verdict.

Context:
{{context}}`)),
}

// stageContext is the structured context injected into every role prompt.
type stageContext struct {
	Request       string `yaml:"request"`
	PreviousStage string `yaml:"previous_stage,omitempty"`
	PreviousWork  string `yaml:"previous_output,omitempty"`
}

// systemPrompt renders the role's system prompt with the stage context
// bound as YAML.
func systemPrompt(role Role, sc stageContext) (string, error) {
	tmpl, ok := rolePrompts[role]
	if !ok {
		return "", fmt.Errorf("no prompt for role %q", role)
	}
	bound, err := tmpl.BindYAML("context", sc)
	if err != nil {
		return "", fmt.Errorf("binding %s context: %w", role, err)
	}
	return bound.Render()
}

// defaultPlan is the fixed stage order for a multi-step request. The
// architect and engineer gate on approval; the reviewer is final and
// auto-completes.
func defaultPlan() []Stage {
	return []Stage{
		{
			Role:             RoleArchitect,
			TaskType:         "planning",
			Title:            "Architecture plan",
			Description:      "Break the request into a concrete technical plan.",
			RequiresApproval: true,
		},
		{
			Role:             RoleEngineer,
			TaskType:         "implementation",
			Title:            "Implementation",
			Description:      "Implement the approved plan as complete, working code.",
			RequiresApproval: true,
		},
		{
			Role:        RoleReviewer,
			TaskType:    "review",
			Title:       "Code review",
			Description: "Review the implementation against the request and the plan.",
		},
	}
}
