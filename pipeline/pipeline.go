/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle state of a pipeline.
type Status string

const (
	StatusPending          Status = "pending"
	StatusRunning          Status = "running"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
	StatusCancelled        Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// validTransition encodes the status state machine. Cancellation is
// reachable from every non-terminal state.
func validTransition(from, to Status) bool {
	if to == StatusCancelled {
		return !from.Terminal()
	}
	switch from {
	case StatusPending:
		return to == StatusRunning
	case StatusRunning:
		return to == StatusAwaitingApproval || to == StatusCompleted || to == StatusFailed
	case StatusAwaitingApproval:
		return to == StatusRunning
	}
	return false
}

// Stage is one step of a pipeline plan. Stages are fixed at creation.
type Stage struct {
	// Role selects the stage's system prompt and display name.
	Role Role
	// TaskType classifies the work the stage performs.
	TaskType string
	// Title and Description label the stage for readers of the plan.
	Title       string
	Description string
	// RequiresApproval pauses the pipeline after this stage until the user
	// approves, unless it is the final stage.
	RequiresApproval bool

	// MessageID is the conversation message owning this stage's streamed
	// output, set when execution begins.
	MessageID string
	// Output is the stage's final text, set on success.
	Output string
}

// Pipeline is the orchestrator's mutable record of one multi-stage run.
// It is owned exclusively by the orchestrator; external readers get
// Snapshot copies.
type Pipeline struct {
	mu sync.Mutex

	id          string
	threadID    string
	request     string
	name        string
	description string
	stages      []Stage
	current     int
	status      Status

	createdAt   time.Time
	updatedAt   time.Time
	completedAt time.Time

	// failure details, set when status becomes failed
	err         string
	failedStage int
}

// Snapshot is a read-only copy of a pipeline's state. CompletedAt is zero
// until the pipeline reaches a terminal status.
type Snapshot struct {
	ID          string
	ThreadID    string
	Request     string
	Name        string
	Description string
	Stages      []Stage
	Current     int
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
	Err         string
	FailedStage int
}

func newPipeline(id, threadID, request string, stages []Stage) *Pipeline {
	now := time.Now()
	return &Pipeline{
		id:          id,
		threadID:    threadID,
		request:     request,
		name:        pipelineName(request),
		description: request,
		stages:      stages,
		status:      StatusPending,
		createdAt:   now,
		updatedAt:   now,
		failedStage: -1,
	}
}

// pipelineName derives a short display name from the request text.
func pipelineName(request string) string {
	const limit = 60
	if len(request) <= limit {
		return request
	}
	return request[:limit] + "..."
}

// transition moves the pipeline to the given status, rejecting moves the
// state machine does not allow.
func (p *Pipeline) transition(to Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !validTransition(p.status, to) {
		return fmt.Errorf("invalid pipeline transition %s -> %s", p.status, to)
	}
	p.status = to
	p.touch()
	return nil
}

func (p *Pipeline) fail(stage int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !validTransition(p.status, StatusFailed) {
		return
	}
	p.status = StatusFailed
	p.failedStage = stage
	p.err = err.Error()
	p.touch()
}

// touch stamps updatedAt, and completedAt on reaching a terminal status.
// Callers hold p.mu.
func (p *Pipeline) touch() {
	p.updatedAt = time.Now()
	if p.status.Terminal() && p.completedAt.IsZero() {
		p.completedAt = p.updatedAt
	}
}

func (p *Pipeline) setStage(i int, messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = i
	p.stages[i].MessageID = messageID
	p.updatedAt = time.Now()
}

func (p *Pipeline) setOutput(i int, output string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages[i].Output = output
	p.updatedAt = time.Now()
}

// Status returns the pipeline's current status.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Snapshot returns a copy of the pipeline's state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	stages := make([]Stage, len(p.stages))
	copy(stages, p.stages)
	return Snapshot{
		ID:          p.id,
		ThreadID:    p.threadID,
		Request:     p.request,
		Name:        p.name,
		Description: p.description,
		Stages:      stages,
		Current:     p.current,
		Status:      p.status,
		CreatedAt:   p.createdAt,
		UpdatedAt:   p.updatedAt,
		CompletedAt: p.completedAt,
		Err:         p.err,
		FailedStage: p.failedStage,
	}
}
