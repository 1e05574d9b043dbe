// Package jobs runs story requests asynchronously. An Orchestrator accepts
// a request, returns a job id at once and reports the job status on demand.
package jobs

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/WessleyAI/holocron/engine/domain"
)

var (
	ErrJobNotFound    = errors.New("jobs: job not found")
	ErrUnknownBackend = errors.New("jobs: unknown backend")
)

// Backend names.
const (
	BackendNone          = "none"
	BackendNATS          = "nats"
	BackendStepFunctions = "stepfunctions"
)

// Orchestrator submits story jobs and reports their status.
type Orchestrator interface {
	Submit(ctx context.Context, req domain.StoryRequest) (string, error)
	Status(ctx context.Context, id string) (domain.Job, error)
}

// Generator produces a story. *rag.Service satisfies it.
type Generator interface {
	Generate(ctx context.Context, req domain.StoryRequest) (domain.Story, error)
}

// Submission is the message a worker receives for one job.
type Submission struct {
	ID      string              `json:"id"`
	Request domain.StoryRequest `json:"request"`
}

// toJob maps a native execution state to the pollable view. Output is only
// exposed for successful executions.
func toJob(id, native string, output []byte) domain.Job {
	job := domain.Job{ID: id, Status: domain.MapExecutionStatus(native)}
	if job.Status == domain.StatusCompleted && len(output) > 0 && json.Valid(output) {
		job.Result = json.RawMessage(output)
	}
	return job
}
