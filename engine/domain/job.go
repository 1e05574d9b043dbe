package domain

import "encoding/json"

// JobStatus is the user-facing status vocabulary of an async story job.
type JobStatus string

const (
	StatusProcessing JobStatus = "processando"
	StatusCompleted  JobStatus = "concluido"
	StatusError      JobStatus = "erro"
	StatusTimeout    JobStatus = "timeout"
	StatusCancelled  JobStatus = "cancelado"
	StatusUnknown    JobStatus = "desconhecido"
)

// Orchestrator-native execution states.
const (
	ExecutionRunning   = "RUNNING"
	ExecutionSucceeded = "SUCCEEDED"
	ExecutionFailed    = "FAILED"
	ExecutionTimedOut  = "TIMED_OUT"
	ExecutionAborted   = "ABORTED"
)

// MapExecutionStatus maps a native execution state to a JobStatus.
// Unrecognized states map to StatusUnknown.
func MapExecutionStatus(native string) JobStatus {
	switch native {
	case ExecutionRunning:
		return StatusProcessing
	case ExecutionSucceeded:
		return StatusCompleted
	case ExecutionFailed:
		return StatusError
	case ExecutionTimedOut:
		return StatusTimeout
	case ExecutionAborted:
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

// Job is the pollable view of an async story request.
type Job struct {
	ID     string          `json:"pedido_id"`
	Status JobStatus       `json:"status"`
	Result json.RawMessage `json:"resultado"`
}
