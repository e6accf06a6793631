package domain

import "time"

// SagaStatus is the terminal outcome of a saga run.
type SagaStatus string

const (
	SagaCommitted SagaStatus = "committed"
	SagaAborted   SagaStatus = "aborted"
)

// StepStatus is the outcome of a single saga step.
type StepStatus string

const (
	StepProgress StepStatus = "progress" // Produced a follow-up event
	StepFailed   StepStatus = "failed"
	StepDone     StepStatus = "done" // Last step; chain complete
)

// StepRecord describes one executed step.
type StepRecord struct {
	Step     string
	Input    string
	Output   string
	Status   StepStatus
	Err      error
	Duration time.Duration
}

// SagaOutcome is the result of running a job. Event is the terminal event:
// the last follow-up on success, the EventSagaAborted sentinel on failure.
type SagaOutcome struct {
	SagaID   string
	Job      string
	Status   SagaStatus
	Event    Event
	Reason   error
	Steps    []StepRecord
	Duration time.Duration
}

// Committed reports whether the run committed its unit of work.
func (o SagaOutcome) Committed() bool {
	return o.Status == SagaCommitted
}
