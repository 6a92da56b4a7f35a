package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"media-converter/internal/mediatypes"
)

// ErrJobAlreadyInProgress is returned when submitting while a job is
// probing or running.
var ErrJobAlreadyInProgress = errors.New("job already in progress")

// ErrClosed is returned when submitting to a closed orchestrator.
var ErrClosed = errors.New("orchestrator closed")

// State is the lifecycle state of the orchestrator's job.
type State string

const (
	StateIdle      State = "idle"
	StateProbing   State = "probing"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Active reports whether a job is in flight.
func (s State) Active() bool {
	return s == StateProbing || s == StateRunning
}

// Terminal reports whether the state ends a job.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// Reason tags why a job failed.
type Reason string

const (
	ReasonEngineSubmissionFailed Reason = "engine_submission_failed"
	ReasonEngineExecutionFailed  Reason = "engine_execution_failed"
)

// Failure describes a failed job.
type Failure struct {
	Reason     Reason
	StatusCode int
	Err        error
}

func (f Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: status %d", f.Reason, f.StatusCode)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Request asks for one operation. A VideoTranscode request carrying a
// Watermark runs as a transcode followed by a watermark overlay of its
// output.
type Request struct {
	Kind      mediatypes.OperationKind
	Source    mediatypes.SourceRef
	Watermark mediatypes.SourceRef
	Quality   mediatypes.AudioQuality
}

// Chained reports whether the request runs as a two-stage chain.
func (r Request) Chained() bool {
	return r.Kind == mediatypes.VideoTranscode && r.Watermark != ""
}

// Handle identifies a submitted job.
type Handle struct {
	ID         string                   `json:"id"`
	Kind       mediatypes.OperationKind `json:"kind"`
	OutputPath string                   `json:"outputPath"`
}

// Job is a snapshot of a job's progress and outcome.
type Job struct {
	ID          string                   `json:"id"`
	Kind        mediatypes.OperationKind `json:"kind"`
	Source      string                   `json:"source"`
	Watermark   string                   `json:"watermark,omitempty"`
	Quality     int                      `json:"quality,omitempty"`
	OutputPath  string                   `json:"outputPath"`
	State       State                    `json:"state"`
	Stage       int                      `json:"stage"`
	Stages      int                      `json:"stages"`
	Progress    float64                  `json:"progress"`
	Percent     int                      `json:"percent"`
	Duration    float64                  `json:"duration,omitempty"`
	StatusCode  int                      `json:"statusCode,omitempty"`
	Reason      Reason                   `json:"reason,omitempty"`
	Error       string                   `json:"error,omitempty"`
	SubmittedAt time.Time                `json:"submittedAt"`
	FinishedAt  time.Time                `json:"finishedAt,omitzero"`
}

// Handle returns the job's handle.
func (j Job) Handle() Handle {
	return Handle{ID: j.ID, Kind: j.Kind, OutputPath: j.OutputPath}
}
