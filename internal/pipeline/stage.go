// Package pipeline sequences the fixed synthesis pipeline: validate
// reference audio, prepare texts, synthesize, post-process, report.
package pipeline

import (
	"context"
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	// StatusSkipped marks a stage the caller opted out of; it counts as
	// vacuously successful so downstream stages still run.
	StatusSkipped Status = "skipped"
	// StatusBlocked marks a stage that never ran because a prerequisite
	// stage failed.
	StatusBlocked Status = "blocked"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusSkipped, StatusBlocked:
		return true
	}
	return false
}

// Duration marshals as a human-readable string in the report.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// StageResult is the immutable outcome of one stage execution. It is
// owned by the orchestrator's result tree.
type StageResult struct {
	Success bool     `json:"success"`
	Status  Status   `json:"status"`
	Details string   `json:"details,omitempty"`
	Stdout  string   `json:"stdout,omitempty"`
	Stderr  string   `json:"stderr,omitempty"`
	Elapsed Duration `json:"elapsed,omitempty"`
}

// Action is one stage's unit of work. The returned detail is recorded
// in the result tree on success and failure alike.
type Action func(ctx context.Context) (detail string, err error)

// Stage is a named unit of pipeline work with a timeout budget. A
// stage is constructed once per run and executed at most once.
type Stage struct {
	ID      string
	Action  Action
	Timeout time.Duration

	status Status
	result StageResult
}

// NewStage constructs a pending stage.
func NewStage(id string, timeout time.Duration, action Action) *Stage {
	return &Stage{ID: id, Action: action, Timeout: timeout, status: StatusPending}
}

// Status returns the stage's current lifecycle state.
func (s *Stage) Status() Status { return s.status }

// Result returns the recorded result; only meaningful once the stage
// reached a terminal status.
func (s *Stage) Result() StageResult { return s.result }

// settle records a terminal outcome. Terminal states are final.
func (s *Stage) settle(status Status, result StageResult) {
	if s.status.Terminal() {
		return
	}
	result.Status = status
	s.status = status
	s.result = result
}
