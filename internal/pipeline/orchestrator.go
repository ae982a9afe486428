package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// StageSpec pairs a stage with its caller-supplied skip flag.
type StageSpec struct {
	Stage *Stage
	Skip  bool
}

// NamedResult is one entry of the result tree, in execution order.
type NamedResult struct {
	ID string
	StageResult
}

// RunResult is the orchestrator's aggregate outcome. Success is true
// only if every stage either succeeded or was explicitly skipped.
type RunResult struct {
	Started   time.Time
	Completed time.Time
	Stages    []NamedResult
	Success   bool
}

// Lookup returns the result recorded for a stage ID.
func (r *RunResult) Lookup(id string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.ID == id {
			return s.StageResult, true
		}
	}
	return StageResult{}, false
}

// Orchestrator runs the fixed stage sequence, honoring skip flags and
// short-circuiting downstream stages when a prerequisite fails. It
// exclusively owns the result tree.
type Orchestrator struct {
	runner *StageRunner
	logger *log.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(logger *log.Logger) *Orchestrator {
	return &Orchestrator{runner: NewStageRunner(logger), logger: logger}
}

// Run executes the specs in order. A skipped stage is recorded as
// vacuously successful so later stages still run. A stage whose
// prerequisite failed is recorded as blocked with the upstream reason
// and its action is never invoked. Run always returns a complete
// result tree, even when ctx is canceled mid-sequence.
func (o *Orchestrator) Run(ctx context.Context, specs []StageSpec) *RunResult {
	result := &RunResult{Started: time.Now(), Success: true}

	blocked := false
	var blockReason string

	for _, spec := range specs {
		stage := spec.Stage

		switch {
		case spec.Skip:
			o.logger.Info("Stage skipped by request", "stage", stage.ID)
			stage.settle(StatusSkipped, StageResult{
				Success: true,
				Details: "skipped by request",
			})

		case blocked:
			o.logger.Warn("Stage blocked by earlier failure",
				"stage", stage.ID, "reason", blockReason)
			stage.settle(StatusBlocked, StageResult{
				Details: "not run: " + blockReason,
			})

		default:
			res := o.runner.Run(ctx, stage)
			if !res.Success {
				blocked = true
				blockReason = fmt.Sprintf("stage %s failed: %s", stage.ID, res.Details)
			}
		}

		res := stage.Result()
		if !res.Success {
			result.Success = false
		}
		result.Stages = append(result.Stages, NamedResult{ID: stage.ID, StageResult: res})
	}

	result.Completed = time.Now()
	if result.Success {
		o.logger.Info("Pipeline completed successfully", "stages", len(result.Stages))
	} else {
		o.logger.Error("Pipeline completed with errors", "stages", len(result.Stages))
	}
	return result
}
