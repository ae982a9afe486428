package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voiceforge/internal/runner"
)

// StageRunner executes one stage under its timeout and classifies the
// outcome. It never panics outward; every execution yields exactly one
// StageResult.
type StageRunner struct {
	logger *log.Logger
}

// NewStageRunner creates a stage runner that logs through the given
// logger.
func NewStageRunner(logger *log.Logger) *StageRunner {
	return &StageRunner{logger: logger}
}

// Run drives the stage through Pending -> Running -> terminal. A stage
// already in a terminal state is not re-entered; its recorded result is
// returned.
func (r *StageRunner) Run(ctx context.Context, stage *Stage) StageResult {
	if stage.Status().Terminal() {
		return stage.Result()
	}

	if stage.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, stage.Timeout)
		defer cancel()
	}

	r.logger.Info("Stage started", "stage", stage.ID, "timeout", stage.Timeout)
	stage.status = StatusRunning
	start := time.Now()

	detail, err := r.invoke(ctx, stage)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		stage.settle(StatusSucceeded, StageResult{
			Success: true,
			Details: detail,
			Elapsed: Duration(elapsed),
		})
		r.logger.Info("Stage succeeded", "stage", stage.ID, "duration", elapsed)

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, runner.ErrTimeout):
		stage.settle(StatusTimedOut, StageResult{
			Details: fmt.Sprintf("timed out after %v: %v", stage.Timeout, err),
			Elapsed: Duration(elapsed),
		})
		r.logger.Error("Stage timed out", "stage", stage.ID, "timeout", stage.Timeout)

	default:
		// Cancellation aborts the stage as a failure, not a crash; the
		// orchestrator still gets a result to report.
		stage.settle(StatusFailed, StageResult{
			Details: joinDetail(detail, err),
			Elapsed: Duration(elapsed),
		})
		r.logger.Error("Stage failed", "stage", stage.ID, "duration", elapsed, "error", err)
	}

	return stage.Result()
}

// invoke runs the stage action, converting a panic into an error.
func (r *StageRunner) invoke(ctx context.Context, stage *Stage) (detail string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stage %s panicked: %v", stage.ID, rec)
		}
	}()
	return stage.Action(ctx)
}

func joinDetail(detail string, err error) string {
	if detail == "" {
		return err.Error()
	}
	return detail + ": " + err.Error()
}
