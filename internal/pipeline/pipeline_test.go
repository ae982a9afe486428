package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel)
	return logger
}

func okAction(detail string) Action {
	return func(context.Context) (string, error) { return detail, nil }
}

func failAction(err error) Action {
	return func(context.Context) (string, error) { return "", err }
}

func TestStageRunnerSuccess(t *testing.T) {
	r := NewStageRunner(testLogger())
	stage := NewStage("validate", time.Minute, okAction("all good"))

	res := r.Run(context.Background(), stage)
	if !res.Success || res.Status != StatusSucceeded {
		t.Errorf("Expected succeeded, got %+v", res)
	}
	if res.Details != "all good" {
		t.Errorf("Expected detail recorded, got %q", res.Details)
	}
	if stage.Status() != StatusSucceeded {
		t.Errorf("Expected stage status succeeded, got %s", stage.Status())
	}
}

func TestStageRunnerFailure(t *testing.T) {
	r := NewStageRunner(testLogger())
	stage := NewStage("prepare", time.Minute, failAction(errors.New("texts missing")))

	res := r.Run(context.Background(), stage)
	if res.Success || res.Status != StatusFailed {
		t.Errorf("Expected failed, got %+v", res)
	}
	if res.Details != "texts missing" {
		t.Errorf("Expected error in details, got %q", res.Details)
	}
}

func TestStageRunnerTimeout(t *testing.T) {
	r := NewStageRunner(testLogger())
	stage := NewStage("synthesize", 50*time.Millisecond, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	res := r.Run(context.Background(), stage)
	if res.Status != StatusTimedOut {
		t.Errorf("Expected timed_out, got %s", res.Status)
	}
	if res.Success {
		t.Error("Timed out stage must not be successful")
	}
}

func TestStageRunnerPanicBecomesFailure(t *testing.T) {
	r := NewStageRunner(testLogger())
	stage := NewStage("post_process", time.Minute, func(context.Context) (string, error) {
		panic("unexpected")
	})

	res := r.Run(context.Background(), stage)
	if res.Status != StatusFailed {
		t.Errorf("Expected panic to settle as failed, got %s", res.Status)
	}
}

func TestStageRunsAtMostOnce(t *testing.T) {
	r := NewStageRunner(testLogger())
	calls := 0
	stage := NewStage("validate", time.Minute, func(context.Context) (string, error) {
		calls++
		return "", nil
	})

	first := r.Run(context.Background(), stage)
	second := r.Run(context.Background(), stage)
	if calls != 1 {
		t.Errorf("Expected one invocation, got %d", calls)
	}
	if first != second {
		t.Error("Re-running a settled stage must return the recorded result")
	}
}

func TestOrchestratorAllSucceed(t *testing.T) {
	o := NewOrchestrator(testLogger())
	run := o.Run(context.Background(), []StageSpec{
		{Stage: NewStage("validate", time.Minute, okAction(""))},
		{Stage: NewStage("prepare", time.Minute, okAction(""))},
		{Stage: NewStage("synthesize", 0, okAction(""))},
	})

	if !run.Success {
		t.Error("Expected overall success")
	}
	if len(run.Stages) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(run.Stages))
	}
	for _, s := range run.Stages {
		if s.Status != StatusSucceeded {
			t.Errorf("Stage %s: expected succeeded, got %s", s.ID, s.Status)
		}
	}
}

func TestOrchestratorShortCircuit(t *testing.T) {
	downstreamCalls := 0
	o := NewOrchestrator(testLogger())
	run := o.Run(context.Background(), []StageSpec{
		{Stage: NewStage("validate", time.Minute, failAction(errors.New("no reference audio")))},
		{Stage: NewStage("prepare", time.Minute, func(context.Context) (string, error) {
			downstreamCalls++
			return "", nil
		})},
		{Stage: NewStage("synthesize", 0, func(context.Context) (string, error) {
			downstreamCalls++
			return "", nil
		})},
	})

	if run.Success {
		t.Error("Expected overall failure")
	}
	if downstreamCalls != 0 {
		t.Errorf("Blocked stages must not run, got %d calls", downstreamCalls)
	}

	prepare, ok := run.Lookup("prepare")
	if !ok || prepare.Status != StatusBlocked {
		t.Errorf("Expected prepare blocked, got %+v", prepare)
	}
	if prepare.Details == "" {
		t.Error("Blocked stage must carry the upstream reason")
	}
}

func TestOrchestratorSkipIsVacuousSuccess(t *testing.T) {
	skippedCalls := 0
	o := NewOrchestrator(testLogger())
	run := o.Run(context.Background(), []StageSpec{
		{Stage: NewStage("validate", time.Minute, func(context.Context) (string, error) {
			skippedCalls++
			return "", nil
		}), Skip: true},
		{Stage: NewStage("prepare", time.Minute, okAction(""))},
	})

	if !run.Success {
		t.Error("Skipping must not fail the pipeline")
	}
	if skippedCalls != 0 {
		t.Error("Skipped stage action must not be invoked")
	}

	validate, _ := run.Lookup("validate")
	if validate.Status != StatusSkipped || !validate.Success {
		t.Errorf("Expected skipped vacuous success, got %+v", validate)
	}

	prepare, _ := run.Lookup("prepare")
	if prepare.Status != StatusSucceeded {
		t.Error("Stages after a skip must still run")
	}
}

func TestOrchestratorSkipAfterFailureStaysBlockedFree(t *testing.T) {
	// A skip downstream of a failure is still recorded as skipped, but
	// the run as a whole fails.
	o := NewOrchestrator(testLogger())
	run := o.Run(context.Background(), []StageSpec{
		{Stage: NewStage("validate", time.Minute, failAction(errors.New("boom")))},
		{Stage: NewStage("prepare", time.Minute, okAction("")), Skip: true},
	})

	if run.Success {
		t.Error("Expected overall failure")
	}
	prepare, _ := run.Lookup("prepare")
	if prepare.Status != StatusSkipped {
		t.Errorf("Expected skipped, got %s", prepare.Status)
	}
}

func TestDurationJSON(t *testing.T) {
	d := Duration(90 * time.Second)
	data, err := d.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"1m30s"` {
		t.Errorf("Expected \"1m30s\", got %s", data)
	}

	var back Duration
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatal(err)
	}
	if back != d {
		t.Errorf("Round trip changed value: %v != %v", back, d)
	}
}
