package synth

import (
	"context"
	"fmt"
	"os"
)

// MockEngine is a scriptable Engine for tests. It writes a small fake
// artifact on success and records every request it receives.
type MockEngine struct {
	// FailTexts maps exact chunk text to a forced failure.
	FailTexts map[string]error
	// Err, when set, fails every invocation.
	Err error

	// Calls records requests in invocation order.
	Calls []SynthRequest
}

// NewMockEngine creates a mock engine that succeeds on everything.
func NewMockEngine() *MockEngine {
	return &MockEngine{FailTexts: make(map[string]error)}
}

// Name implements Engine.
func (e *MockEngine) Name() string { return "mock" }

// Synthesize implements Engine. The artifact content encodes the chunk
// text so assembly order can be asserted in tests.
func (e *MockEngine) Synthesize(_ context.Context, req SynthRequest) error {
	e.Calls = append(e.Calls, req)

	if e.Err != nil {
		return e.Err
	}
	if err, ok := e.FailTexts[req.Text]; ok {
		return err
	}

	content := fmt.Sprintf("AUDIO[%s|%s]", req.Language, req.Text)
	if err := os.WriteFile(req.OutputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("mock artifact write: %w", err)
	}
	return nil
}

// CallCount reports how many synthesis invocations were made.
func (e *MockEngine) CallCount() int { return len(e.Calls) }
