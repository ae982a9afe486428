// Package synth dispatches per-chunk synthesis jobs to an external
// voice-cloning engine and resolves each language's chunk outputs into
// one final artifact.
package synth

import "context"

// SynthRequest describes one synthesis invocation: one text chunk, one
// output artifact.
type SynthRequest struct {
	Text           string
	Language       string
	ReferenceAudio string
	OutputPath     string
}

// Engine is the external speech-synthesis service. Implementations
// write an audio artifact to OutputPath on success. The engine is a
// black box with a timeout contract; everything else about the
// acoustic model is opaque to this package.
type Engine interface {
	// Name identifies the engine in logs and reports.
	Name() string
	// Synthesize runs one synthesis invocation, bounded by ctx.
	Synthesize(ctx context.Context, req SynthRequest) error
}
