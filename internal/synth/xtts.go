package synth

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voiceforge/internal/runner"
)

// DefaultModel is the multilingual voice-cloning model passed to the
// Coqui TTS CLI.
const DefaultModel = "tts_models/multilingual/multi-dataset/xtts_v2"

// xttsLanguages maps pipeline language codes to XTTS language indexes.
// Unknown codes fall back to English.
var xttsLanguages = map[string]string{
	"en": "en",
	"fr": "fr",
	"de": "de",
	"es": "es",
	"it": "it",
	"sv": "sv",
	"tr": "tr",
}

// XTTSEngine drives the Coqui `tts` command-line tool for voice-cloning
// synthesis. One subprocess per chunk, no internal retry.
type XTTSEngine struct {
	run     runner.Runner
	binary  string
	model   string
	timeout time.Duration
	logger  *log.Logger
}

// NewXTTSEngine creates an engine bound to the given tts binary. An
// empty binary or model selects the defaults.
func NewXTTSEngine(run runner.Runner, binary, model string, timeout time.Duration, logger *log.Logger) *XTTSEngine {
	if binary == "" {
		binary = "tts"
	}
	if model == "" {
		model = DefaultModel
	}
	return &XTTSEngine{run: run, binary: binary, model: model, timeout: timeout, logger: logger}
}

// Name implements Engine.
func (e *XTTSEngine) Name() string { return "xtts" }

// Available checks that the tts binary can be found.
func (e *XTTSEngine) Available() error {
	return runner.LookBinary(e.binary)
}

// Synthesize implements Engine by invoking the tts CLI once.
func (e *XTTSEngine) Synthesize(ctx context.Context, req SynthRequest) error {
	lang, ok := xttsLanguages[req.Language]
	if !ok {
		lang = "en"
	}

	start := time.Now()
	e.logger.Debug("Synthesis started",
		"engine", e.Name(),
		"language", req.Language,
		"textLength", len(req.Text),
		"output", req.OutputPath)

	res, err := e.run.Run(ctx, runner.Request{
		Name: e.binary,
		Args: []string{
			"--text", req.Text,
			"--out_path", req.OutputPath,
			"--model_name", e.model,
			"--speaker_wav", req.ReferenceAudio,
			"--language_idx", lang,
		},
		Timeout: e.timeout,
	})
	if err != nil {
		e.logger.Error("Synthesis failed",
			"engine", e.Name(),
			"language", req.Language,
			"duration", time.Since(start),
			"error", err)
		return fmt.Errorf("synthesize %s chunk: %w", req.Language, err)
	}

	e.logger.Info("Synthesis completed",
		"engine", e.Name(),
		"language", req.Language,
		"textLength", len(req.Text),
		"duration", res.Elapsed,
		"output", req.OutputPath)
	return nil
}
