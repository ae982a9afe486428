package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voiceforge/internal/audio"
	"github.com/dgnsrekt/voiceforge/internal/cache"
	"github.com/dgnsrekt/voiceforge/internal/config"
	"github.com/dgnsrekt/voiceforge/internal/pipeline"
	"github.com/dgnsrekt/voiceforge/internal/runner"
	"github.com/dgnsrekt/voiceforge/internal/synth"
	"github.com/dgnsrekt/voiceforge/internal/text"
)

// skips holds the caller's per-stage opt-outs.
type skips struct {
	validate    bool
	prepare     bool
	synthesize  bool
	postProcess bool
}

// Stage identifiers, fixed across the report format.
const (
	stageValidate    = "validate"
	stagePrepare     = "prepare"
	stageSynthesize  = "synthesize"
	stagePostProcess = "post_process"
)

// newEngine selects the synthesis engine from the --engine flag.
func newEngine(run runner.Runner, cfg config.Config, logger *log.Logger) (synth.Engine, error) {
	switch engineName {
	case "", "xtts":
		e := synth.NewXTTSEngine(run, "", "", cfg.SynthTimeout, logger)
		if err := e.Available(); err != nil {
			logger.Warn("tts binary not found in PATH; synthesis will fail", "error", err)
		}
		return e, nil
	case "mock":
		return synth.NewMockEngine(), nil
	default:
		return nil, fmt.Errorf("unknown engine %q: must be xtts or mock", engineName)
	}
}

// runPipeline assembles the components and drives the fixed stage
// sequence. It always writes a report, then returns an error when any
// executed stage failed so the process exits non-zero.
func runPipeline(cfg config.Config, sk skips, logger *log.Logger, logPath string) error {
	// SIGINT aborts the in-flight stage; the report is still written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	execRun := runner.NewExecRunner(cfg.SynthTimeout)
	engine, err := newEngine(execRun, cfg, logger)
	if err != nil {
		return err
	}
	if cfg.CacheDir != "" {
		store, err := cache.Open(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("open synthesis cache: %w", err)
		}
		engine = synth.NewCachedEngine(engine, store, logger)
	}

	assembler := audio.NewAssembler(execRun, "ffmpeg", cfg.MergeTimeout, logger)
	processor := audio.NewProcessor(execRun, "ffmpeg", cfg.MergeTimeout, logger)
	jobs := synth.NewJobRunner(engine, assembler, synth.JobConfig{
		ReferenceAudio: cfg.ReferenceAudio,
		TextsDir:       cfg.TextsDir,
		OutputDir:      cfg.OutputDir,
		Voice:          cfg.Voice,
		MaxChunkLen:    cfg.MaxChunkLen,
		ParagraphMode:  text.ParagraphMode(cfg.ParagraphMode),
		ChunkPolicy:    cfg.ChunkPolicy,
	}, logger)

	logger.Info("Starting voice cloning pipeline",
		"languages", strings.Join(cfg.Languages, ","),
		"output", cfg.OutputDir)

	// Collected by the synthesis stage for the report.
	var languageResults []synth.LanguageResult

	specs := []pipeline.StageSpec{
		{
			Skip: sk.validate,
			Stage: pipeline.NewStage(stageValidate, cfg.SynthTimeout, func(ctx context.Context) (string, error) {
				info, err := audio.ValidateReference(cfg.ReferenceAudio, logger)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("reference audio OK: %s", info.Path), nil
			}),
		},
		{
			Skip: sk.prepare,
			Stage: pipeline.NewStage(stagePrepare, cfg.SynthTimeout, func(ctx context.Context) (string, error) {
				return checkTexts(cfg, logger)
			}),
		},
		{
			Skip: sk.synthesize,
			Stage: pipeline.NewStage(stageSynthesize, 0, func(ctx context.Context) (string, error) {
				results, err := jobs.RunAll(ctx, cfg.Languages)
				languageResults = results
				if err != nil {
					return "", err
				}
				return summarizeLanguages(results)
			}),
		},
		{
			Skip: sk.postProcess,
			Stage: pipeline.NewStage(stagePostProcess, 0, func(ctx context.Context) (string, error) {
				ops := audio.BuildOperations(
					cfg.Post.Normalize, cfg.Post.TargetDBFS,
					cfg.Post.Fade, cfg.Post.FadeDuration,
					cfg.Post.TrimSilence, cfg.Post.SilenceThreshold, cfg.Post.MinSilenceLen,
					cfg.Post.Format, cfg.Post.Bitrate)
				if len(ops) == 0 {
					return "no post-processing operations configured", nil
				}
				if err := processor.ProcessDir(ctx, cfg.OutputDir, ops); err != nil {
					return "", err
				}
				return fmt.Sprintf("applied %d operations", len(ops)), nil
			}),
		},
	}

	orch := pipeline.NewOrchestrator(logger)
	run := orch.Run(ctx, specs)

	report := pipeline.BuildReport(cfg, run, languageResults, logPath)
	reportPath, reportErr := pipeline.WriteReport(report)
	if reportErr != nil {
		logger.Error("Could not write pipeline report", "error", reportErr)
	} else {
		logger.Info("Report generated", "path", reportPath)
	}

	if !run.Success {
		fmt.Fprintln(os.Stderr, "\nPipeline completed with errors!")
		fmt.Fprintf(os.Stderr, "Log file: %s\n", logPath)
		return errors.New("pipeline completed with errors")
	}

	fmt.Println("\nPipeline completed successfully!")
	fmt.Printf("Output directory: %s\n", cfg.OutputDir)
	fmt.Printf("Log file: %s\n", logPath)
	return reportErr
}

// checkTexts verifies the texts directory and per-language files. The
// stage fails only when nothing at all can be synthesized; individual
// missing or empty files are reported and resolved per language during
// synthesis.
func checkTexts(cfg config.Config, logger *log.Logger) (string, error) {
	if _, err := os.Stat(cfg.TextsDir); err != nil {
		return "", fmt.Errorf("texts directory does not exist: %s", cfg.TextsDir)
	}

	var usable, problems []string
	for _, lang := range cfg.Languages {
		path := filepath.Join(cfg.TextsDir, lang+".txt")
		data, err := os.ReadFile(path)
		switch {
		case err != nil:
			logger.Warn("Text file not found", "language", lang, "path", path)
			problems = append(problems, lang+": missing")
		case strings.TrimSpace(string(data)) == "":
			logger.Warn("Text file is empty", "language", lang, "path", path)
			problems = append(problems, lang+": empty")
		default:
			logger.Info("Found text file", "language", lang, "path", path)
			usable = append(usable, lang)
		}
	}

	if len(usable) == 0 {
		return "", fmt.Errorf("no usable text files for languages %s", strings.Join(cfg.Languages, ","))
	}
	if len(problems) > 0 {
		return fmt.Sprintf("%d of %d languages ready (%s)",
			len(usable), len(cfg.Languages), strings.Join(problems, ", ")), nil
	}
	return fmt.Sprintf("all %d languages ready", len(usable)), nil
}

// summarizeLanguages reduces per-language results to the stage
// outcome: the stage fails when any requested language failed, but the
// partial artifacts of the successful ones remain.
func summarizeLanguages(results []synth.LanguageResult) (string, error) {
	var ok, failed []string
	for _, r := range results {
		if r.Success {
			ok = append(ok, r.Language)
		} else {
			failed = append(failed, r.Language)
		}
	}
	detail := fmt.Sprintf("%d of %d languages succeeded", len(ok), len(results))
	if len(failed) > 0 {
		return detail, fmt.Errorf("languages failed: %s", strings.Join(failed, ", "))
	}
	return detail, nil
}
