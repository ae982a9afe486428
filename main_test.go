package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/dgnsrekt/voiceforge/internal/audio"
	"github.com/dgnsrekt/voiceforge/internal/config"
	"github.com/dgnsrekt/voiceforge/internal/pipeline"
)

func writeReferenceWav(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		SourceBitDepth: 16,
		Data:           make([]int, 1600),
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

// pipelineFixture builds a workspace with a valid reference and one
// short text per language; short enough for a single chunk so assembly
// is a rename, not an ffmpeg call.
func pipelineFixture(t *testing.T, languages []string) config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.ReferenceAudio = filepath.Join(dir, "ref.wav")
	cfg.TextsDir = filepath.Join(dir, "texts")
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.Languages = languages

	writeReferenceWav(t, cfg.ReferenceAudio)
	if err := os.MkdirAll(cfg.TextsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, lang := range languages {
		content := "A short sentence for " + lang + "."
		if err := os.WriteFile(filepath.Join(cfg.TextsDir, lang+".txt"), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func quietLogger() *log.Logger {
	logger := log.New(io.Discard)
	logger.SetLevel(log.FatalLevel)
	return logger
}

func useMockEngine(t *testing.T) {
	t.Helper()
	prev := engineName
	engineName = "mock"
	t.Cleanup(func() { engineName = prev })
}

func readReport(t *testing.T, outputDir string) pipeline.Report {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outputDir, pipeline.ReportFileName))
	if err != nil {
		t.Fatalf("Report not written: %v", err)
	}
	var rep pipeline.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("Report not parseable: %v", err)
	}
	return rep
}

func TestResolvePostFlagsFadeDurationSeconds(t *testing.T) {
	if err := postProcessCmd.Flags().Set("fade", "true"); err != nil {
		t.Fatal(err)
	}
	if err := postProcessCmd.Flags().Set("fade-duration", "1.5"); err != nil {
		t.Fatal(err)
	}

	post := resolvePostFlags(postProcessCmd, config.Default().Post)
	if !post.Fade {
		t.Fatal("Expected fade enabled")
	}
	if post.FadeDuration != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s fade, got %v", post.FadeDuration)
	}

	ops := audio.BuildOperations(post.Normalize, post.TargetDBFS,
		post.Fade, post.FadeDuration,
		post.TrimSilence, post.SilenceThreshold, post.MinSilenceLen,
		post.Format, post.Bitrate)
	var fadeOp *audio.Operation
	for i := range ops {
		if ops[i].Kind == audio.OpFade {
			fadeOp = &ops[i]
		}
	}
	if fadeOp == nil || fadeOp.FadeDuration != 1500*time.Millisecond {
		t.Errorf("Expected fade operation with 1.5s duration, got %+v", ops)
	}
}

func TestDefaultConfigTemplateLoads(t *testing.T) {
	// The template `voiceforge config` writes must load back with its
	// documented durations intact.
	dir := t.TempDir()
	path := filepath.Join(dir, "voiceforge.yml")
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Template config failed to load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Template config failed validation: %v", err)
	}
	if cfg.Post.FadeDuration != time.Second {
		t.Errorf("Expected 1s fade from template, got %v", cfg.Post.FadeDuration)
	}
	if cfg.Post.MinSilenceLen != 500*time.Millisecond {
		t.Errorf("Expected 500ms silence window from template, got %v", cfg.Post.MinSilenceLen)
	}
	if cfg.SynthTimeout != 5*time.Minute {
		t.Errorf("Expected 5m synth timeout from template, got %v", cfg.SynthTimeout)
	}
}

func TestEngineResolvesThroughEnvironment(t *testing.T) {
	t.Setenv("VOICEFORGE_ENGINE", "mock")
	t.Setenv("VOICEFORGE_DEBUG", "true")

	prevEngine, prevDebug := engineName, debug
	t.Cleanup(func() { engineName, debug = prevEngine, prevDebug })

	rootCmd.PersistentPreRun(rootCmd, nil)
	if engineName != "mock" {
		t.Errorf("Expected engine from environment, got %q", engineName)
	}
	if !debug {
		t.Error("Expected debug from environment")
	}
}

func TestCheckTextsFindsPerLanguageFiles(t *testing.T) {
	cfg := pipelineFixture(t, []string{"fr", "de"})

	detail, err := checkTexts(cfg, quietLogger())
	if err != nil {
		t.Fatalf("Expected usable texts, got %v", err)
	}
	if detail != "all 2 languages ready" {
		t.Errorf("Expected all languages ready, got %q", detail)
	}

	if err := os.Remove(filepath.Join(cfg.TextsDir, "de.txt")); err != nil {
		t.Fatal(err)
	}
	detail, err = checkTexts(cfg, quietLogger())
	if err != nil {
		t.Fatalf("Expected partial success, got %v", err)
	}
	if !strings.Contains(detail, "de: missing") {
		t.Errorf("Expected missing language in detail, got %q", detail)
	}
}

func TestRunPipelineAllLanguagesSucceed(t *testing.T) {
	useMockEngine(t)
	cfg := pipelineFixture(t, []string{"fr", "de"})

	err := runPipeline(cfg, skips{postProcess: true}, quietLogger(), "test.log")
	if err != nil {
		t.Fatalf("Expected clean run, got: %v", err)
	}

	for _, lang := range cfg.Languages {
		final := filepath.Join(cfg.OutputDir, lang+"_cloned.wav")
		if _, err := os.Stat(final); err != nil {
			t.Errorf("Expected final artifact %s", final)
		}
	}

	rep := readReport(t, cfg.OutputDir)
	for _, stage := range []string{"validate", "prepare", "synthesize"} {
		res, ok := rep.Results[stage]
		if !ok || !res.Success {
			t.Errorf("Stage %s should be recorded successful, got %+v", stage, res)
		}
	}
	if res := rep.Results["post_process"]; res.Status != pipeline.StatusSkipped {
		t.Errorf("Expected post_process skipped, got %s", res.Status)
	}
	for _, lr := range rep.Languages {
		if !lr.Success {
			t.Errorf("Language %s should succeed: %s", lr.Language, lr.Detail)
		}
	}
}

func TestRunPipelineMissingReferenceBlocksEverything(t *testing.T) {
	useMockEngine(t)
	cfg := pipelineFixture(t, []string{"fr"})
	cfg.ReferenceAudio = filepath.Join(t.TempDir(), "missing.wav")

	err := runPipeline(cfg, skips{postProcess: true}, quietLogger(), "test.log")
	if err == nil {
		t.Fatal("Expected pipeline failure")
	}

	rep := readReport(t, cfg.OutputDir)
	if rep.Results["validate"].Status != pipeline.StatusFailed {
		t.Errorf("Expected validate failed, got %s", rep.Results["validate"].Status)
	}
	for _, stage := range []string{"prepare", "synthesize"} {
		res := rep.Results[stage]
		if res.Status != pipeline.StatusBlocked {
			t.Errorf("Expected %s blocked, got %s", stage, res.Status)
		}
		if !strings.Contains(res.Details, "validate") {
			t.Errorf("Blocked %s should name the failed stage, got %q", stage, res.Details)
		}
	}
}

func TestRunPipelineLanguageFailureIsIsolated(t *testing.T) {
	useMockEngine(t)
	cfg := pipelineFixture(t, []string{"fr", "de"})
	// de loses its text file after fixture setup.
	if err := os.Remove(filepath.Join(cfg.TextsDir, "de.txt")); err != nil {
		t.Fatal(err)
	}

	err := runPipeline(cfg, skips{postProcess: true}, quietLogger(), "test.log")
	if err == nil {
		t.Fatal("Expected failure when a language cannot be synthesized")
	}

	// The healthy language still produced its artifact.
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "fr_cloned.wav")); err != nil {
		t.Error("fr artifact should exist despite de failing")
	}

	rep := readReport(t, cfg.OutputDir)
	if rep.Results["synthesize"].Status != pipeline.StatusFailed {
		t.Errorf("Expected synthesize failed, got %s", rep.Results["synthesize"].Status)
	}

	byLang := map[string]bool{}
	for _, lr := range rep.Languages {
		byLang[lr.Language] = lr.Success
	}
	if !byLang["fr"] {
		t.Error("fr should be reported successful")
	}
	if byLang["de"] {
		t.Error("de should be reported failed")
	}
}

func TestRunPipelineSkipSynthesis(t *testing.T) {
	useMockEngine(t)
	cfg := pipelineFixture(t, []string{"fr"})

	err := runPipeline(cfg, skips{synthesize: true, postProcess: true}, quietLogger(), "test.log")
	if err != nil {
		t.Fatalf("Expected clean run, got: %v", err)
	}

	rep := readReport(t, cfg.OutputDir)
	if rep.Results["synthesize"].Status != pipeline.StatusSkipped {
		t.Errorf("Expected synthesize skipped, got %s", rep.Results["synthesize"].Status)
	}
	if len(rep.Languages) != 0 {
		t.Errorf("Skipped synthesis should record no language results, got %d", len(rep.Languages))
	}
}
