package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgnsrekt/voiceforge/internal/config"
	"github.com/dgnsrekt/voiceforge/internal/synth"
)

// ReportFileName is the fixed report location inside the output
// directory.
const ReportFileName = "pipeline_report.json"

// Report is the persisted run record: configuration snapshot, result
// tree, timestamps, and pointers to the log and output locations.
// Written once at the end of a run, never mutated afterward.
type Report struct {
	Timestamp     string                 `json:"timestamp"`
	Configuration config.Config          `json:"configuration"`
	Results       map[string]StageResult `json:"results"`
	Languages     []synth.LanguageResult `json:"languages,omitempty"`
	CompletedAt   string                 `json:"completed_at"`
	LogFile       string                 `json:"log_file"`
	OutputDir     string                 `json:"output_directory"`
}

// BuildReport assembles the report record from a finished (or
// interrupted) run.
func BuildReport(cfg config.Config, run *RunResult, languages []synth.LanguageResult, logFile string) Report {
	results := make(map[string]StageResult, len(run.Stages))
	for _, s := range run.Stages {
		results[s.ID] = s.StageResult
	}
	return Report{
		Timestamp:     run.Started.Format(time.RFC3339),
		Configuration: cfg,
		Results:       results,
		Languages:     languages,
		CompletedAt:   run.Completed.Format(time.RFC3339),
		LogFile:       logFile,
		OutputDir:     cfg.OutputDir,
	}
}

// WriteReport persists the report as pretty-printed JSON at the fixed
// path inside the output directory. Single-pass overwrite; the report
// is advisory, not authoritative state.
func WriteReport(rep Report) (string, error) {
	if err := os.MkdirAll(rep.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(rep.OutputDir, ReportFileName)

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
