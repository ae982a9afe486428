package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voiceforge/internal/text"
)

var (
	// ErrMissingText means a language's text file does not exist.
	ErrMissingText = errors.New("text file does not exist")
	// ErrEmptyText means a language's text file exists but is blank.
	ErrEmptyText = errors.New("text file is empty")
)

// Chunk failure policies.
const (
	// PolicyPartial assembles whatever chunks succeeded.
	PolicyPartial = "partial"
	// PolicyAbandon fails the language if any chunk failed.
	PolicyAbandon = "abandon"
)

// LanguageJob is one language's unit of synthesis work: its code, its
// source text, and its final artifact path. It exists only for the
// duration of the synthesis stage.
type LanguageJob struct {
	Language  string
	Text      string
	FinalPath string
}

// ChunkResult is the per-chunk outcome. Artifact paths are transient;
// after language completion the chunk files are merged or discarded.
type ChunkResult struct {
	Index   int    `json:"index"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// LanguageResult summarizes one language's processing.
type LanguageResult struct {
	Language  string        `json:"language"`
	Success   bool          `json:"success"`
	Detail    string        `json:"detail,omitempty"`
	FinalPath string        `json:"final_path,omitempty"`
	Chunks    []ChunkResult `json:"chunks,omitempty"`
}

// Assembler merges ordered chunk artifacts into one final artifact.
type Assembler interface {
	Assemble(ctx context.Context, chunkPaths []string, finalPath string) error
}

// JobConfig carries the synthesis-stage knobs out of the pipeline
// configuration.
type JobConfig struct {
	ReferenceAudio string
	TextsDir       string
	OutputDir      string
	Voice          string
	MaxChunkLen    int
	ParagraphMode  text.ParagraphMode
	ChunkPolicy    string
}

// JobRunner processes language jobs sequentially: clean, chunk,
// synthesize chunk by chunk, then assemble.
type JobRunner struct {
	engine    Engine
	assembler Assembler
	cfg       JobConfig
	logger    *log.Logger
}

// NewJobRunner wires a job runner from its collaborators.
func NewJobRunner(engine Engine, assembler Assembler, cfg JobConfig, logger *log.Logger) *JobRunner {
	return &JobRunner{engine: engine, assembler: assembler, cfg: cfg, logger: logger}
}

// RunAll processes every requested language in order. A language's
// failure never blocks the others. The returned results are in request
// order; the error is non-nil only when no language could be attempted
// at all.
func (j *JobRunner) RunAll(ctx context.Context, languages []string) ([]LanguageResult, error) {
	if _, err := os.Stat(j.cfg.TextsDir); err != nil {
		return nil, fmt.Errorf("%w: texts directory %s", ErrMissingText, j.cfg.TextsDir)
	}
	if err := os.MkdirAll(j.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	results := make([]LanguageResult, 0, len(languages))
	for _, lang := range languages {
		results = append(results, j.runOne(ctx, lang))
	}
	return results, nil
}

// runOne loads a language's text and resolves its job.
func (j *JobRunner) runOne(ctx context.Context, lang string) LanguageResult {
	textPath := filepath.Join(j.cfg.TextsDir, lang+".txt")

	raw, err := os.ReadFile(textPath)
	if err != nil {
		j.logger.Warn("Text file not found, skipping language", "language", lang, "path", textPath)
		return LanguageResult{Language: lang, Detail: fmt.Sprintf("%v: %s", ErrMissingText, textPath)}
	}
	if strings.TrimSpace(string(raw)) == "" {
		j.logger.Warn("Text file is empty, skipping language", "language", lang, "path", textPath)
		return LanguageResult{Language: lang, Detail: fmt.Sprintf("%v: %s", ErrEmptyText, textPath)}
	}

	job := LanguageJob{
		Language:  lang,
		Text:      string(raw),
		FinalPath: filepath.Join(j.cfg.OutputDir, fmt.Sprintf("%s_%s.wav", lang, j.cfg.Voice)),
	}
	return j.RunLanguage(ctx, job)
}

// RunLanguage chunks the job's text and synthesizes each chunk in
// index order. No chunk is retried; a failed chunk is recorded and the
// next one proceeds. Successful chunk artifacts are assembled into the
// final artifact according to the chunk policy.
func (j *JobRunner) RunLanguage(ctx context.Context, job LanguageJob) LanguageResult {
	result := LanguageResult{Language: job.Language}

	cleaned := text.Clean(job.Text, job.Language)
	chunks := text.Split(cleaned, j.cfg.MaxChunkLen, j.cfg.ParagraphMode)
	if len(chunks) == 0 {
		result.Detail = ErrEmptyText.Error()
		return result
	}

	j.logger.Info("Processing language",
		"language", job.Language,
		"chunks", len(chunks),
		"engine", j.engine.Name())

	var succeeded []string
	failedChunks := 0
	for _, chunk := range chunks {
		chunkPath := j.chunkPath(job.Language, chunk.Index)
		err := j.engine.Synthesize(ctx, SynthRequest{
			Text:           chunk.Text,
			Language:       job.Language,
			ReferenceAudio: j.cfg.ReferenceAudio,
			OutputPath:     chunkPath,
		})

		cr := ChunkResult{Index: chunk.Index, Success: err == nil}
		if err != nil {
			cr.Error = err.Error()
			failedChunks++
			j.logger.Error("Chunk synthesis failed",
				"language", job.Language,
				"chunk", chunk.Index,
				"error", err)
		} else {
			succeeded = append(succeeded, chunkPath)
		}
		result.Chunks = append(result.Chunks, cr)
	}

	if j.cfg.ChunkPolicy == PolicyAbandon && failedChunks > 0 {
		j.discard(succeeded)
		result.Detail = fmt.Sprintf("%d of %d chunks failed, language abandoned", failedChunks, len(chunks))
		return result
	}

	if err := j.assembler.Assemble(ctx, succeeded, job.FinalPath); err != nil {
		result.Detail = err.Error()
		return result
	}

	result.Success = true
	result.FinalPath = job.FinalPath
	if failedChunks > 0 {
		result.Detail = fmt.Sprintf("%d of %d chunks failed, partial audio produced", failedChunks, len(chunks))
	}
	return result
}

// chunkPath derives the deterministic chunk-indexed artifact path.
// Paths encode state for humans; the in-memory chunk index stays
// authoritative.
func (j *JobRunner) chunkPath(lang string, index int) string {
	return filepath.Join(j.cfg.OutputDir, fmt.Sprintf("%s_%s_chunk_%d.wav", lang, j.cfg.Voice, index))
}

// discard removes chunk artifacts when a language is abandoned.
func (j *JobRunner) discard(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			j.logger.Warn("Could not remove chunk artifact", "path", p, "error", err)
		}
	}
}
