package audio

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voiceforge/internal/runner"
)

// Assembler merges ordered per-chunk artifacts into one final artifact
// per language via lossless stream-level concatenation.
type Assembler struct {
	run     runner.Runner
	ffmpeg  string
	timeout time.Duration
	logger  *log.Logger
}

// NewAssembler creates an assembler that concatenates with the given
// ffmpeg binary under the given timeout.
func NewAssembler(run runner.Runner, ffmpeg string, timeout time.Duration, logger *log.Logger) *Assembler {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Assembler{run: run, ffmpeg: ffmpeg, timeout: timeout, logger: logger}
}

// Assemble produces exactly one final artifact from the chunk artifacts
// that succeeded, in the order given (ascending chunk index). All
// intermediate chunk files are removed afterward whether or not the
// merge succeeds, so no temporary files orphan the output directory.
func (a *Assembler) Assemble(ctx context.Context, chunkPaths []string, finalPath string) error {
	switch len(chunkPaths) {
	case 0:
		return ErrNoChunks
	case 1:
		// Single chunk: promotion, no merge step.
		if err := os.Rename(chunkPaths[0], finalPath); err != nil {
			return fmt.Errorf("promote chunk artifact: %w", err)
		}
		a.logger.Info("Promoted single chunk to final artifact", "path", finalPath)
		return nil
	}

	defer a.cleanup(chunkPaths)

	listPath := finalPath + "_list.txt"
	var list strings.Builder
	for _, p := range chunkPaths {
		fmt.Fprintf(&list, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	res, err := a.run.Run(ctx, runner.Request{
		Name: a.ffmpeg,
		Args: []string{
			"-hide_banner", "-nostdin", "-y",
			"-f", "concat",
			"-safe", "0",
			"-i", listPath,
			"-c", "copy",
			finalPath,
		},
		Timeout: a.timeout,
	})
	if err != nil {
		return fmt.Errorf("concatenate %d chunks into %s: %w", len(chunkPaths), finalPath, err)
	}

	a.logger.Info("Merged chunk artifacts",
		"chunks", len(chunkPaths),
		"path", finalPath,
		"duration", res.Elapsed)
	return nil
}

// cleanup removes intermediate chunk artifacts.
func (a *Assembler) cleanup(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			a.logger.Warn("Could not remove chunk artifact", "path", p, "error", err)
		}
	}
}
