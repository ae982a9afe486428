package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voiceforge/internal/runner"
)

// OpKind identifies one post-processing operation.
type OpKind string

const (
	OpNormalize   OpKind = "normalize"
	OpFade        OpKind = "fade"
	OpTrimSilence OpKind = "trim_silence"
	OpConvert     OpKind = "convert_format"
)

// Operation is one parameterized, stateless audio transform.
type Operation struct {
	Kind OpKind

	TargetDBFS   float64
	FadeDuration time.Duration

	SilenceThreshold float64
	MinSilenceLen    time.Duration

	Format  string
	Bitrate string
}

// Processor applies operation chains to audio files through ffmpeg.
type Processor struct {
	run     runner.Runner
	ffmpeg  string
	timeout time.Duration
	logger  *log.Logger
}

// NewProcessor creates a post-processor bound to an ffmpeg binary.
func NewProcessor(run runner.Runner, ffmpeg string, timeout time.Duration, logger *log.Logger) *Processor {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Processor{run: run, ffmpeg: ffmpeg, timeout: timeout, logger: logger}
}

// ProcessFile applies the operations in order, chaining through
// temporary files so each operation is a single-shot invocation.
func (p *Processor) ProcessFile(ctx context.Context, inPath, outPath string, ops []Operation) error {
	if len(ops) == 0 {
		return fmt.Errorf("no operations to apply to %s", inPath)
	}
	if _, err := os.Stat(inPath); err != nil {
		return fmt.Errorf("%w: audio file %s", ErrMissingInput, inPath)
	}

	current := inPath
	for i, op := range ops {
		next := outPath
		if i < len(ops)-1 {
			next = fmt.Sprintf("%s_tmp_%d%s", strings.TrimSuffix(outPath, filepath.Ext(outPath)), i, filepath.Ext(outPath))
		}
		if op.Kind == OpConvert && op.Format != "" {
			next = strings.TrimSuffix(next, filepath.Ext(next)) + "." + op.Format
		}

		if err := p.apply(ctx, op, current, next); err != nil {
			p.removeTemp(current, inPath, outPath)
			return fmt.Errorf("%s on %s: %w", op.Kind, inPath, err)
		}
		p.removeTemp(current, inPath, outPath)
		current = next
	}

	p.logger.Info("Post-processed audio", "input", inPath, "output", current, "operations", len(ops))
	return nil
}

// ProcessDir applies the operation chain to every audio file in a
// directory, continuing past per-file failures. Returns the first
// error encountered, if any.
func (p *Processor) ProcessDir(ctx context.Context, dir string, ops []Operation) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: output directory %s", ErrMissingInput, dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".wav", ".mp3":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		p.logger.Warn("No audio files found to post-process", "dir", dir)
		return nil
	}

	var firstErr error
	for _, f := range files {
		// In-place processing: each file is replaced by its processed
		// version unless a format conversion changes the extension.
		if err := p.ProcessFile(ctx, f, f, ops); err != nil {
			p.logger.Error("Post-processing failed", "file", f, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// apply runs one ffmpeg invocation for the operation.
func (p *Processor) apply(ctx context.Context, op Operation, inPath, outPath string) error {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", inPath}

	switch op.Kind {
	case OpNormalize:
		args = append(args, "-af", fmt.Sprintf("loudnorm=I=%g:TP=-1.5:LRA=11", op.TargetDBFS))
	case OpFade:
		d := op.FadeDuration.Seconds()
		// Fade-out without probing duration: fade in, reverse, fade in
		// again, reverse back.
		args = append(args, "-af", fmt.Sprintf(
			"afade=t=in:st=0:d=%g,areverse,afade=t=in:st=0:d=%g,areverse", d, d))
	case OpTrimSilence:
		args = append(args, "-af", fmt.Sprintf(
			"silenceremove=start_periods=1:start_threshold=%gdB:stop_periods=-1:stop_threshold=%gdB:stop_duration=%g",
			op.SilenceThreshold, op.SilenceThreshold, op.MinSilenceLen.Seconds()))
	case OpConvert:
		if op.Bitrate != "" {
			args = append(args, "-b:a", op.Bitrate)
		}
	default:
		return fmt.Errorf("unknown operation %q", op.Kind)
	}

	// ffmpeg cannot edit in place.
	target := outPath
	inPlace := outPath == inPath
	if inPlace {
		target = strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_proc" + filepath.Ext(outPath)
	}
	args = append(args, target)

	if _, err := p.run.Run(ctx, runner.Request{Name: p.ffmpeg, Args: args, Timeout: p.timeout}); err != nil {
		os.Remove(target)
		return err
	}
	if inPlace {
		return os.Rename(target, outPath)
	}
	return nil
}

// removeTemp removes an intermediate chain file, never the original
// input or the final output.
func (p *Processor) removeTemp(path, inPath, outPath string) {
	if path == inPath || path == outPath {
		return
	}
	os.Remove(path)
}

// BuildOperations translates the post-processing config flags into an
// ordered operation chain: normalize, fade, silence trim, then format
// conversion.
func BuildOperations(normalize bool, targetDBFS float64, fade bool, fadeDuration time.Duration,
	trimSilence bool, silenceThreshold float64, minSilenceLen time.Duration,
	format, bitrate string) []Operation {
	var ops []Operation
	if normalize {
		ops = append(ops, Operation{Kind: OpNormalize, TargetDBFS: targetDBFS})
	}
	if fade {
		ops = append(ops, Operation{Kind: OpFade, FadeDuration: fadeDuration})
	}
	if trimSilence {
		ops = append(ops, Operation{
			Kind:             OpTrimSilence,
			SilenceThreshold: silenceThreshold,
			MinSilenceLen:    minSilenceLen,
		})
	}
	if format != "" {
		ops = append(ops, Operation{Kind: OpConvert, Format: format, Bitrate: bitrate})
	}
	return ops
}
