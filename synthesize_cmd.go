package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voiceforge/internal/audio"
	"github.com/dgnsrekt/voiceforge/internal/cache"
	"github.com/dgnsrekt/voiceforge/internal/runner"
	"github.com/dgnsrekt/voiceforge/internal/synth"
	"github.com/dgnsrekt/voiceforge/internal/text"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Run synthesis only, without the surrounding stages",
	Long: paragraph("\nSynthesize every configured language from its text file " +
		"using the reference voice, merging chunks into one audio file per " +
		"language. Validation, text preparation, and post-processing are not run."),
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if dryRun {
			fmt.Println("DRY RUN MODE:")
			for _, lang := range cfg.Languages {
				fmt.Printf("  %s: %s -> %s\n", lang,
					filepath.Join(cfg.TextsDir, lang+".txt"),
					filepath.Join(cfg.OutputDir, lang+"_"+cfg.Voice+".wav"))
			}
			return nil
		}

		logger, _, closeLog, err := setupLog(logDir, debug)
		if err != nil {
			return err
		}
		defer closeLog() //nolint:errcheck

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
		jobs := synth.NewJobRunner(engine, assembler, synth.JobConfig{
			ReferenceAudio: cfg.ReferenceAudio,
			TextsDir:       cfg.TextsDir,
			OutputDir:      cfg.OutputDir,
			Voice:          cfg.Voice,
			MaxChunkLen:    cfg.MaxChunkLen,
			ParagraphMode:  text.ParagraphMode(cfg.ParagraphMode),
			ChunkPolicy:    cfg.ChunkPolicy,
		}, logger)

		results, err := jobs.RunAll(ctx, cfg.Languages)
		if err != nil {
			return err
		}

		var failed []string
		for _, r := range results {
			if !r.Success {
				failed = append(failed, r.Language)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("synthesis failed for: %s", strings.Join(failed, ", "))
		}
		fmt.Printf("Synthesized %d languages into %s\n", len(results), cfg.OutputDir)
		return nil
	},
}
