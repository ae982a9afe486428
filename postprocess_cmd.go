package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voiceforge/internal/audio"
	"github.com/dgnsrekt/voiceforge/internal/config"
	"github.com/dgnsrekt/voiceforge/internal/runner"
)

var (
	ppNormalize       bool
	ppNormalizeTarget float64
	ppFade            bool
	ppFadeDuration    float64
	ppTrimSilence     bool
	ppConvertFormat   string
	ppBitrate         string
)

var postProcessCmd = &cobra.Command{
	Use:   "postprocess",
	Short: "Post-process the generated audio files",
	Long: paragraph("\nApply normalization, fades, silence trimming, or format " +
		"conversion to every audio file in the output directory. Flags override " +
		"the corresponding config file settings; with no flags set, the " +
		"configured operations run."),
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		post := resolvePostFlags(cmd, cfg.Post)

		ops := audio.BuildOperations(
			post.Normalize, post.TargetDBFS,
			post.Fade, post.FadeDuration,
			post.TrimSilence, post.SilenceThreshold, post.MinSilenceLen,
			post.Format, post.Bitrate)
		if len(ops) == 0 {
			return fmt.Errorf("no operations requested: enable at least one of --normalize, --fade, --trim-silence, --convert-format")
		}

		logger, _, closeLog, err := setupLog(logDir, debug)
		if err != nil {
			return err
		}
		defer closeLog() //nolint:errcheck

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		execRun := runner.NewExecRunner(cfg.MergeTimeout)
		processor := audio.NewProcessor(execRun, "ffmpeg", cfg.MergeTimeout, logger)
		if err := processor.ProcessDir(ctx, cfg.OutputDir, ops); err != nil {
			return err
		}
		fmt.Printf("Applied %d operations to audio in %s\n", len(ops), cfg.OutputDir)
		return nil
	},
}

// resolvePostFlags merges the command's operation flags over the
// configured post-processing block. Any operation flag switches to
// explicit mode; the config's operation toggles then no longer apply.
// Duration flags are given in seconds.
func resolvePostFlags(cmd *cobra.Command, post config.PostConfig) config.PostConfig {
	if cmd.Flags().Changed("normalize") || cmd.Flags().Changed("fade") ||
		cmd.Flags().Changed("trim-silence") || cmd.Flags().Changed("convert-format") {
		post.Normalize = ppNormalize
		post.Fade = ppFade
		post.TrimSilence = ppTrimSilence
		post.Format = ppConvertFormat
	}
	if cmd.Flags().Changed("normalize-target") {
		post.TargetDBFS = ppNormalizeTarget
	}
	if cmd.Flags().Changed("fade-duration") {
		post.FadeDuration = time.Duration(ppFadeDuration * float64(time.Second))
	}
	if cmd.Flags().Changed("bitrate") {
		post.Bitrate = ppBitrate
	}
	return post
}

func init() {
	f := postProcessCmd.Flags()
	f.BoolVar(&ppNormalize, "normalize", false, "normalize loudness")
	f.Float64Var(&ppNormalizeTarget, "normalize-target", -20.0, "normalization target in dBFS")
	f.BoolVar(&ppFade, "fade", false, "apply fade in and fade out")
	f.Float64Var(&ppFadeDuration, "fade-duration", 1.0, "fade duration in seconds")
	f.BoolVar(&ppTrimSilence, "trim-silence", false, "remove leading and trailing silence")
	f.StringVar(&ppConvertFormat, "convert-format", "", "convert to format (e.g. mp3)")
	f.StringVar(&ppBitrate, "bitrate", "192k", "bitrate for format conversion")
}
