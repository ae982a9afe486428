package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voiceforge/internal/audio"
	"github.com/dgnsrekt/voiceforge/internal/runner"
)

var convertRefCmd = &cobra.Command{
	Use:   "convert-ref <input> [output]",
	Short: "Convert audio to the reference format",
	Long: paragraph("\nConvert an audio file to 16 kHz mono 16-bit WAV, the layout " +
		"the synthesis engine expects for reference audio. The output defaults to " +
		"the input name with a _16k.wav suffix."),
	SilenceUsage: true,
	Args:         cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		in := args[0]
		out := strings.TrimSuffix(in, ".wav") + "_16k.wav"
		if len(args) == 2 {
			out = args[1]
		}

		logger, _, closeLog, err := setupLog(logDir, debug)
		if err != nil {
			return err
		}
		defer closeLog() //nolint:errcheck

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		run := runner.NewExecRunner(cfg.MergeTimeout)
		if err := audio.ConvertToRefFormat(ctx, run, "ffmpeg", in, out, cfg.MergeTimeout); err != nil {
			return err
		}

		info, err := audio.ValidateReference(out, logger)
		if err != nil {
			return err
		}
		fmt.Printf("Converted %s -> %s (%d Hz, %d channel)\n", in, out, info.SampleRate, info.Channels)
		return nil
	},
}
