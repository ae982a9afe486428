package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voiceforge/internal/text"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Clean and chunk the per-language texts",
	Long: paragraph("\nRead each language's text file, normalize whitespace and " +
		"punctuation, split it into synthesis-sized chunks, and write the result " +
		"next to the source as <lang>_prepared.txt."),
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, _, closeLog, err := setupLog(logDir, debug)
		if err != nil {
			return err
		}
		defer closeLog() //nolint:errcheck

		mode := text.ParagraphMode(cfg.ParagraphMode)
		var failed int
		for _, lang := range cfg.Languages {
			src := filepath.Join(cfg.TextsDir, lang+".txt")
			raw, err := os.ReadFile(src)
			if err != nil {
				logger.Warn("Skipping language, no text file", "language", lang, "path", src)
				failed++
				continue
			}

			cleaned := text.Clean(string(raw), lang)
			chunks := text.Split(cleaned, cfg.MaxChunkLen, mode)
			if len(chunks) == 0 {
				logger.Warn("Skipping language, no content after cleaning", "language", lang)
				failed++
				continue
			}

			dst := filepath.Join(cfg.TextsDir, lang+"_prepared.txt")
			if err := os.WriteFile(dst, []byte(text.Rejoin(chunks)+"\n"), 0o644); err != nil {
				return fmt.Errorf("write prepared text for %s: %w", lang, err)
			}
			logger.Info("Prepared text", "language", lang, "chunks", len(chunks), "path", dst)
		}

		if failed == len(cfg.Languages) {
			return fmt.Errorf("no text files prepared in %s", cfg.TextsDir)
		}
		return nil
	},
}
