package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
)

const defaultConfig = `# reference audio file used for voice cloning
reference_audio: "direncan.wav"
# directory with per-language text files (<lang>.txt)
texts_dir: "texts"
# directory for generated audio and the pipeline report
output_dir: "output"
# language codes to synthesize
languages: [fr, de, es, it, sv, tr]

# voice label used in output file names (<lang>_<voice>.wav)
voice: "cloned"
# maximum characters per synthesis chunk
max_chunk_len: 200
# paragraph boundary: newline or blank-line
paragraph_mode: "newline"
# what to do when some chunks fail: partial or abandon
chunk_policy: "partial"
# directory for the synthesis chunk cache; empty disables caching
cache_dir: ""

# per-command timeout for synthesis
synth_timeout: "5m"
# per-command timeout for merge and post-processing
merge_timeout: "2m"

# post-processing applied to every generated file
preprocessing:
  normalize: true
  target_dbfs: -20.0
  fade: true
  fade_duration: "1s"
  trim_silence: false
  silence_threshold: -50.0
  min_silence_len: "500ms"
  # convert to another format after processing, e.g. mp3
  format: ""
  bitrate: "192k"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the voiceforge config file",
	Long:    paragraph(fmt.Sprintf("\n%s the voiceforge config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("voiceforge config\nvoiceforge config --config path/to/voiceforge.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("VoiceForge", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		if found := findDefaultConfig(); found != "" {
			configFile = found
		} else {
			scope := gap.NewScope(gap.User, "voiceforge")
			p, err := scope.ConfigPath("voiceforge.yml")
			if err != nil {
				return fmt.Errorf("could not determine config path: %w", err)
			}
			configFile = p
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
