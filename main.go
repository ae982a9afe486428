// Package main provides the voiceforge CLI: a multilingual
// voice-cloning TTS pipeline driving an external synthesis engine.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/voiceforge/internal/config"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile     string
	referenceAudio string
	textsDir       string
	outputDir      string
	languages      []string
	engineName     string
	logDir         string
	debug          bool
	dryRun         bool

	skipValidate    bool
	skipPrepare     bool
	skipSynthesis   bool
	skipPostProcess bool

	rootCmd = &cobra.Command{
		Use:   "voiceforge",
		Short: "Clone a voice across languages, start to finished audio",
		Long: paragraph(fmt.Sprintf(
			"\nRun the full %s pipeline: validate the reference voice, prepare per-language texts, synthesize every chunk, post-process, and write a report.",
			keyword("voice cloning"))),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         executeRun,
	}
)

// executeRun drives the full pipeline from the root command.
func executeRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if dryRun {
		printPlan(cfg)
		return nil
	}

	logger, logPath, closeLog, err := setupLog(logDir, debug)
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck

	return runPipeline(cfg, skips{
		validate:    skipValidate,
		prepare:     skipPrepare,
		synthesize:  skipSynthesis,
		postProcess: skipPostProcess,
	}, logger, logPath)
}

// loadConfig merges defaults, config file, environment, and explicit
// flag overrides, then validates. A flag only overrides when the caller
// actually set it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configFile
	if path == "" {
		path = findDefaultConfig()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	var o config.Overrides
	if cmd.Flags().Changed("reference-audio") {
		o.ReferenceAudio = &referenceAudio
	}
	if cmd.Flags().Changed("texts-dir") {
		o.TextsDir = &textsDir
	}
	if cmd.Flags().Changed("output-dir") {
		o.OutputDir = &outputDir
	}
	if cmd.Flags().Changed("languages") {
		o.Languages = &languages
	}
	cfg = cfg.Apply(o)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// findDefaultConfig looks for a config file in the usual app config
// directories. Empty means run on defaults.
func findDefaultConfig() string {
	scope := gap.NewScope(gap.User, "voiceforge")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return ""
	}
	if c := os.Getenv("VOICEFORGE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	for _, dir := range dirs {
		for _, name := range []string{"voiceforge.yml", "voiceforge.yaml", "voiceforge.json"} {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

// printPlan reports what a run would do, without side effects.
func printPlan(cfg config.Config) {
	fmt.Println("DRY RUN MODE:")
	fmt.Printf("Reference audio: %s\n", cfg.ReferenceAudio)
	fmt.Printf("Texts directory: %s\n", cfg.TextsDir)
	fmt.Printf("Output directory: %s\n", cfg.OutputDir)
	fmt.Printf("Languages: %s\n", strings.Join(cfg.Languages, ", "))
	fmt.Println("Stages to be executed:")
	if !skipValidate {
		fmt.Println("  - Reference audio validation")
	}
	if !skipPrepare {
		fmt.Println("  - Text preparation")
	}
	if !skipSynthesis {
		fmt.Println("  - Synthesis")
	}
	if !skipPostProcess {
		fmt.Println("  - Post-processing")
	}
	fmt.Println("  - Report generation")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "configuration file path")
	pf.StringVarP(&referenceAudio, "reference-audio", "r", "", "reference audio file for voice cloning")
	pf.StringVarP(&textsDir, "texts-dir", "t", "", "directory containing per-language text files")
	pf.StringVarP(&outputDir, "output-dir", "o", "", "directory for generated audio")
	pf.StringSliceVarP(&languages, "languages", "l", nil, "language codes to process (e.g. fr,de,es)")
	pf.StringVar(&engineName, "engine", "xtts", "synthesis engine (xtts or mock)")
	pf.StringVar(&logDir, "log-dir", "logs", "directory for pipeline log files")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.BoolVar(&dryRun, "dry-run", false, "show planned actions without running anything")

	rootCmd.Flags().BoolVar(&skipValidate, "skip-validate", false, "skip reference audio validation")
	rootCmd.Flags().BoolVar(&skipPrepare, "skip-prepare", false, "skip text preparation")
	rootCmd.Flags().BoolVar(&skipSynthesis, "skip-synthesis", false, "skip synthesis")
	rootCmd.Flags().BoolVar(&skipPostProcess, "skip-postprocess", false, "skip audio post-processing")

	_ = viper.BindPFlag("engine", pf.Lookup("engine"))
	_ = viper.BindPFlag("debug", pf.Lookup("debug"))
	viper.SetEnvPrefix("voiceforge")
	viper.AutomaticEnv()

	// Resolve flag > environment > default through viper for every
	// command, so VOICEFORGE_ENGINE and VOICEFORGE_DEBUG work without
	// flags.
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		engineName = viper.GetString("engine")
		debug = viper.GetBool("debug")
	}

	rootCmd.AddCommand(prepareCmd, synthesizeCmd, postProcessCmd, convertRefCmd, configCmd, manCmd)
}
