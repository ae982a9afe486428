// Package config defines the pipeline configuration, its defaults, and
// the file/env/flag merge rules.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds everything one pipeline run needs. It is loaded once and
// treated as immutable afterward; caller overrides are applied
// field-by-field before validation.
type Config struct {
	ReferenceAudio string   `mapstructure:"reference_audio" json:"reference_audio" env:"VOICEFORGE_REFERENCE_AUDIO"`
	TextsDir       string   `mapstructure:"texts_dir" json:"texts_dir" env:"VOICEFORGE_TEXTS_DIR"`
	OutputDir      string   `mapstructure:"output_dir" json:"output_dir" env:"VOICEFORGE_OUTPUT_DIR"`
	Languages      []string `mapstructure:"languages" json:"languages" env:"VOICEFORGE_LANGUAGES"`

	// Chunking
	MaxChunkLen   int    `mapstructure:"max_chunk_len" json:"max_chunk_len" env:"VOICEFORGE_MAX_CHUNK_LEN"`
	ParagraphMode string `mapstructure:"paragraph_mode" json:"paragraph_mode" env:"VOICEFORGE_PARAGRAPH_MODE"`
	ChunkPolicy   string `mapstructure:"chunk_policy" json:"chunk_policy" env:"VOICEFORGE_CHUNK_POLICY"`

	// External tool budgets
	SynthTimeout time.Duration `mapstructure:"synth_timeout" json:"synth_timeout" env:"VOICEFORGE_SYNTH_TIMEOUT"`
	MergeTimeout time.Duration `mapstructure:"merge_timeout" json:"merge_timeout" env:"VOICEFORGE_MERGE_TIMEOUT"`

	// Voice name used in output artifact filenames.
	Voice string `mapstructure:"voice" json:"voice" env:"VOICEFORGE_VOICE"`

	// CacheDir enables the synthesis chunk cache when non-empty.
	CacheDir string `mapstructure:"cache_dir" json:"cache_dir,omitempty" env:"VOICEFORGE_CACHE_DIR"`

	Post PostConfig `mapstructure:"preprocessing" json:"preprocessing"`
}

// PostConfig selects the audio post-processing operations. Field names
// follow the pipeline report's "preprocessing" block.
type PostConfig struct {
	Normalize    bool          `mapstructure:"normalize" json:"normalize" env:"VOICEFORGE_POST_NORMALIZE"`
	TargetDBFS   float64       `mapstructure:"target_dbfs" json:"target_dbfs" env:"VOICEFORGE_POST_TARGET_DBFS"`
	Fade         bool          `mapstructure:"fade" json:"fade" env:"VOICEFORGE_POST_FADE"`
	FadeDuration time.Duration `mapstructure:"fade_duration" json:"fade_duration" env:"VOICEFORGE_POST_FADE_DURATION"`

	TrimSilence      bool          `mapstructure:"trim_silence" json:"trim_silence" env:"VOICEFORGE_POST_TRIM_SILENCE"`
	SilenceThreshold float64       `mapstructure:"silence_threshold" json:"silence_threshold" env:"VOICEFORGE_POST_SILENCE_THRESHOLD"`
	MinSilenceLen    time.Duration `mapstructure:"min_silence_len" json:"min_silence_len" env:"VOICEFORGE_POST_MIN_SILENCE_LEN"`

	Format  string `mapstructure:"format" json:"format" env:"VOICEFORGE_POST_FORMAT"`
	Bitrate string `mapstructure:"bitrate" json:"bitrate" env:"VOICEFORGE_POST_BITRATE"`
}

// Default returns the documented default configuration, used when no
// config file is present.
func Default() Config {
	return Config{
		ReferenceAudio: "data/ref/reference.wav",
		TextsDir:       "data/texts",
		OutputDir:      "outputs",
		Languages:      []string{"fr", "de", "es", "it", "sv", "tr"},
		MaxChunkLen:    200,
		ParagraphMode:  "newline",
		ChunkPolicy:    "partial",
		SynthTimeout:   300 * time.Second,
		MergeTimeout:   120 * time.Second,
		Voice:          "cloned",
		Post: PostConfig{
			Normalize:        true,
			TargetDBFS:       -20.0,
			Fade:             true,
			FadeDuration:     time.Second,
			SilenceThreshold: -40.0,
			MinSilenceLen:    time.Second,
		},
	}
}

// Load reads the config file (if any) over the defaults and then
// applies environment variable overrides. An empty path means defaults
// plus environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return cfg, fmt.Errorf("expand config path: %w", err)
		}
		v := viper.New()
		v.SetConfigFile(expanded)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", expanded, err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", expanded, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Overrides carries explicit caller-supplied values. A nil field means
// "keep the loaded value"; a set field always wins.
type Overrides struct {
	ReferenceAudio *string
	TextsDir       *string
	OutputDir      *string
	Languages      *[]string
}

// Apply merges the overrides into the config field-by-field and
// returns the result. The receiver is not modified.
func (c Config) Apply(o Overrides) Config {
	if o.ReferenceAudio != nil {
		c.ReferenceAudio = *o.ReferenceAudio
	}
	if o.TextsDir != nil {
		c.TextsDir = *o.TextsDir
	}
	if o.OutputDir != nil {
		c.OutputDir = *o.OutputDir
	}
	if o.Languages != nil {
		c.Languages = append([]string(nil), (*o.Languages)...)
	}
	return c
}

// Validate checks the configuration for values the pipeline cannot run
// with.
func (c *Config) Validate() error {
	if c.ReferenceAudio == "" {
		return fmt.Errorf("reference_audio cannot be empty")
	}
	if c.TextsDir == "" {
		return fmt.Errorf("texts_dir cannot be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("at least one language is required")
	}
	for _, lang := range c.Languages {
		if n := len(lang); n < 2 || n > 5 {
			return fmt.Errorf("invalid language code %q: must be 2-5 characters", lang)
		}
	}
	if c.MaxChunkLen < 1 {
		return fmt.Errorf("max_chunk_len must be positive, got %d", c.MaxChunkLen)
	}
	switch strings.ToLower(c.ParagraphMode) {
	case "newline", "blank-line":
		c.ParagraphMode = strings.ToLower(c.ParagraphMode)
	default:
		return fmt.Errorf("invalid paragraph_mode %q: must be newline or blank-line", c.ParagraphMode)
	}
	switch strings.ToLower(c.ChunkPolicy) {
	case "partial", "abandon":
		c.ChunkPolicy = strings.ToLower(c.ChunkPolicy)
	default:
		return fmt.Errorf("invalid chunk_policy %q: must be partial or abandon", c.ChunkPolicy)
	}
	if c.SynthTimeout < time.Second {
		return fmt.Errorf("synth_timeout must be at least 1 second, got %v", c.SynthTimeout)
	}
	if c.MergeTimeout < time.Second {
		return fmt.Errorf("merge_timeout must be at least 1 second, got %v", c.MergeTimeout)
	}
	if c.Post.TargetDBFS > 0 {
		return fmt.Errorf("target_dbfs must be zero or negative, got %f", c.Post.TargetDBFS)
	}
	// Bare numbers in a config file decode as nanoseconds; catch that
	// before it silently neuters an enabled operation.
	if c.Post.Fade && c.Post.FadeDuration < time.Millisecond {
		return fmt.Errorf("fade_duration %v is below 1ms: use a duration string like \"1s\"", c.Post.FadeDuration)
	}
	if c.Post.TrimSilence && c.Post.MinSilenceLen < time.Millisecond {
		return fmt.Errorf("min_silence_len %v is below 1ms: use a duration string like \"500ms\"", c.Post.MinSilenceLen)
	}
	return nil
}
