package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/dgnsrekt/voiceforge/internal/runner"
)

// ConvertToRefFormat converts an audio file to the 16 kHz mono PCM16
// WAV layout the synthesis engine expects for reference audio.
func ConvertToRefFormat(ctx context.Context, run runner.Runner, ffmpeg, inPath, outPath string, timeout time.Duration) error {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	_, err := run.Run(ctx, runner.Request{
		Name: ffmpeg,
		Args: []string{
			"-hide_banner", "-nostdin", "-y",
			"-i", inPath,
			"-vn",
			"-ac", "1",
			"-ar", "16000",
			"-c:a", "pcm_s16le",
			outPath,
		},
		Timeout: timeout,
	})
	if err != nil {
		return fmt.Errorf("convert %s to 16k mono: %w", inPath, err)
	}
	return nil
}
