// Package audio wraps the external audio tooling: reference-audio
// validation, chunk assembly, and post-processing transforms. All
// signal work happens in ffmpeg; this package only builds invocations
// and enforces the pipeline's artifact policies.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/go-audio/wav"
)

var (
	// ErrMissingInput means a required file or directory is absent.
	ErrMissingInput = errors.New("required input does not exist")
	// ErrNoChunks means a language produced no successful chunk
	// artifacts, so there is nothing to assemble.
	ErrNoChunks = errors.New("no chunk artifacts to assemble")
)

// RefInfo describes a validated reference-audio file. For non-WAV
// references only Size is populated; the handle stays opaque.
type RefInfo struct {
	Path       string
	Size       int64
	SampleRate int
	Channels   int
	BitDepth   int
}

// ValidateReference checks that the reference-audio handle points at a
// readable file and, for WAV input, inspects the header. A non-WAV file
// is accepted with a warning since the synthesis engine may still take
// it.
func ValidateReference(path string, logger *log.Logger) (RefInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return RefInfo{}, fmt.Errorf("%w: reference audio %s", ErrMissingInput, path)
	}
	if st.IsDir() {
		return RefInfo{}, fmt.Errorf("%w: reference audio %s is a directory", ErrMissingInput, path)
	}

	info := RefInfo{Path: path, Size: st.Size()}

	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		logger.Warn("Reference audio is not WAV, skipping header inspection", "path", path)
		return info, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return info, fmt.Errorf("open reference audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return info, fmt.Errorf("reference audio %s is not a valid WAV file", path)
	}
	dec.ReadInfo()
	info.SampleRate = int(dec.SampleRate)
	info.Channels = int(dec.NumChans)
	info.BitDepth = int(dec.BitDepth)

	logger.Info("Validated reference audio",
		"path", path,
		"size", humanize.Bytes(uint64(st.Size())),
		"sampleRate", info.SampleRate,
		"channels", info.Channels,
		"bitDepth", info.BitDepth)

	if info.Channels > 1 {
		logger.Warn("Reference audio is not mono; voice cloning quality may suffer",
			"channels", info.Channels)
	}
	return info, nil
}
