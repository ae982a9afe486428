package synth

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/dgnsrekt/voiceforge/internal/cache"
)

// CachedEngine wraps another engine with a disk cache keyed on the
// chunk text, language, and reference audio. A hit writes the cached
// audio to the requested output path without invoking the engine.
type CachedEngine struct {
	inner  Engine
	store  *cache.Store
	logger *log.Logger
}

// NewCachedEngine wraps engine with the given store.
func NewCachedEngine(engine Engine, store *cache.Store, logger *log.Logger) *CachedEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &CachedEngine{inner: engine, store: store, logger: logger}
}

func (c *CachedEngine) Name() string {
	return c.inner.Name() + "+cache"
}

// Synthesize serves the request from cache when possible, otherwise
// delegates and stores the result. A cache write failure is logged but
// does not fail the synthesis.
func (c *CachedEngine) Synthesize(ctx context.Context, req SynthRequest) error {
	key := c.key(req)

	if data, ok := c.store.Get(key); ok {
		c.logger.Debug("Synthesis cache hit",
			"language", req.Language, "size", humanize.Bytes(uint64(len(data))))
		return os.WriteFile(req.OutputPath, data, 0o644)
	}

	if err := c.inner.Synthesize(ctx, req); err != nil {
		return err
	}

	data, err := os.ReadFile(req.OutputPath)
	if err != nil {
		c.logger.Warn("Could not read synthesized audio for caching",
			"path", req.OutputPath, "error", err)
		return nil
	}
	if err := c.store.Put(key, data); err != nil {
		c.logger.Warn("Could not cache synthesized audio", "error", err)
	}
	return nil
}

// key binds the cache entry to everything that shapes the audio. The
// reference audio contributes its path and size rather than a content
// hash; replacing the file in place with one of identical size defeats
// this, renaming it does not.
func (c *CachedEngine) key(req SynthRequest) string {
	var refSize int64
	if info, err := os.Stat(req.ReferenceAudio); err == nil {
		refSize = info.Size()
	}
	return cache.Key(
		c.inner.Name(),
		req.Language,
		req.ReferenceAudio,
		fmt.Sprintf("%d", refSize),
		req.Text,
	)
}
