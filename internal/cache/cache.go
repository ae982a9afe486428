// Package cache provides a disk-backed store for synthesized chunk
// audio, so that re-running a pipeline does not re-synthesize chunks
// whose text has not changed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Stats reports cache activity for one process lifetime.
type Stats struct {
	Hits       int64
	Misses     int64
	Size       int64
	ItemCount  int64
	LastAccess time.Time
}

// Store is a content-addressed disk cache. Values are compressed with
// zstd before writing; keys are opaque strings hashed into file names.
// Safe for concurrent use.
type Store struct {
	basePath string
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder

	mu    sync.Mutex
	stats Stats
}

// Open creates the cache directory if needed and returns a store over
// it.
func Open(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Store{basePath: basePath, encoder: enc, decoder: dec}, nil
}

// Key derives a stable cache key from the parts that determine a
// synthesized chunk: engine, model, language, reference audio, text.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}

// Get returns the cached value for key, or false when absent. A
// corrupted entry is removed and treated as a miss.
func (s *Store) Get(key string) ([]byte, bool) {
	path := s.filePath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		s.record(false)
		return nil, false
	}

	decompressed, err := s.decoder.DecodeAll(data, nil)
	if err != nil {
		os.Remove(path)
		s.record(false)
		return nil, false
	}

	s.record(true)
	return decompressed, true
}

// Put stores value under key. The write goes through a temp file and
// rename so a concurrent Get never observes a partial entry.
func (s *Store) Put(key string, value []byte) error {
	path := s.filePath(key)
	compressed := s.encoder.EncodeAll(value, nil)

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, compressed, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("finalize cache entry: %w", err)
	}
	return nil
}

// Contains reports whether key has an entry, without reading it.
func (s *Store) Contains(key string) bool {
	_, err := os.Stat(s.filePath(key))
	return err == nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".zst") {
			os.Remove(filepath.Join(s.basePath, e.Name()))
		}
	}
	return nil
}

// Stats returns a snapshot of hit and miss counts plus the current
// on-disk size.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return stats
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".zst") {
			continue
		}
		if info, err := e.Info(); err == nil {
			stats.Size += info.Size()
			stats.ItemCount++
		}
	}
	return stats
}

func (s *Store) filePath(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(s.basePath, hex.EncodeToString(hash[:16])+".zst")
}

func (s *Store) record(hit bool) {
	s.mu.Lock()
	if hit {
		s.stats.Hits++
	} else {
		s.stats.Misses++
	}
	s.stats.LastAccess = time.Now()
	s.mu.Unlock()
}
