// Package cache stores per-snippet verification results, keyed by snippet
// hash. A hit replays the earlier outcome without re-evaluating the example;
// failed verifications are cached too, so an unchanged broken example fails
// fast on every run until it is edited.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"mdvet/internal/report"
)

// Entry is one stored verification result.
//
// EngineTag is recorded for forensics only; it already participates in the
// snippet hash, so an engine change never replays a stale entry.
type Entry struct {
	Hash      string           `json:"hash"`
	Passed    bool             `json:"passed"`
	Output    []byte           `json:"output"`
	Findings  []report.Finding `json:"findings,omitempty"`
	EngineTag string           `json:"engine_tag"`
}

// Cache stores and retrieves verification results.
type Cache interface {
	// Get retrieves an entry, or nil when absent. A corrupt or unreadable
	// entry is a miss, not an error: the example is simply re-evaluated.
	Get(hash string) (*Entry, error)

	// Put stores an entry atomically.
	Put(entry *Entry) error
}

// FileCache implements Cache on the filesystem:
//
//	{Dir}/
//	  {hash[0:2]}/
//	    {hash}/
//	      metadata.json
type FileCache struct {
	Dir string
}

// NewFileCache creates a filesystem cache rooted at dir.
func NewFileCache(dir string) *FileCache {
	return &FileCache{Dir: dir}
}

// Get retrieves an entry by hash.
func (c *FileCache) Get(hash string) (*Entry, error) {
	b, err := os.ReadFile(c.metadataPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		// Corrupt entry: treat as a miss.
		return nil, nil
	}
	if e.Hash != hash {
		return nil, nil
	}
	return &e, nil
}

// Put stores an entry. The metadata file appears atomically; a crashed run
// never leaves a half-written entry behind.
func (c *FileCache) Put(entry *Entry) error {
	if entry == nil || entry.Hash == "" {
		return fmt.Errorf("cache entry must have a hash")
	}

	dir := filepath.Dir(c.metadataPath(entry.Hash))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := renameio.WriteFile(c.metadataPath(entry.Hash), b, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (c *FileCache) metadataPath(hash string) string {
	prefix := hash
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(c.Dir, prefix, hash, "metadata.json")
}

// NullCache never hits and never stores. Used when caching is off.
type NullCache struct{}

// Get always misses.
func (NullCache) Get(string) (*Entry, error) { return nil, nil }

// Put discards the entry.
func (NullCache) Put(*Entry) error { return nil }
