// Package caching provides a file-based byte cache with a TTL, used to
// avoid refetching product images across runs of the same catalog.
package caching

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache stores fetched bytes on disk keyed by source URL.
type Cache struct {
	path     string
	ttl      time.Duration
	maxBytes int64 // entries larger than this are not cached; 0 means no limit
}

// NewCache creates a Cache rooted at path, creating the directory if
// needed. Entries older than ttl are treated as misses.
func NewCache(path string, ttl time.Duration, maxBytes int64) (*Cache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		path:     path,
		ttl:      ttl,
		maxBytes: maxBytes,
	}, nil
}

// key hashes the URL into a stable filename.
func (c *Cache) key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", hash)
}

// Get retrieves cached bytes for a URL. The second return is false on
// miss, expiry, or read error.
func (c *Cache) Get(url string) ([]byte, bool) {
	filePath := filepath.Join(c.path, c.key(url))

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores bytes for a URL. Oversized entries are silently skipped;
// the fetch still succeeded, it just will not be reused.
func (c *Cache) Set(url string, data []byte) error {
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil
	}
	filePath := filepath.Join(c.path, c.key(url))
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// Purge removes entries older than the TTL and reports how many were
// deleted. Safe to call at any time.
func (c *Cache) Purge() (int, error) {
	entries, err := os.ReadDir(c.path)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > c.ttl {
			if err := os.Remove(filepath.Join(c.path, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
