package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

// File-backed HTML cache for rendered issue pages.

const cacheDir = "cache/issues"

// GetCachePath returns the cache file path for an issue page key.
func GetCachePath(key string) string {
	hash := generateHash(key)
	return filepath.Join(cacheDir, fmt.Sprintf("%s_%s.html", key, hash[:16]))
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	hash := xxhash.Sum64String(s)
	return fmt.Sprintf("%016x", hash)
}

// EnsureCacheDir ensures the cache directory exists
func EnsureCacheDir() error {
	return os.MkdirAll(cacheDir, 0755)
}

// WriteCache writes HTML content to the cache file for key
func WriteCache(key, html string) error {
	if err := EnsureCacheDir(); err != nil {
		return err
	}
	return os.WriteFile(GetCachePath(key), []byte(html), 0644)
}

// ReadCache reads cached HTML for key if present and not older than maxAge
func ReadCache(key string, maxAge time.Duration) (string, bool) {
	cachePath := GetCachePath(key)

	info, err := os.Stat(cachePath)
	if err != nil {
		return "", false
	}

	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(cachePath)
	if err != nil {
		return "", false
	}

	return string(content), true
}

// ClearCache removes the cache file for key
func ClearCache(key string) error {
	err := os.Remove(GetCachePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
