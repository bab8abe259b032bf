// Package cache is the fetch-result cache. Crawls bypass it by default so
// discovery always sees the live site; enabling it makes repeated runs
// against slow origins cheap.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a byte-oriented store with per-entry TTL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key for a URL. The prefix is versioned: bumping it
// invalidates every entry when the cached page-result format changes.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "graphloom:v1:" + hex.EncodeToString(sum[:])
}
