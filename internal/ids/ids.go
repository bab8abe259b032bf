// Package ids generates the identifiers the graph relies on for dedup.
package ids

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/google/uuid"
)

// Content returns the hex md5 digest of text. Chunks and atomic facts are
// identified by the hash of their exact text, so re-ingesting the same
// content merges onto existing nodes instead of duplicating them.
func Content(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// NewDocumentID returns a random UUID string, used as the id of raw-text
// records emitted by the downloader and the page capture path.
func NewDocumentID() string {
	return uuid.NewString()
}
