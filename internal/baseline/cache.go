// Package baseline implements the Baseline Cache and the unified-diff
// renderer: for a given absolute path, it tracks the bytes
// considered "previous" for diffing, seeded from version-control HEAD on
// first observation when a working tree is available.
package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/anthropics/goclode/internal/vcsutil"
)

// Cache is owned by a single Watcher; it is never shared across projects.
type Cache struct {
	mu       sync.Mutex
	previous map[string][]byte // absolute path -> last-observed bytes
	vcs      *vcsutil.Handle
	root     string
}

// New creates a Cache for a project rooted at root, optionally backed by a
// version-control handle for HEAD-blob seeding.
func New(root string, vcs *vcsutil.Handle) *Cache {
	return &Cache{
		previous: make(map[string][]byte),
		vcs:      vcs,
		root:     root,
	}
}

// Observe returns the diff-relevant previous bytes for absPath (given its
// path relative to the project root) and the baseline source that
// produced them, seeding from version control on first observation.
func (c *Cache) Observe(absPath, relPath string) (previous []byte, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.previous[absPath]; ok {
		return prev, "cache"
	}

	if c.vcs != nil {
		if blob, found := c.vcs.HeadBlob(relPath); found {
			return blob, "head"
		}
	}
	return nil, "cache"
}

// Update records newContent as the new baseline for absPath.
func (c *Cache) Update(absPath string, newContent []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previous[absPath] = newContent
}

// Forget drops any cached baseline for absPath (used on delete notifications).
func (c *Cache) Forget(absPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.previous, absPath)
}

// SHA256Hex returns the hex-encoded SHA-256 of content, used for the
// file_change payload's "sha" field.
func SHA256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
