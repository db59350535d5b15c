// Package vcsutil reads a version-control HEAD blob for baseline seeding.
// It opens the working tree with github.com/go-git/go-git/v5 — the same
// library recera-onyx-coding-agent's graph_service/internal/git package
// uses for its own repository operations — rather than shelling out to
// the git binary, so a HEAD read never depends on a git executable being
// on PATH.
package vcsutil

import (
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// Handle reads HEAD blobs for paths under root, if root is inside a git
// working tree. A Handle with no working tree behaves as if nothing is
// ever found (IsRepo reports false).
type Handle struct {
	root string
}

// Open returns a Handle rooted at dir. It does not error if dir is not a
// git repository; callers should check IsRepo.
func Open(dir string) *Handle {
	return &Handle{root: dir}
}

// IsRepo reports whether the handle's root is inside a git working tree.
func (h *Handle) IsRepo() bool {
	if h == nil || h.root == "" {
		return false
	}
	_, err := git.PlainOpen(h.root)
	return err == nil
}

// HeadBlob returns the HEAD content of relPath, and whether a blob
// existed for it at HEAD at all.
func (h *Handle) HeadBlob(relPath string) (content []byte, found bool) {
	if h == nil || h.root == "" {
		return nil, false
	}
	repo, err := git.PlainOpen(h.root)
	if err != nil {
		return nil, false
	}
	ref, err := repo.Head()
	if err != nil {
		return nil, false
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, false
	}
	file, err := commit.File(filepath.ToSlash(relPath))
	if err != nil {
		return nil, false
	}
	text, err := file.Contents()
	if err != nil {
		return nil, false
	}
	return []byte(text), true
}
