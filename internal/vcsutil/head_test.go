package vcsutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func initRepoWithCommit(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}

	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()}
	_, err = wt.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return dir
}

func TestIsRepoFalseForNonRepoDirectory(t *testing.T) {
	dir := t.TempDir()
	h := Open(dir)
	require.False(t, h.IsRepo())
}

func TestIsRepoTrueAfterInit(t *testing.T) {
	dir := initRepoWithCommit(t, map[string]string{"main.go": "package main\n"})
	h := Open(dir)
	require.True(t, h.IsRepo())
}

func TestHeadBlobReturnsCommittedContent(t *testing.T) {
	dir := initRepoWithCommit(t, map[string]string{"main.go": "package main\n"})

	h := Open(dir)
	content, found := h.HeadBlob("main.go")
	require.True(t, found)
	require.Equal(t, []byte("package main\n"), content)
}

func TestHeadBlobNotFoundForUntrackedPath(t *testing.T) {
	dir := initRepoWithCommit(t, map[string]string{"main.go": "package main\n"})

	h := Open(dir)
	_, found := h.HeadBlob("never-committed.go")
	require.False(t, found)
}

func TestHeadBlobOnNilHandleIsSafe(t *testing.T) {
	var h *Handle
	content, found := h.HeadBlob("anything")
	require.Nil(t, content)
	require.False(t, found)
}
