// Package ignorematch implements the Watcher's ignore-pattern filter.
package ignorematch

import (
	"path/filepath"
	"strings"
)

// Matcher decides whether a relative path should be ignored, combining a
// global list of path segments (injected at construction, process-wide)
// with a project-specific list of glob patterns.
type Matcher struct {
	globalSegments map[string]struct{}
	projectGlobs   []string
}

// New builds a Matcher from the global ignore segments and a project's
// own glob patterns. An empty projectGlobs behaves identically to a nil
// one.
func New(globalSegments, projectGlobs []string) *Matcher {
	m := &Matcher{
		globalSegments: make(map[string]struct{}, len(globalSegments)),
		projectGlobs:   append([]string(nil), projectGlobs...),
	}
	for _, s := range globalSegments {
		if s != "" {
			m.globalSegments[s] = struct{}{}
		}
	}
	return m
}

// Ignored reports whether relPath (slash-separated, relative to the
// project root) should be ignored: any path segment equals a global
// ignore segment, OR any project glob matches relPath, OR any project
// glob matches relPath's basename.
func (m *Matcher) Ignored(relPath string) bool {
	if m == nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	for _, seg := range strings.Split(relPath, "/") {
		if _, ok := m.globalSegments[seg]; ok {
			return true
		}
	}

	base := filepath.Base(relPath)
	for _, pattern := range m.projectGlobs {
		if ok, _ := filepath.Match(pattern, relPath); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
