// Package correlate implements the Correlator: on every
// AIConversation insert it schedules a background task that selects
// recent code-change events, scores matches through the LLM capability,
// and writes AICodeMatch rows. This file holds the deterministic helper
// extraction rules applied at insert time (no LLM involved).
package correlate

import (
	"regexp"
	"strings"

	"github.com/anthropics/goclode/internal/models"
)

// fencedBlockPattern matches a maximal fenced code block: a line of
// triple backticks (with an optional language tag), a body, and a
// closing line of triple backticks.
var fencedBlockPattern = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)\\r?\\n(.*?)\\r?\\n```")

// fileRefPattern matches a dotted path token whose final segment carries
// a 1-6 character extension.
var fileRefPattern = regexp.MustCompile(`[A-Za-z0-9_][A-Za-z0-9_./-]*\.[A-Za-z0-9]{1,6}\b`)

// ExtractCodeSnippets pulls every fenced code block out of text.
func ExtractCodeSnippets(text string) []models.CodeSnippet {
	matches := fencedBlockPattern.FindAllStringSubmatch(text, -1)
	snippets := make([]models.CodeSnippet, 0, len(matches))
	for _, m := range matches {
		lang, body := m[1], m[2]
		lineCount := 1
		if body != "" {
			lineCount = strings.Count(body, "\n") + 1
		}
		snippets = append(snippets, models.CodeSnippet{
			Language:  lang,
			Text:      body,
			LineCount: lineCount,
		})
	}
	return snippets
}

// ExtractFileReferences pulls deduplicated file-path-looking tokens from
// text, excluding anything inside a fenced code block or part of an
// absolute URL.
func ExtractFileReferences(text string) []string {
	stripped := fencedBlockPattern.ReplaceAllString(text, " ")

	seen := make(map[string]struct{})
	var out []string
	for _, loc := range fileRefPattern.FindAllStringIndex(stripped, -1) {
		token := stripped[loc[0]:loc[1]]
		if strings.Contains(token, "://") {
			continue
		}
		if loc[0] >= 3 && stripped[loc[0]-3:loc[0]] == "://" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}
