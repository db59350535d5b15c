package correlate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractCodeSnippetsFindsFencedBlocks(t *testing.T) {
	text := "Here's a fix:\n```go\nfunc main() {\n\tprintln(\"hi\")\n}\n```\nand a shell snippet:\n```sh\nls -la\n```\n"

	snippets := ExtractCodeSnippets(text)
	require.Len(t, snippets, 2)
	require.Equal(t, "go", snippets[0].Language)
	require.Equal(t, 3, snippets[0].LineCount)
	require.Equal(t, "sh", snippets[1].Language)
	require.Equal(t, 1, snippets[1].LineCount)
}

func TestExtractCodeSnippetsWithNoLanguageTag(t *testing.T) {
	text := "```\nplain text\n```"
	snippets := ExtractCodeSnippets(text)
	require.Len(t, snippets, 1)
	require.Empty(t, snippets[0].Language)
}

func TestExtractFileReferencesDedupesAndExcludesURLs(t *testing.T) {
	text := "Edit internal/store/store.go and also internal/store/store.go again. " +
		"See https://example.com/path/file.go for reference. Check README.md too."

	refs := ExtractFileReferences(text)
	require.ElementsMatch(t, []string{"internal/store/store.go", "README.md"}, refs)
}

func TestExtractFileReferencesIgnoresFencedCodeBlocks(t *testing.T) {
	text := "Look at main.go.\n```go\n// references inner.go should not count\nimport \"inner.go\"\n```\n"

	refs := ExtractFileReferences(text)
	require.Equal(t, []string{"main.go"}, refs)
}

func TestExtractFileReferencesNoMatches(t *testing.T) {
	require.Empty(t, ExtractFileReferences("nothing here looks like a path"))
}
