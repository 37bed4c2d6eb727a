package ask

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContextFormatsBlocks(t *testing.T) {
	retrieved := []Retrieved{
		{Content: "first passage", Filename: "a.txt"},
		{Content: "second passage", Filename: "b.md"},
	}

	got := BuildContext(retrieved)
	want := "[Source 1: a.txt]\nfirst passage\n\n[Source 2: b.md]\nsecond passage\n"
	assert.Equal(t, want, got)
}

func TestBuildContextEmptyReturnsSentinel(t *testing.T) {
	assert.Equal(t, NoContextSentinel, BuildContext(nil))
	assert.Equal(t, NoContextSentinel, BuildContext([]Retrieved{}))
}

func TestBuildContextUsesFullContent(t *testing.T) {
	long := strings.Repeat("x", 500)
	retrieved := []Retrieved{{
		Source:   SourceDocument{Content: long[:200] + "..."},
		Content:  long,
		Filename: "long.txt",
	}}

	// コンテキストには切り詰め前の全文が入る
	got := BuildContext(retrieved)
	assert.Contains(t, got, long)
	assert.NotContains(t, got, "...")
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	contextBlock := BuildContext([]Retrieved{
		{Content: "The warranty period is two years.", Filename: "warranty.md"},
	})

	first := BuildPrompt("How long is the warranty?", contextBlock)
	second := BuildPrompt("How long is the warranty?", contextBlock)
	assert.Equal(t, first, second)
}

func TestBuildPromptContainsAllSections(t *testing.T) {
	prompt := BuildPrompt("What colors are available?", "[Source 1: catalog.txt]\nRed and blue.\n")

	require.Contains(t, prompt, "Context from documents:")
	require.Contains(t, prompt, "[Source 1: catalog.txt]")
	require.Contains(t, prompt, "User Question: What colors are available?")
	require.Contains(t, prompt, RefusalAnswer)
	require.Contains(t, prompt, "ONLY the information from the context")
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}

func TestBuildPromptCarriesSentinelContext(t *testing.T) {
	prompt := BuildPrompt("Anything?", NoContextSentinel)
	assert.Contains(t, prompt, NoContextSentinel)
}
