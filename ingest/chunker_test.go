package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_Index_BatchWideChunkIndex(t *testing.T) {
	first := writeFile(t, "first.md", "# One\n\nalpha\n\n# Two\n\nbeta\n")
	second := writeFile(t, "second.md", "gamma\n")

	chunker := NewChunker(NewSplitter(100, 1000))
	items, err := chunker.Index(context.Background(), []string{first, second})
	require.NoError(t, err)
	require.Len(t, items, 3)

	// The chunk index continues across documents within one batch.
	assert.Equal(t, "first.md:chunk_0", items[0].Source)
	assert.Equal(t, "first.md:chunk_1", items[1].Source)
	assert.Equal(t, "second.md:chunk_2", items[2].Source)

	for i, item := range items {
		require.NotNil(t, item.Metadata)
		assert.Equal(t, i, item.Metadata.ChunkIndex)
	}
}

func TestChunker_Index_SourcesPairwiseDistinct(t *testing.T) {
	var paths []string
	for i := 0; i < 3; i++ {
		paths = append(paths, writeFile(t, fmt.Sprintf("doc%d.md", i), "# H\n\none\n\ntwo\n"))
	}

	chunker := NewChunker(NewSplitter(2, 1000))
	items, err := chunker.Index(context.Background(), paths)
	require.NoError(t, err)
	require.NotEmpty(t, items)

	seen := make(map[string]bool)
	for _, item := range items {
		assert.False(t, seen[item.Source], "duplicate source %q", item.Source)
		seen[item.Source] = true
	}
}

func TestChunker_Index_HeadingTrailRendered(t *testing.T) {
	path := writeFile(t, "doc.md", "# Guide\n\n## Setup\n\ninstall it\n")

	chunker := NewChunker(NewSplitter(100, 1000))
	items, err := chunker.Index(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "## Guide, Setup\ninstall it", items[0].Content)
	assert.Equal(t, []string{"Guide", "Setup"}, items[0].Metadata.Headings)
}

func TestChunker_Index_NoHeadingsNoPrefix(t *testing.T) {
	path := writeFile(t, "plain.txt", "no headings here\n")

	chunker := NewChunker(NewSplitter(100, 1000))
	items, err := chunker.Index(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "no headings here", items[0].Content)
	assert.False(t, strings.HasPrefix(items[0].Content, "## "))
}

func TestChunker_Index_UnparseableDocumentFailsBatch(t *testing.T) {
	good := writeFile(t, "good.md", "fine\n")

	chunker := NewChunker(NewSplitter(100, 1000))
	_, err := chunker.Index(context.Background(), []string{good, "missing.md"})
	require.Error(t, err)
}

func TestChunker_Index_PageAwareSourceFormat(t *testing.T) {
	item := itemFromChunk("report.pdf", Chunk{Text: "body", PageNo: 12}, 7)
	assert.Equal(t, "report.pdf:page_12:chunk_7", item.Source)

	item = itemFromChunk("report.pdf", Chunk{Text: "body"}, 7)
	assert.Equal(t, "report.pdf:chunk_7", item.Source)
}

func TestChunker_Index_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chunker := NewChunker(nil)
	_, err := chunker.Index(ctx, []string{"anything.md"})
	require.ErrorIs(t, err, context.Canceled)
}
