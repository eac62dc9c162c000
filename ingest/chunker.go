package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/ragtable/store"
)

// Chunker converts a batch of source documents into an ordered sequence of
// DataItems. The chunk index runs across the whole batch, so sources are
// pairwise distinct within one Index call even when a filename repeats.
type Chunker struct {
	splitter *Splitter
}

// NewChunker creates a Chunker around a Splitter.
func NewChunker(splitter *Splitter) *Chunker {
	if splitter == nil {
		splitter = NewSplitter(0, 0)
	}
	return &Chunker{splitter: splitter}
}

// Index converts and chunks every document in paths. A document that cannot
// be converted fails the call; retry policy belongs to the caller.
func (c *Chunker) Index(ctx context.Context, paths []string) ([]store.DataItem, error) {
	var items []store.DataItem

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		converter, err := converterFor(path)
		if err != nil {
			return nil, err
		}
		doc, err := converter.Convert(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to convert %s", path)
		}

		chunks, err := c.splitter.Split(doc)
		if err != nil {
			return nil, err
		}

		before := len(items)
		for _, chunk := range chunks {
			items = append(items, itemFromChunk(doc.Filename, chunk, len(items)))
		}
		slog.Info("Chunked document", "file", doc.Filename, "chunks", len(items)-before)
	}
	return items, nil
}

// itemFromChunk builds a DataItem: the content gets the rendered heading
// trail prepended, and the source encodes filename, page, and the
// batch-wide chunk index.
func itemFromChunk(filename string, chunk Chunk, index int) store.DataItem {
	content := chunk.Text
	if len(chunk.Headings) > 0 {
		content = "## " + strings.Join(chunk.Headings, ", ") + "\n" + chunk.Text
	}

	var source string
	if chunk.PageNo > 0 {
		source = fmt.Sprintf("%s:page_%d:chunk_%d", filename, chunk.PageNo, index)
	} else {
		source = fmt.Sprintf("%s:chunk_%d", filename, index)
	}

	return store.DataItem{
		Content: content,
		Source:  source,
		Metadata: &store.ItemMetadata{
			Filename:   filename,
			PageNo:     chunk.PageNo,
			Headings:   chunk.Headings,
			BBox:       chunk.BBox,
			ChunkIndex: index,
		},
	}
}
