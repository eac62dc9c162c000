// Package ingest converts source documents into ordered, provenance-carrying
// chunks ready for embedding and upsert.
package ingest

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/ragtable/store"
)

// Document is the structured representation of one converted source file.
type Document struct {
	Filename string
	Blocks   []Block
}

// Block is one text element of a converted document, with its provenance.
type Block struct {
	Text     string
	Headings []string // ancestor section titles, outermost first
	PageNo   int      // 0 when the format has no pages
	BBox     *store.BoundingBox
}

// Converter turns a source file into a structured Document.
type Converter interface {
	Convert(path string) (*Document, error)
}

// converterFor picks a converter by file extension.
func converterFor(path string) (Converter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return &PDFConverter{}, nil
	case ".md", ".markdown":
		return &MarkdownConverter{}, nil
	case ".txt", ".text":
		return &MarkdownConverter{}, nil
	default:
		return nil, errors.Errorf("unsupported document format: %s", filepath.Ext(path))
	}
}
