package ingest

import (
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"github.com/hrygo/ragtable/store"
)

// PDFConverter extracts per-page text from a PDF. Page numbers are 1-based;
// the bounding box covers the page's text extent in PDF coordinates.
type PDFConverter struct{}

func (c *PDFConverter) Convert(path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	doc := &Document{Filename: filepath.Base(path)}

	for pageNo := 1; pageNo <= reader.NumPage(); pageNo++ {
		page := reader.Page(pageNo)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to extract text from %s page %d", path, pageNo)
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}

		doc.Blocks = append(doc.Blocks, Block{
			Text:   content,
			PageNo: pageNo,
			BBox:   pageBBox(page),
		})
	}
	return doc, nil
}

// pageBBox computes the bounding box of a page's text elements.
func pageBBox(page pdf.Page) *store.BoundingBox {
	texts := page.Content().Text
	if len(texts) == 0 {
		return nil
	}

	box := &store.BoundingBox{
		Left:   texts[0].X,
		Right:  texts[0].X + texts[0].W,
		Top:    texts[0].Y,
		Bottom: texts[0].Y,
	}
	for _, t := range texts[1:] {
		if t.X < box.Left {
			box.Left = t.X
		}
		if t.X+t.W > box.Right {
			box.Right = t.X + t.W
		}
		if t.Y > box.Top {
			box.Top = t.Y
		}
		if t.Y < box.Bottom {
			box.Bottom = t.Y
		}
	}
	return box
}
