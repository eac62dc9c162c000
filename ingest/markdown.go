package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownConverter converts markdown (and plain text, which is a subset)
// into blocks. The heading hierarchy becomes each block's ancestor path.
type MarkdownConverter struct{}

func (c *MarkdownConverter) Convert(path string) (*Document, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(source))

	doc := &Document{Filename: filepath.Base(path)}

	// headings[i] is the most recent level i+1 heading still in scope.
	var headings []string

	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			level := node.Level
			if level-1 < len(headings) {
				headings = headings[:level-1]
			}
			headings = append(headings, nodeText(node, source))
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.CodeBlock, *ast.FencedCodeBlock:
			content := strings.TrimSpace(linesText(n, source))
			if content == "" {
				return ast.WalkSkipChildren, nil
			}
			trail := make([]string, len(headings))
			copy(trail, headings)
			doc.Blocks = append(doc.Blocks, Block{
				Text:     content,
				Headings: trail,
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return doc, nil
}

// nodeText collects the raw text of a node's inline children.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// linesText collects the raw source lines covered by a block node.
func linesText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(source))
	}
	return buf.String()
}
