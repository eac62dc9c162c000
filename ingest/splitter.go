package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/hrygo/ragtable/store"
)

// Chunk is a bounded-size excerpt of a document, carrying the provenance of
// its first source block.
type Chunk struct {
	Text     string
	Headings []string
	PageNo   int
	BBox     *store.BoundingBox
}

// Splitter segments converted documents into chunks bounded by a token
// budget. MaxTokens bounds individual chunk length; ContextTokens bounds
// what a single block may contain at all. The two limits are independent.
type Splitter struct {
	MaxTokens     int
	ContextTokens int
}

// NewSplitter creates a Splitter, applying defaults for non-positive values.
func NewSplitter(maxTokens, contextTokens int) *Splitter {
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	if contextTokens <= 0 {
		contextTokens = 128 * 1024
	}
	return &Splitter{
		MaxTokens:     maxTokens,
		ContextTokens: contextTokens,
	}
}

// Split merges consecutive blocks that share a heading path until the token
// budget is reached, then starts a new chunk. A single block larger than the
// budget is split on paragraph, line, and sentence boundaries.
func (s *Splitter) Split(doc *Document) ([]Chunk, error) {
	var chunks []Chunk

	var pending []Block // blocks accumulated for the current chunk
	pendingTokens := 0

	flush := func() {
		if len(pending) == 0 {
			return
		}
		texts := make([]string, len(pending))
		for i, b := range pending {
			texts[i] = b.Text
		}
		chunks = append(chunks, Chunk{
			Text:     strings.Join(texts, "\n\n"),
			Headings: pending[0].Headings,
			PageNo:   pending[0].PageNo,
			BBox:     pending[0].BBox,
		})
		pending = nil
		pendingTokens = 0
	}

	for _, block := range doc.Blocks {
		blockTokens := estimateTokens(block.Text)
		if blockTokens > s.ContextTokens {
			return nil, errors.Errorf("block in %s exceeds the tokenizer context limit: %d > %d tokens",
				doc.Filename, blockTokens, s.ContextTokens)
		}

		if len(pending) > 0 && !sameHeadings(pending[0].Headings, block.Headings) {
			flush()
		}

		if blockTokens > s.MaxTokens {
			flush()
			for _, part := range splitText(block.Text, s.MaxTokens) {
				chunks = append(chunks, Chunk{
					Text:     part,
					Headings: block.Headings,
					PageNo:   block.PageNo,
					BBox:     block.BBox,
				})
			}
			continue
		}

		if pendingTokens+blockTokens > s.MaxTokens {
			flush()
		}
		pending = append(pending, block)
		pendingTokens += blockTokens
	}
	flush()

	return chunks, nil
}

// splitText splits an oversized text on progressively finer separators
// until every part fits the budget. The last resort is a hard cut.
func splitText(text string, maxTokens int) []string {
	separators := []string{"\n\n", "\n", ". ", "。", "　", " "}
	parts := []string{text}
	for _, sep := range separators {
		if fitsAll(parts, maxTokens) {
			break
		}
		parts = resplit(parts, sep, maxTokens)
	}

	// Hard cut anything still over budget (pathological unbroken runs).
	maxChars := maxTokens * charsPerToken
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		for estimateTokens(part) > maxTokens {
			head, rest := cutAt(part, maxChars)
			out = append(out, head)
			part = rest
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// cutAt splits s at the last rune boundary at or before maxBytes, so a hard
// cut never leaves an invalid UTF-8 fragment.
func cutAt(s string, maxBytes int) (head, rest string) {
	if len(s) <= maxBytes {
		return s, ""
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(s)
		cut = size
	}
	return s[:cut], s[cut:]
}

// resplit breaks oversized parts on sep and greedily reassembles pieces up
// to the budget, so splitting never produces needlessly tiny fragments.
func resplit(parts []string, sep string, maxTokens int) []string {
	var out []string
	for _, part := range parts {
		if estimateTokens(part) <= maxTokens {
			out = append(out, part)
			continue
		}

		var assembled strings.Builder
		for _, piece := range strings.Split(part, sep) {
			if piece == "" {
				continue
			}
			candidate := piece
			if assembled.Len() > 0 {
				candidate = assembled.String() + sep + piece
			}
			if estimateTokens(candidate) > maxTokens && assembled.Len() > 0 {
				out = append(out, assembled.String())
				assembled.Reset()
				assembled.WriteString(piece)
				continue
			}
			assembled.Reset()
			assembled.WriteString(candidate)
		}
		if assembled.Len() > 0 {
			out = append(out, assembled.String())
		}
	}
	return out
}

func fitsAll(parts []string, maxTokens int) bool {
	for _, part := range parts {
		if estimateTokens(part) > maxTokens {
			return false
		}
	}
	return true
}

func sameHeadings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// charsPerToken is the rough bytes-per-token ratio used for budgeting.
const charsPerToken = 4

func estimateTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}
