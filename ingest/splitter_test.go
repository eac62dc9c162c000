package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewSplitter_Defaults(t *testing.T) {
	s := NewSplitter(0, 0)
	if s.MaxTokens != 8192 {
		t.Errorf("MaxTokens = %d, want 8192", s.MaxTokens)
	}
	if s.ContextTokens != 128*1024 {
		t.Errorf("ContextTokens = %d, want %d", s.ContextTokens, 128*1024)
	}
}

func TestSplit_MergesBlocksWithSameHeadings(t *testing.T) {
	s := NewSplitter(100, 1000)
	doc := &Document{
		Filename: "doc.md",
		Blocks: []Block{
			{Text: "first paragraph", Headings: []string{"Intro"}},
			{Text: "second paragraph", Headings: []string{"Intro"}},
		},
	}

	chunks, err := s.Split(doc)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Split() returned %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "first paragraph\n\nsecond paragraph" {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
	if len(chunks[0].Headings) != 1 || chunks[0].Headings[0] != "Intro" {
		t.Errorf("chunk headings = %v, want [Intro]", chunks[0].Headings)
	}
}

func TestSplit_HeadingChangeStartsNewChunk(t *testing.T) {
	s := NewSplitter(100, 1000)
	doc := &Document{
		Filename: "doc.md",
		Blocks: []Block{
			{Text: "about a", Headings: []string{"A"}},
			{Text: "about b", Headings: []string{"B"}},
		},
	}

	chunks, err := s.Split(doc)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Split() returned %d chunks, want 2", len(chunks))
	}
	if chunks[0].Headings[0] != "A" || chunks[1].Headings[0] != "B" {
		t.Errorf("heading paths = %v, %v", chunks[0].Headings, chunks[1].Headings)
	}
}

func TestSplit_TokenBudgetFlushes(t *testing.T) {
	// Each block is ~10 tokens; a budget of 15 fits one block per chunk.
	s := NewSplitter(15, 1000)
	block := strings.Repeat("word ", 8) // 40 chars, 10 tokens
	doc := &Document{
		Filename: "doc.md",
		Blocks: []Block{
			{Text: block},
			{Text: block},
		},
	}

	chunks, err := s.Split(doc)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Split() returned %d chunks, want 2", len(chunks))
	}
}

func TestSplit_OversizedBlockIsSplit(t *testing.T) {
	s := NewSplitter(10, 10000)
	doc := &Document{
		Filename: "doc.md",
		Blocks: []Block{
			{Text: strings.Repeat("alpha beta gamma delta. ", 20), PageNo: 4},
		},
	}

	chunks, err := s.Split(doc)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Split() returned %d chunks, want several", len(chunks))
	}
	for i, chunk := range chunks {
		if got := estimateTokens(chunk.Text); got > s.MaxTokens {
			t.Errorf("chunk %d is %d tokens, exceeds budget %d", i, got, s.MaxTokens)
		}
		if chunk.PageNo != 4 {
			t.Errorf("chunk %d lost page provenance: PageNo = %d", i, chunk.PageNo)
		}
	}
}

func TestSplit_ContextCeilingIsHardFailure(t *testing.T) {
	s := NewSplitter(10, 20)
	doc := &Document{
		Filename: "huge.md",
		Blocks:   []Block{{Text: strings.Repeat("x", 500)}},
	}

	if _, err := s.Split(doc); err == nil {
		t.Fatal("Split() did not fail for a block over the context limit")
	}
}

func TestSplitText_HardCutUnbrokenRun(t *testing.T) {
	parts := splitText(strings.Repeat("a", 100), 5)
	for i, part := range parts {
		if estimateTokens(part) > 5 {
			t.Errorf("part %d is %d tokens, exceeds budget", i, estimateTokens(part))
		}
	}
	if got := strings.Join(parts, ""); got != strings.Repeat("a", 100) {
		t.Error("hard cut lost content")
	}
}

func TestSplitText_HardCutKeepsRuneBoundaries(t *testing.T) {
	// 200 three-byte runes with no separators at all; the budget forces a
	// hard cut at a byte count that is not a multiple of the rune width.
	text := strings.Repeat("日", 200)
	parts := splitText(text, 10)

	for i, part := range parts {
		if !utf8.ValidString(part) {
			t.Errorf("part %d is invalid UTF-8", i)
		}
		if estimateTokens(part) > 10 {
			t.Errorf("part %d is %d tokens, exceeds budget", i, estimateTokens(part))
		}
	}
	if got := strings.Join(parts, ""); got != text {
		t.Error("hard cut lost content")
	}
}

func TestSplitText_IdeographicSentenceSeparator(t *testing.T) {
	sentence := strings.Repeat("図", 30) + "。"
	parts := splitText(strings.Repeat(sentence, 4), 30)

	if len(parts) < 2 {
		t.Fatalf("splitText returned %d parts, want several", len(parts))
	}
	for i, part := range parts {
		if !utf8.ValidString(part) {
			t.Errorf("part %d is invalid UTF-8", i)
		}
		if estimateTokens(part) > 30 {
			t.Errorf("part %d is %d tokens, exceeds budget", i, estimateTokens(part))
		}
	}
}

func TestCutAt(t *testing.T) {
	tests := []struct {
		s        string
		maxBytes int
		wantHead string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"日本語", 4, "日"},  // 4 bytes lands mid-rune, backs off to 3
		{"日本語", 6, "日本"}, // exact boundary
		{"日", 1, "日"},    // never emits an empty head
	}
	for _, tt := range tests {
		head, rest := cutAt(tt.s, tt.maxBytes)
		if head != tt.wantHead {
			t.Errorf("cutAt(%q, %d) head = %q, want %q", tt.s, tt.maxBytes, head, tt.wantHead)
		}
		if head+rest != tt.s {
			t.Errorf("cutAt(%q, %d) lost content", tt.s, tt.maxBytes)
		}
	}
}
