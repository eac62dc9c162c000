// Package generator assembles retrieved passages into a grounding context,
// invokes the generation service, and appends a citation block.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/ragtable/ai/llm"
	"github.com/hrygo/ragtable/ai/metrics"
	"github.com/hrygo/ragtable/retriever"
)

const systemPrompt = `Use the provided context to provide a concise answer to the user's question.
If you cannot find the answer in the context, say so. Do not make up information.`

// previewLimit is the citation preview length in characters.
const previewLimit = 150

// Generator produces grounded, citation-annotated answers.
type Generator struct {
	llm     llm.Service
	metrics *metrics.Pipeline
}

// New creates a Generator. collector may be nil.
func New(service llm.Service, collector *metrics.Pipeline) *Generator {
	return &Generator{
		llm:     service,
		metrics: collector,
	}
}

// GenerateResponse answers query grounded in results. The final answer is
// the generated text followed by one numbered citation per result, in the
// order the results were passed in.
func (g *Generator) GenerateResponse(ctx context.Context, query string, results []retriever.SearchResult) (string, error) {
	contents := make([]string, len(results))
	for i, result := range results {
		contents[i] = result.Content
	}

	user := fmt.Sprintf("<context>\n%s\n</context>\n<question>\n%s\n</question>",
		strings.Join(contents, "\n"), query)

	answer, usage, err := g.llm.Complete(ctx, systemPrompt, user)
	if err != nil {
		return "", errors.Wrap(err, "generation failed")
	}
	if answer == "" {
		return "", errors.New("generation returned empty content")
	}
	if usage != nil {
		g.metrics.AddGenerateTokens(usage.TotalTokens)
	}

	return answer + formatSources(results), nil
}

// formatSources renders the citation block: a header followed by one
// numbered entry per result showing document, page, section, relevance,
// and a single-line preview.
func formatSources(results []retriever.SearchResult) string {
	var b strings.Builder
	b.WriteString("\n\nSources Used:")

	for i, result := range results {
		filename := documentName(result.Source)

		pageInfo := ""
		if result.PageNo > 0 {
			pageInfo = fmt.Sprintf(", Page: %d", result.PageNo)
		}

		sectionInfo := ""
		if len(result.Headings) > 0 {
			sectionInfo = fmt.Sprintf(", Section: \"%s\"", strings.Join(result.Headings, " > "))
		}

		scoreInfo := ""
		if result.RelevanceScore > 0 {
			scoreInfo = fmt.Sprintf(" (Relevance: %.3f)", result.RelevanceScore)
		}

		fmt.Fprintf(&b, "\n%d. Document: %s%s%s%s\n   Text: \"%s\"",
			i+1, filename, pageInfo, sectionInfo, scoreInfo, preview(result.Content))
	}
	return b.String()
}

// documentName extracts the document name from a source key, which is the
// part before the first separator.
func documentName(source string) string {
	if source == "" {
		return "Unknown Document"
	}
	name, _, _ := strings.Cut(source, ":")
	return name
}

// preview flattens content to a single line and truncates it to
// previewLimit characters, appending an ellipsis marker when truncated.
func preview(content string) string {
	runes := []rune(content)
	truncated := len(runes) > previewLimit
	if truncated {
		runes = runes[:previewLimit]
	}
	flat := strings.ReplaceAll(string(runes), "\n", " ")
	if truncated {
		return flat + "..."
	}
	return flat
}
