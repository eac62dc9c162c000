package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, p *Pipeline) string {
	t.Helper()
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHandler_ExposesPipelineMetrics(t *testing.T) {
	p := NewPipeline()
	p.ObserveIngest(42, 2*time.Second)
	p.ObserveSearch(9, 50*time.Millisecond)
	p.ObserveRerank(100 * time.Millisecond)
	p.AddGenerateTokens(17)

	body := scrape(t, p)

	assert.Contains(t, body, "ragtable_ingest_rows_total 42")
	assert.Contains(t, body, "ragtable_search_hits_total 9")
	assert.Contains(t, body, "ragtable_generate_tokens_total 17")
	assert.Contains(t, body, "ragtable_ingest_batch_seconds_count 1")
	assert.Contains(t, body, "ragtable_search_seconds_count 1")
	assert.Contains(t, body, "ragtable_rerank_seconds_count 1")
}

func TestHandler_RegistryIsPrivate(t *testing.T) {
	body := scrape(t, NewPipeline())

	// Only pipeline metrics; no process or go runtime collectors.
	for _, line := range strings.Split(body, "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		assert.True(t, strings.HasPrefix(line, "ragtable_"), "unexpected metric line: %s", line)
	}
}

func TestNilPipelineIsSafe(t *testing.T) {
	var p *Pipeline
	p.ObserveIngest(1, time.Second)
	p.ObserveSearch(1, time.Second)
	p.ObserveRerank(time.Second)
	p.AddGenerateTokens(1)
	assert.NotNil(t, p.Handler())
}
