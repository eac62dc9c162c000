// Package reranker provides a client for Cohere-compatible rerank APIs.
package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Result represents one reranked candidate.
type Result struct {
	Index int     // index into the submitted document list
	Score float32 // relevance score, higher is better
}

// Service is the reranking service interface.
type Service interface {
	// Rerank reorders documents by relevance to query and returns the
	// topN best, in the collaborator's order.
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error)
}

// Config represents reranker service configuration.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

type service struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

// NewService creates a new reranker Service.
func NewService(cfg *Config) Service {
	return &service{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (s *service) Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error) {
	reqBody := map[string]any{
		"model":     s.model,
		"query":     query,
		"documents": documents,
		"top_n":     topN,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // cleanup

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("rerank API error: HTTP %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("rerank API error: %s", string(msg))
	}

	var result struct {
		Results []struct {
			Index int     `json:"index"`
			Score float32 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	// The API returns candidates best-first; that ordering is the
	// contract, so it is preserved as-is.
	results := make([]Result, len(result.Results))
	for i, r := range result.Results {
		results[i] = Result{Index: r.Index, Score: r.Score}
	}
	return results, nil
}

func (s *service) endpoint() string {
	baseURL := strings.TrimRight(s.baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL + "/rerank"
	}
	return baseURL + "/v1/rerank"
}
