package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_Providers(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"openai", &Config{Provider: "openai", APIKey: "k"}, false},
		{"cerebras default base URL", &Config{Provider: "cerebras", APIKey: "k"}, false},
		{"deepseek", &Config{Provider: "deepseek", APIKey: "k"}, false},
		{"siliconflow", &Config{Provider: "siliconflow", APIKey: "k"}, false},
		{"ollama without key", &Config{Provider: "ollama"}, false},
		{"azure with base URL", &Config{Provider: "azure", APIKey: "k", BaseURL: "https://example.openai.azure.com"}, false},
		{"azure without base URL", &Config{Provider: "azure", APIKey: "k"}, true},
		{"unsupported", &Config{Provider: "bedrock"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func completionServer(t *testing.T, content string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
			"usage": map[string]any{
				"prompt_tokens":     12,
				"completion_tokens": 5,
				"total_tokens":      17,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestComplete_ReturnsContentAndUsage(t *testing.T) {
	var body map[string]any
	srv := completionServer(t, "grounded answer", &body)
	defer srv.Close()

	svc, err := NewService(&Config{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "k",
		BaseURL:  srv.URL + "/v1",
	})
	require.NoError(t, err)

	answer, usage, err := svc.Complete(context.Background(), "be brief", "what is rust")
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer)
	require.NotNil(t, usage)
	assert.Equal(t, 17, usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "be brief", first["content"])
}

func TestChat_EmptyContentIsAnError(t *testing.T) {
	srv := completionServer(t, "", nil)
	defer srv.Close()

	svc, err := NewService(&Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, _, err = svc.Chat(context.Background(), []Message{{Role: "user", Content: "q"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty content")
}

func TestChat_NoChoicesIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	svc, err := NewService(&Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, _, err = svc.Chat(context.Background(), []Message{{Role: "user", Content: "q"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestNewService_Defaults(t *testing.T) {
	svc, err := NewService(&Config{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)

	s, ok := svc.(*service)
	require.True(t, ok)
	assert.Equal(t, 2048, s.maxTokens)
	assert.InDelta(t, 0.5, s.temperature, 1e-6)
	assert.InDelta(t, 1.0, s.topP, 1e-6)
	assert.Equal(t, 120, s.timeout)
	assert.Nil(t, s.seed)
}
