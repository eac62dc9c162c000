// Package llm provides the chat completion service used for answer
// generation. The provider is chosen once at construction time; every
// provider implements the same Complete contract.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Usage reports token consumption for a single call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Service is the text generation service interface.
type Service interface {
	// Complete generates text from a system message and a user message.
	Complete(ctx context.Context, system, user string) (string, *Usage, error)

	// Chat performs a chat completion over an explicit message list.
	Chat(ctx context.Context, messages []Message) (string, *Usage, error)
}

// Config represents generation service configuration.
type Config struct {
	Provider    string // azure, cerebras, openai, deepseek, siliconflow, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.5
	TopP        float32 // default: 1
	Seed        *int    // optional, for reproducible sampling
	Timeout     int     // request timeout in seconds (default: 120)
}

type service struct {
	client      *openai.Client
	model       string
	provider    string
	maxTokens   int
	temperature float32
	topP        float32
	seed        *int
	timeout     int
}

// NewService creates a new generation Service.
func NewService(cfg *Config) (Service, error) {
	var clientConfig openai.ClientConfig

	switch cfg.Provider {
	case "azure":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("azure provider requires a base URL")
		}
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)

	case "cerebras":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.cerebras.ai/v1"
		}
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = baseURL

	case "openai":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}

	case "deepseek":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.deepseek.com"
		}
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = baseURL

	case "siliconflow":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.siliconflow.cn/v1"
		}
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = baseURL

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = baseURL

	default:
		return nil, fmt.Errorf("unsupported generation provider: %q", cfg.Provider)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.5
	}
	topP := cfg.TopP
	if topP <= 0 {
		topP = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		seed:        cfg.Seed,
		timeout:     timeout,
	}, nil
}

func (s *service) Complete(ctx context.Context, system, user string) (string, *Usage, error) {
	return s.Chat(ctx, []Message{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	})
}

func (s *service) Chat(ctx context.Context, messages []Message) (string, *Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	slog.Debug("LLM: chat request",
		"provider", s.provider,
		"model", s.model,
		"messages_count", len(messages),
	)

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		TopP:        s.topP,
		Seed:        s.seed,
		Messages:    convertMessages(messages),
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("LLM chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("empty response from LLM")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", nil, fmt.Errorf("LLM returned empty content")
	}

	usage := &Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	slog.Debug("LLM: chat response received",
		"content_length", len(content),
		"total_tokens", usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return content, usage, nil
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		converted[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}
	return converted
}
