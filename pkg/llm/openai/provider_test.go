package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kart-io/agent-studio/pkg/llm"
)

const testAPIKey = "test-key"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected BaseURL https://api.openai.com/v1, got %s", cfg.BaseURL)
	}
	if cfg.EmbedModel != "text-embedding-3-small" {
		t.Errorf("expected EmbedModel text-embedding-3-small, got %s", cfg.EmbedModel)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("expected ChatModel gpt-4o-mini, got %s", cfg.ChatModel)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("expected Timeout 120s, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", cfg.MaxRetries)
	}
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	if _, err := NewProvider(map[string]any{}); err == nil {
		t.Error("expected error when api_key is missing")
	}
	if _, err := NewProvider(map[string]any{"api_key": testAPIKey}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func newTestProvider(serverURL string) *Provider {
	cfg := DefaultConfig()
	cfg.BaseURL = serverURL
	cfg.APIKey = testAPIKey
	return NewProviderWithConfig(cfg)
}

func TestProviderEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected path /embeddings, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer "+testAPIKey {
			t.Error("expected Authorization Bearer test-key")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{"embedding": [0.1, 0.2, 0.3], "index": 0},
				{"embedding": [0.4, 0.5, 0.6], "index": 1}
			],
			"model": "text-embedding-3-small"
		}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)

	embeddings, err := provider.Embed(context.Background(), []string{"text1", "text2"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
	if len(embeddings[0]) != 3 {
		t.Errorf("expected embedding dimension 3, got %d", len(embeddings[0]))
	}
}

func TestProviderChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "测试响应"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)

	response, err := provider.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if response != "测试响应" {
		t.Errorf("expected 测试响应, got %s", response)
	}
}

func TestProviderCompleteWithImages(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "an image"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)

	blocks := []llm.ContentBlock{
		llm.TextBlock("What is in this image?"),
		llm.ImageBlock("aGVsbG8=", "image/jpeg"),
	}
	resp, err := provider.Complete(context.Background(), blocks)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "an image" {
		t.Errorf("expected content 'an image', got %s", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("expected total tokens 15, got %+v", resp.Usage)
	}

	// The image must be delivered as a data URL content part.
	if len(captured.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(captured.Messages))
	}
	parts, ok := captured.Messages[0].Content.([]any)
	if !ok {
		t.Fatalf("expected content parts array, got %T", captured.Messages[0].Content)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 content parts, got %d", len(parts))
	}
	imagePart, ok := parts[1].(map[string]any)
	if !ok {
		t.Fatalf("unexpected content part type %T", parts[1])
	}
	urlField, _ := imagePart["image_url"].(map[string]any)
	url, _ := urlField["url"].(string)
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("expected data URL prefix, got %s", url)
	}
}

func TestProviderRetriesOnServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)

	response, err := provider.Generate(context.Background(), "prompt", "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if response != "ok" {
		t.Errorf("expected ok, got %s", response)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}
