package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felixgeelhaar/agentsim/domain/agent"
)

func newOpenAIServer(t *testing.T, content string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Path = %s, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "gpt-4o-mini" {
			t.Errorf("model = %v, want gpt-4o-mini", req["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
		})
	}))
}

func TestOpenAIProvider_Complete(t *testing.T) {
	t.Parallel()

	server := newOpenAIServer(t, `{"target": "composing"}`)
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	if p.Name() != "openai" {
		t.Errorf("Name() = %s, want openai", p.Name())
	}

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "pick"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.ID != "chatcmpl-1" || resp.Usage.TotalTokens != 16 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOpenAIProvider_DrivesLLMOracle(t *testing.T) {
	t.Parallel()

	server := newOpenAIServer(t, "```json\n{\"target\": \"engaging\"}\n```")
	defer server.Close()

	o := NewLLMOracle(LLMOracleConfig{
		Provider: NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"}),
	})
	got, err := o.Decide(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if got != agent.StateEngaging {
		t.Errorf("Decide() = %s, want engaging", got)
	}
}
