package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zoocart/zoocart/internal/aigate/driver"
)

func TestCompleteParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(req.Messages))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "Cats need scratching posts."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "gpt-4o-mini",
		Messages: []driver.Message{
			{Role: "system", Content: "You help pet owners."},
			{Role: "user", Content: "What do cats need?"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "Cats need scratching posts." {
		t.Errorf("unexpected content: %s", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 19 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestCompleteReturnsProviderErrorOnHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "gpt-4o-mini",
		Messages: []driver.Message{{Role: "user", Content: "hi"}},
	})

	var provErr *driver.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unexpected status: %d", provErr.StatusCode)
	}
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient("http://localhost:0", "")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "gpt-4o-mini",
		Messages: []driver.Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestCompleteValidatesRequest(t *testing.T) {
	client := NewClient("http://localhost:0", "test-key")

	if _, err := client.Complete(context.Background(), nil); err == nil {
		t.Error("expected error for nil request")
	}
	if _, err := client.Complete(context.Background(), &driver.Request{Model: "m"}); err == nil {
		t.Error("expected error for empty messages")
	}
	if _, err := client.Complete(context.Background(), &driver.Request{
		Messages: []driver.Message{{Role: "user", Content: "hi"}},
	}); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	client := NewClient("", "key")
	if client.BaseURL != defaultBaseURL {
		t.Errorf("unexpected base URL: %s", client.BaseURL)
	}
}
