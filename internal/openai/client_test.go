package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompleteReturnsFirstChoice(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Water it weekly.  "}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-test", "gpt-4.1-2025-04-14")
	content, err := client.Complete(context.Background(), []ChatMessage{
		{Role: "system", Content: "persona"},
		{Role: "user", Content: "question"},
	}, 500)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if content != "Water it weekly." {
		t.Fatalf("expected trimmed content, got %q", content)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("expected bearer auth header, got %q", gotAuth)
	}
	if gotBody["model"] != "gpt-4.1-2025-04-14" {
		t.Fatalf("expected model in body, got %v", gotBody["model"])
	}
	if gotBody["max_completion_tokens"] != float64(500) {
		t.Fatalf("expected max_completion_tokens 500, got %v", gotBody["max_completion_tokens"])
	}
}

func TestCompleteUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "gpt-4.1-2025-04-14")
	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, 500)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-test", "gpt-4.1-2025-04-14")
	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, 500)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected code 503, got %d", statusErr.Code)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-test", "gpt-4.1-2025-04-14")
	if _, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, 500); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
