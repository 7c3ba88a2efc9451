package naturebot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"verdant/api/internal/openai"
)

func TestValidateInputPriorityOrder(t *testing.T) {
	tests := []struct {
		name     string
		question string
		online   bool
		wantOK   bool
		wantMsg  string
	}{
		{"empty", "", true, false, MsgEmptyQuestion},
		{"whitespace only", "   ", true, false, MsgEmptyQuestion},
		{"empty beats offline", "  ", false, false, MsgEmptyQuestion},
		{"too short", "hi", true, false, MsgTooShort},
		{"short beats offline", "hi", false, false, MsgTooShort},
		{"too long", strings.Repeat("a", 201), true, false, MsgTooLong},
		{"long beats offline", strings.Repeat("a", 201), false, false, MsgTooLong},
		{"offline", "what is moss?", false, false, MsgOffline},
		{"valid", "what is moss?", true, true, ""},
		{"three chars valid", "abc", true, true, ""},
		{"two hundred chars valid", strings.Repeat("a", 200), true, true, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, msg := ValidateInput(tc.question, tc.online)
			if ok != tc.wantOK || msg != tc.wantMsg {
				t.Fatalf("ValidateInput(%q, %v) = (%v, %q), want (%v, %q)",
					tc.question, tc.online, ok, msg, tc.wantOK, tc.wantMsg)
			}
		})
	}
}

func newBotService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewService(openai.NewClient(server.URL, "sk-test", "gpt-4.1-2025-04-14"))
}

func TestAskReturnsTrimmedAnswer(t *testing.T) {
	svc := newBotService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"choices":[{"message":{"content":"  Moss is a tiny plant!  "}}]}`)
	})

	if got := svc.Ask(context.Background(), "what is moss?"); got != "Moss is a tiny plant!" {
		t.Fatalf("unexpected answer: %q", got)
	}
}

func TestAskUnauthorizedGetsAPIKeyMessage(t *testing.T) {
	svc := newBotService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	if got := svc.Ask(context.Background(), "what is moss?"); got != MsgNeedAPIKey {
		t.Fatalf("expected API key message, got %q", got)
	}
}

func TestAskServerErrorGetsGenericMessage(t *testing.T) {
	svc := newBotService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})

	if got := svc.Ask(context.Background(), "what is moss?"); got != MsgGenericFailure {
		t.Fatalf("expected generic failure message, got %q", got)
	}
}

func TestAskTransportErrorSurfacesDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	svc := NewService(openai.NewClient(server.URL, "sk-test", "gpt-4.1-2025-04-14"))
	got := svc.Ask(context.Background(), "what is moss?")
	if !strings.HasPrefix(got, "Failed to fetch response: ") {
		t.Fatalf("expected transport error message, got %q", got)
	}
}

func TestAskEmptyAnswerGetsSorryMessage(t *testing.T) {
	svc := newBotService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"choices":[{"message":{"content":"   "}}]}`)
	})

	if got := svc.Ask(context.Background(), "what is moss?"); got != MsgEmptyResponse {
		t.Fatalf("expected empty-response message, got %q", got)
	}
}
