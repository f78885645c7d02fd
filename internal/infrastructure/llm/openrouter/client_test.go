package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/resilience"
)

func TestCompleteSendsChatRequest(t *testing.T) {
	var captured chatRequest
	var auth, referer, title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		referer = r.Header.Get("HTTP-Referer")
		title = r.Header.Get("X-Title")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"  Spreadsheet \n"}}],"usage":{"prompt_tokens":12,"completion_tokens":1}}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL + "/", APIKey: "sk-test", AppURL: "http://localhost", AppName: "explorer"}, nil, nil)
	reply, err := client.Complete(context.Background(), []domain.ChatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hello"},
	}, "mistralai/mistral-7b-instruct")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "Spreadsheet" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if auth != "Bearer sk-test" || referer != "http://localhost" || title != "explorer" {
		t.Fatalf("unexpected headers: auth=%q referer=%q title=%q", auth, referer, title)
	}
	if captured.Model != "mistralai/mistral-7b-instruct" || len(captured.Messages) != 2 || captured.Messages[1].Content != "hello" {
		t.Fatalf("unexpected request body: %+v", captured)
	}
}

func TestCompleteIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL}, nil, nil)
	_, err := client.Complete(context.Background(), []domain.ChatMessage{{Role: "user", Content: "x"}}, "m")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be temporary, got %v", err)
	}
}

func TestCompleteClientErrorIsPermanentInferenceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL}, nil, nil)
	_, err := client.Complete(context.Background(), []domain.ChatMessage{{Role: "user", Content: "x"}}, "m")
	if !domain.IsKind(err, domain.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestCompleteRejectsMalformedResponses(t *testing.T) {
	cases := map[string]string{
		"not json":   `<html>oops</html>`,
		"no choices": `{"choices":[]}`,
		"error body": `{"error":{"message":"rate limited upstream","code":429}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			client := New(Config{BaseURL: server.URL}, nil, nil)
			_, err := client.Complete(context.Background(), []domain.ChatMessage{{Role: "user", Content: "x"}}, "m")
			if !domain.IsKind(err, domain.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestCompleteMakesSingleAttemptAndHonorsDeadline(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL}, resilience.NewExecutor(resilience.InferenceConfig(true)), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, []domain.ChatMessage{{Role: "user", Content: "x"}}, "m")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected timeout to be temporary, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", hits.Load())
	}
}
