package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
)

func newTestGenerator(url string) *Generator {
	return NewGenerator(&Config{APIKey: "test-key", BaseURL: url, Provider: "test", Logger: zap.NewNop()})
}

func TestGenerator_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"연차는 15일입니다."},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	out, err := newTestGenerator(server.URL).Complete(context.Background(), domain.CompletionRequest{
		Model: "gpt-4o-mini",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "sys"},
			{Role: domain.RoleUser, Content: "연차?"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != "연차는 15일입니다." {
		t.Errorf("out = %q", out)
	}

	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", body["model"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", body["messages"])
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("first role = %v", first["role"])
	}
	if _, ok := body["temperature"]; !ok {
		t.Error("zero temperature must still be sent")
	}
}

func TestGenerator_CompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Complete(context.Background(), domain.CompletionRequest{Model: "m"})
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestGenerator_CompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream down","type":"server_error"}}`)
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Complete(context.Background(), domain.CompletionRequest{Model: "m"})
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func sseChunk(content string) string {
	return fmt.Sprintf(`data: {"id":"s1","object":"chat.completion.chunk","model":"m",`+
		`"choices":[{"index":0,"delta":{"content":%q}}]}`+"\n\n", content)
}

func TestGenerator_Stream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"연차는 ", "", "15일"} {
			_, _ = io.WriteString(w, sseChunk(part))
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	r, err := newTestGenerator(server.URL).Stream(context.Background(), domain.CompletionRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	var sb strings.Builder
	for {
		frag, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		sb.WriteString(frag)
	}
	if sb.String() != "연차는 15일" {
		t.Errorf("streamed = %q", sb.String())
	}
}

func TestGenerator_StreamOpenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Stream(context.Background(), domain.CompletionRequest{Model: "m"})
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}
