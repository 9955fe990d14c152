package callback

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/action"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/event"
)

var fastDelays = []time.Duration{0, time.Millisecond, time.Millisecond, time.Millisecond}

type recorder struct {
	mu      sync.Mutex
	bodies  []map[string]any
	headers []http.Header
}

func (r *recorder) handler(status func(n int) int) http.HandlerFunc {
	var n atomic.Int32
	return func(w http.ResponseWriter, req *http.Request) {
		raw, _ := io.ReadAll(req.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		r.mu.Lock()
		r.bodies = append(r.bodies, body)
		r.headers = append(r.headers, req.Header.Clone())
		r.mu.Unlock()

		w.WriteHeader(status(int(n.Add(1))))
	}
}

func alwaysOK(int) int { return http.StatusOK }

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"http://spring:8080/api/chat/callback", true},
		{"https://example.com/cb", true},
		{"ftp://example.com/cb", false},
		{"file:///etc/passwd", false},
		{"/relative/path", false},
		{"http://", false},
	}
	for _, tc := range tests {
		err := ValidateEndpoint(tc.url)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.url, err)
		}
		if !tc.ok && !errors.Is(err, domain.ErrInvalidCallback) {
			t.Errorf("%s: expected ErrInvalidCallback, got %v", tc.url, err)
		}
	}
}

func TestNewSink_RejectsInvalidEndpoint(t *testing.T) {
	_, err := New(Config{}).NewSink("gopher://x", "k")
	if !errors.Is(err, domain.ErrInvalidCallback) {
		t.Fatalf("expected ErrInvalidCallback, got %v", err)
	}
}

func TestDeliver_FragmentPayload(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(alwaysOK))
	defer srv.Close()

	sink, err := New(Config{RetryDelays: fastDelays}).NewSink(srv.URL, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Deliver(context.Background(), event.Fragment("r1", 0, "안녕")); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if len(rec.bodies) != 1 {
		t.Fatalf("expected 1 POST, got %d", len(rec.bodies))
	}
	b := rec.bodies[0]
	if b["requestId"] != "r1" || b["chunk"] != "안녕" || b["seq"] != float64(0) {
		t.Errorf("body = %v", b)
	}
	if b["done"] != false || b["success"] != true {
		t.Errorf("done/success = %v/%v", b["done"], b["success"])
	}
	if _, ok := b["fullText"]; ok {
		t.Error("fragment must not carry fullText")
	}
	if got := rec.headers[0].Get(HeaderKey); got != "secret" {
		t.Errorf("%s = %q", HeaderKey, got)
	}
	if got := rec.headers[0].Get("Content-Type"); got != "application/json" {
		t.Errorf("content-type = %q", got)
	}
}

func TestDeliver_SuccessTerminalWithAction(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(alwaysOK))
	defer srv.Close()

	sink, _ := New(Config{RetryDelays: fastDelays}).NewSink(srv.URL, "k")
	s, _ := action.NewSuggestion(action.MailCompose, nil)
	if err := sink.Deliver(context.Background(), event.Success("r1", "전체 답변", s)); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	b := rec.bodies[0]
	if b["done"] != true || b["success"] != true || b["fullText"] != "전체 답변" {
		t.Errorf("body = %v", b)
	}
	if b["actionId"] != action.MailCompose {
		t.Errorf("actionId = %v", b["actionId"])
	}
	params, ok := b["params"].(map[string]any)
	if !ok || len(params) != 0 {
		t.Errorf("params = %v, want {}", b["params"])
	}
	if _, ok := b["chunk"]; ok {
		t.Error("terminal must not carry chunk")
	}
}

func TestDeliver_SuccessTerminalWithoutAction(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(alwaysOK))
	defer srv.Close()

	sink, _ := New(Config{RetryDelays: fastDelays}).NewSink(srv.URL, "k")
	if err := sink.Deliver(context.Background(), event.Success("r1", "", nil)); err != nil {
		t.Fatal(err)
	}
	b := rec.bodies[0]
	for _, k := range []string{"actionId", "params", "errorMessage"} {
		if _, ok := b[k]; ok {
			t.Errorf("unexpected key %q in %v", k, b)
		}
	}
	if b["fullText"] != "" {
		t.Errorf("fullText = %v", b["fullText"])
	}
}

func TestDeliver_FailureTerminal(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(alwaysOK))
	defer srv.Close()

	sink, _ := New(Config{RetryDelays: fastDelays}).NewSink(srv.URL, "k")
	if err := sink.Deliver(context.Background(), event.Failure("r1", domain.FailureSynthesis)); err != nil {
		t.Fatal(err)
	}
	b := rec.bodies[0]
	if b["done"] != true || b["success"] != false || b["errorMessage"] != domain.FailureSynthesis {
		t.Errorf("body = %v", b)
	}
}

func TestDeliver_RetriesThenSucceeds(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(func(n int) int {
		if n < 4 {
			return http.StatusBadGateway
		}
		return http.StatusOK
	}))
	defer srv.Close()

	sink, _ := New(Config{RetryDelays: fastDelays}).NewSink(srv.URL, "k")
	if err := sink.Deliver(context.Background(), event.Fragment("r1", 0, "x")); err != nil {
		t.Fatalf("expected success on 4th attempt, got %v", err)
	}
	if len(rec.bodies) != 4 {
		t.Errorf("attempts = %d, want 4", len(rec.bodies))
	}
}

func TestDeliver_ExhaustsRetries(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(func(int) int { return http.StatusInternalServerError }))
	defer srv.Close()

	sink, _ := New(Config{RetryDelays: fastDelays}).NewSink(srv.URL, "k")
	err := sink.Deliver(context.Background(), event.Fragment("r1", 0, "x"))
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if len(rec.bodies) != len(fastDelays) {
		t.Errorf("attempts = %d, want %d", len(rec.bodies), len(fastDelays))
	}
}

func TestDeliver_ContextCanceledDuringBackoff(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(func(int) int { return http.StatusInternalServerError }))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sink, _ := New(Config{RetryDelays: []time.Duration{0, time.Hour}}).NewSink(srv.URL, "k")

	done := make(chan error, 1)
	go func() { done <- sink.Deliver(ctx, event.Fragment("r1", 0, "x")) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrDeliveryFailed) || !errors.Is(err, context.Canceled) {
			t.Fatalf("expected ErrDeliveryFailed wrapping context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Deliver did not return after cancel")
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	if c.http.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v", c.http.Timeout)
	}
	if len(c.delays) != 4 || c.delays[1] != 500*time.Millisecond || c.delays[3] != 2*time.Second {
		t.Errorf("delays = %v", c.delays)
	}
}
