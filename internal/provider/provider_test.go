package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DreamCats/docrag/internal/config"
)

func TestOllamaEmbed(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"embedding":[0.5,0.25,1]}`))
	}))
	defer srv.Close()

	o := NewOllama(OllamaOptions{BaseURL: srv.URL + "/api/", EmbedModel: "m1"})
	vec, err := o.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.5 || vec[2] != 1 {
		t.Errorf("Embed() = %v", vec)
	}
	if got["model"] != "m1" || got["prompt"] != "hello" || got["text"] != "hello" {
		t.Errorf("request body = %v", got)
	}
}

func TestOllamaEmbedErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `oops`, ErrProviderError},
		{"malformed json", http.StatusOK, `{not json`, ErrProviderError},
		{"empty vector", http.StatusOK, `{"embedding":[]}`, ErrProviderError},
		{"error field", http.StatusOK, `{"error":"model not found"}`, ErrProviderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOllama(OllamaOptions{BaseURL: srv.URL}).Embed(context.Background(), "x")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Embed() error = %v, want %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrProviderUnavailable) {
				t.Fatalf("reachable server reported as unavailable: %v", err)
			}
		})
	}
}

func TestOllamaUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	o := NewOllama(OllamaOptions{BaseURL: url})
	if _, err := o.Embed(context.Background(), "x"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("Embed() error = %v, want ErrProviderUnavailable", err)
	}
	if got := o.Complete(context.Background(), "prompt"); got != FallbackMessage {
		t.Fatalf("Complete() = %q, want fallback", got)
	}
}

func TestOllamaComplete(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"response":"forty-two","done":true}`))
	}))
	defer srv.Close()

	o := NewOllama(OllamaOptions{BaseURL: srv.URL, ChatModel: "chat"})
	if answer := o.Complete(context.Background(), "question?"); answer != "forty-two" {
		t.Fatalf("Complete() = %q", answer)
	}
	if got.Model != "chat" || got.Prompt != "question?" || got.Stream {
		t.Errorf("request = %+v", got)
	}
}

func TestOllamaCompleteFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if got := NewOllama(OllamaOptions{BaseURL: srv.URL}).Complete(context.Background(), "p"); got != FallbackMessage {
		t.Fatalf("Complete() = %q, want fallback", got)
	}
}

func TestOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/embeddings":
			_, _ = w.Write([]byte(`{"object":"list","model":"e","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"usage":{"prompt_tokens":1,"total_tokens":1}}`))
		case "/v1/chat/completions":
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"c","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hi there"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p, err := NewOpenAI("sk-test", WithBaseURL(srv.URL+"/v1/"), WithModels("e", "c"))
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	vec, err := p.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("Embed() = %v", vec)
	}
	if got := p.Complete(context.Background(), "hello"); got != "hi there" {
		t.Errorf("Complete() = %q", got)
	}
}

func TestOpenAIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAI("sk-test", WithBaseURL(srv.URL+"/v1/"))
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	_, err = p.Embed(context.Background(), "text")
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Embed() error = %v, want ProviderError with 401", err)
	}
	if got := p.Complete(context.Background(), "hello"); got != FallbackMessage {
		t.Errorf("Complete() = %q, want fallback", got)
	}

	if _, err := NewOpenAI(""); err == nil {
		t.Error("NewOpenAI with empty key should fail")
	}
}

func TestStub(t *testing.T) {
	s := NewStub(16)
	ctx := context.Background()

	a1, _ := s.Embed(ctx, "alpha")
	a2, _ := s.Embed(ctx, "alpha")
	b, _ := s.Embed(ctx, "beta")
	if len(a1) != 16 {
		t.Fatalf("dimension = %d, want 16", len(a1))
	}
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatal("same text produced different vectors")
		}
	}
	same := true
	for i := range a1 {
		if a1[i] != b[i] {
			same = false
		}
	}
	if same {
		t.Fatal("different texts produced identical vectors")
	}

	boom := errors.New("boom")
	s.FailOn("beta", boom)
	if _, err := s.Embed(ctx, "beta"); !errors.Is(err, boom) {
		t.Errorf("FailOn not applied: %v", err)
	}

	s.SetCompletion("p1", "canned")
	if got := s.Complete(ctx, "p1"); got != "canned" {
		t.Errorf("Complete(p1) = %q", got)
	}
	if got := s.Complete(ctx, "other"); got != s.DefaultCompletion {
		t.Errorf("Complete(other) = %q", got)
	}
	if n := len(s.Prompts()); n != 2 {
		t.Errorf("Prompts() len = %d, want 2", n)
	}
	if s.EmbedCalls() != 4 {
		t.Errorf("EmbedCalls() = %d, want 4", s.EmbedCalls())
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ProviderConfig
		wantErr bool
	}{
		{"ollama", config.ProviderConfig{Name: "ollama"}, false},
		{"stub", config.ProviderConfig{Name: "stub", Dimensions: 8}, false},
		{"openai", config.ProviderConfig{Name: "openai", APIKey: "k"}, false},
		{"openai without key", config.ProviderConfig{Name: "openai"}, true},
		{"unknown", config.ProviderConfig{Name: "nope"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(&tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p == nil {
				t.Fatal("New() returned nil provider")
			}
		})
	}
}
