package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL   = "http://localhost:11434/api"
	defaultEmbedModel  = "mxbai-embed-large"
	defaultChatModel   = "llama3.2:latest"
	defaultHTTPTimeout = 60 * time.Second
)

// OllamaOptions configures an Ollama client.
type OllamaOptions struct {
	BaseURL    string
	EmbedModel string
	ChatModel  string
	Timeout    time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Ollama talks to a local Ollama server over its JSON API.
type Ollama struct {
	baseURL    string
	embedModel string
	chatModel  string
	client     *http.Client
	logger     *slog.Logger
}

var _ Provider = (*Ollama)(nil)

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Text   string `json:"text"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// NewOllama creates an Ollama client; zero options take the defaults.
func NewOllama(opts OllamaOptions) *Ollama {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOllamaURL
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = defaultEmbedModel
	}
	if opts.ChatModel == "" {
		opts.ChatModel = defaultChatModel
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultHTTPTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ollama{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		embedModel: opts.EmbedModel,
		chatModel:  opts.ChatModel,
		client:     client,
		logger:     logger,
	}
}

// Embed calls POST /embeddings. The text is sent both as "prompt", which
// Ollama reads, and as "text".
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp ollamaEmbedResponse
	err := o.post(ctx, "embed", "/embeddings", ollamaEmbedRequest{
		Model:  o.embedModel,
		Prompt: text,
		Text:   text,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &ProviderError{Op: "embed", Err: errors.New(resp.Error)}
	}
	if len(resp.Embedding) == 0 {
		return nil, &ProviderError{Op: "embed", Err: errors.New("empty embedding in response")}
	}
	return resp.Embedding, nil
}

// Complete calls POST /generate with streaming disabled.
func (o *Ollama) Complete(ctx context.Context, prompt string) string {
	var resp ollamaGenerateResponse
	err := o.post(ctx, "complete", "/generate", ollamaGenerateRequest{
		Model:  o.chatModel,
		Prompt: prompt,
		Stream: false,
	}, &resp)
	if err == nil && resp.Error != "" {
		err = &ProviderError{Op: "complete", Err: errors.New(resp.Error)}
	}
	if err != nil {
		o.logger.Warn("completion failed, returning fallback", "model", o.chatModel, "error", err)
		return FallbackMessage
	}
	return resp.Response
}

func (o *Ollama) post(ctx context.Context, op, path string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return &ProviderError{Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return &ProviderError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return classify(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(data)))}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ProviderError{Op: op, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}
